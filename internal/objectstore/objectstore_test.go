package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/urfube/internal/apperrors"
)

type fakeClient struct {
	err     error
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []*s3.DeleteObjectInput
}

func (c *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	body, _ := io.ReadAll(in.Body)
	c.puts = append(c.puts, in)
	c.bodies = append(c.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (c *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.deletes = append(c.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestNew(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	t.Run("options applied", func(t *testing.T) {
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			var lo awsconfig.LoadOptions
			for _, fn := range optFns {
				require.NoError(t, fn(&lo))
			}
			require.Equal(t, "ru-central1", lo.Region)
			require.NotNil(t, lo.Credentials, "static credentials have to be set")

			creds, err := lo.Credentials.Retrieve(ctx)
			require.NoError(t, err)
			require.Equal(t, "key-id", creds.AccessKeyID)
			require.Equal(t, "secret", creds.SecretAccessKey)
			return aws.Config{}, nil
		}

		var opts s3.Options
		newS3ClientFromConfig = func(_ aws.Config, optFns ...func(*s3.Options)) Client {
			for _, fn := range optFns {
				fn(&opts)
			}
			return &fakeClient{}
		}

		store, err := New(t.Context(), Config{
			Endpoint:        "https://storage.yandexcloud.net",
			Region:          "ru-central1",
			Bucket:          "videos",
			AccessKeyID:     "key-id",
			SecretAccessKey: "secret",
		})

		require.NoError(t, err)
		require.Equal(t, "videos", store.Bucket())
		require.NotNil(t, opts.BaseEndpoint)
		require.Equal(t, "https://storage.yandexcloud.net", *opts.BaseEndpoint)
		require.True(t, opts.UsePathStyle)
	})

	t.Run("load config error", func(t *testing.T) {
		loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("boom")
		}

		_, err := New(t.Context(), Config{Bucket: "videos"})

		require.ErrorIs(t, err, apperrors.ErrS3Client)
		require.ErrorContains(t, err, "boom")
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := New(t.Context(), Config{})

		require.Error(t, err)
	})
}

func TestStore(t *testing.T) {
	t.Run("put ok", func(t *testing.T) {
		client := &fakeClient{}
		store := NewWithClient(client, "videos")

		err := store.Put(t.Context(), "alice/cats", strings.NewReader("meow"), 4, "video/mp4")

		require.NoError(t, err)
		require.Len(t, client.puts, 1)
		require.Equal(t, "videos", *client.puts[0].Bucket)
		require.Equal(t, "alice/cats", *client.puts[0].Key)
		require.EqualValues(t, 4, *client.puts[0].ContentLength)
		require.Equal(t, "video/mp4", *client.puts[0].ContentType)
		require.Equal(t, "meow", client.bodies[0])
	})

	t.Run("put unknown size", func(t *testing.T) {
		client := &fakeClient{}
		store := NewWithClient(client, "videos")

		err := store.Put(t.Context(), "alice/cats", strings.NewReader("meow"), -1, "")

		require.NoError(t, err)
		require.Nil(t, client.puts[0].ContentLength)
		require.Nil(t, client.puts[0].ContentType)
	})

	t.Run("put error is s3 client error", func(t *testing.T) {
		store := NewWithClient(&fakeClient{err: errors.New("access denied")}, "videos")

		err := store.Put(t.Context(), "alice/cats", strings.NewReader("meow"), 4, "")

		require.ErrorIs(t, err, apperrors.ErrS3Client)
		require.ErrorContains(t, err, "access denied")
	})

	t.Run("delete", func(t *testing.T) {
		client := &fakeClient{}
		store := NewWithClient(client, "videos")

		require.NoError(t, store.Delete(t.Context(), "alice/cats"))
		require.Equal(t, "alice/cats", *client.deletes[0].Key)

		client.err = errors.New("gone")
		require.ErrorIs(t, store.Delete(t.Context(), "alice/cats"), apperrors.ErrS3Client)
	})
}
