package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/urfube/internal/db"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/objectstore"
	"github.com/nkiryanov/urfube/internal/service/auth/tokenmanager"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultS3Region     = "us-east-1"

	// Ten years, keeps minutes far from time.Duration overflow
	maxTokenTTLMinutes = 10 * 365 * 24 * 60
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the urfube service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Size of connection pool, every in-flight request holds one. Zero keeps pgxpool default
	DBMaxConns int

	// Environment
	Environment string

	// JWT settings. All of them are required, secrets must differ
	Algorithm                 string
	AccessSecret              string
	RefreshSecret             string
	AccessTokenExpireMinutes  int
	RefreshTokenExpireMinutes int

	// Object storage for uploaded videos
	S3Endpoint         string
	S3Region           string
	S3Bucket           string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Environment: defaultEnvironment,
		S3Region:    defaultS3Region,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":                  setString(&c.ListenAddr),
		"DATABASE_URI":                 setString(&c.DatabaseDSN),
		"DB_MAX_CONNS":                 setInt(&c.DBMaxConns),
		"LOG_LEVEL":                    setString(&c.LogLevel),
		"ENVIRONMENT":                  setString(&c.Environment),
		"ALGORITHM":                    setString(&c.Algorithm),
		"JWT_SECRET_KEY":               setString(&c.AccessSecret),
		"JWT_REFRESH_SECRET_KEY":       setString(&c.RefreshSecret),
		"ACCESS_TOKEN_EXPIRE_MINUTES":  setInt(&c.AccessTokenExpireMinutes),
		"REFRESH_TOKEN_EXPIRE_MINUTES": setInt(&c.RefreshTokenExpireMinutes),
		"S3_ENDPOINT":                  setString(&c.S3Endpoint),
		"S3_REGION":                    setString(&c.S3Region),
		"S3_BUCKET":                    setString(&c.S3Bucket),
		"AWS_ACCESS_KEY_ID":            setString(&c.AWSAccessKeyID),
		"AWS_SECRET_ACCESS_KEY":        setString(&c.AWSSecretAccessKey),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("urfube", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.IntVar(&c.DBMaxConns, "db-max-conns", c.DBMaxConns, "Max open database connections, pgxpool default if zero")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	fs.StringVar(&c.Algorithm, "algorithm", c.Algorithm, "JWT signing algorithm (HS256, HS384, HS512)")
	fs.StringVar(&c.AccessSecret, "jwt-secret", c.AccessSecret, "Secret to sign access tokens")
	fs.StringVar(&c.RefreshSecret, "jwt-refresh-secret", c.RefreshSecret, "Secret to sign refresh tokens")
	fs.IntVar(&c.AccessTokenExpireMinutes, "access-ttl", c.AccessTokenExpireMinutes, "Access token lifetime in minutes")
	fs.IntVar(&c.RefreshTokenExpireMinutes, "refresh-ttl", c.RefreshTokenExpireMinutes, "Refresh token lifetime in minutes")

	fs.StringVar(&c.S3Endpoint, "s3-endpoint", c.S3Endpoint, "S3 compatible storage endpoint, AWS if empty")
	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "S3 region")
	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "Bucket for uploaded videos")

	return fs.Parse(args)
}

func (c *Config) Tokens() tokenmanager.Config {
	return tokenmanager.Config{
		Alg:           c.Algorithm,
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     time.Duration(c.AccessTokenExpireMinutes) * time.Minute,
		RefreshTTL:    time.Duration(c.RefreshTokenExpireMinutes) * time.Minute,
	}
}

func (c *Config) Pool() db.PoolOptions {
	return db.PoolOptions{MaxConns: int32(c.DBMaxConns)} // nolint:gosec
}

func (c *Config) ObjectStore() objectstore.Config {
	return objectstore.Config{
		Endpoint:        c.S3Endpoint,
		Region:          c.S3Region,
		Bucket:          c.S3Bucket,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

// Validate reports every missing or broken setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.DBMaxConns < 0 || c.DBMaxConns > math.MaxInt32 {
		errs = append(errs, errors.New("db max conns must be between 0 and 2147483647"))
	}
	if c.S3Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is required"))
	}
	switch {
	case c.AccessTokenExpireMinutes > maxTokenTTLMinutes:
		errs = append(errs, fmt.Errorf("access token ttl must not exceed %d minutes", maxTokenTTLMinutes))
	case c.RefreshTokenExpireMinutes > maxTokenTTLMinutes:
		errs = append(errs, fmt.Errorf("refresh token ttl must not exceed %d minutes", maxTokenTTLMinutes))
	default:
		if err := c.Tokens().Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
