package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/models"
)

// Kind of token. Every kind is signed with its own secret
type Kind int

const (
	Access Kind = iota + 1
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token payload
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes"`
}

type Config struct {
	// JWT MAC (Message Authentication Code) algorithm: HS256, HS384 or HS512
	Alg string

	// Secrets to sign access and refresh tokens, must differ
	AccessSecret  string
	RefreshSecret string

	// Access and refresh token lifetimes
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Clock. time.Now if not set
	Now func() time.Time
}

func (c Config) Validate() error {
	var errs []error

	if c.AccessSecret == "" {
		errs = append(errs, errors.New("access secret must not be empty"))
	}
	if c.RefreshSecret == "" {
		errs = append(errs, errors.New("refresh secret must not be empty"))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("access token ttl must be positive"))
	}
	if c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("refresh token ttl must be positive"))
	}
	if _, ok := jwt.GetSigningMethod(c.Alg).(*jwt.SigningMethodHMAC); !ok {
		errs = append(errs, fmt.Errorf("unsupported signing algorithm %q", c.Alg))
	}

	return errors.Join(errs...)
}

type TokenManager struct {
	alg jwt.SigningMethod

	accessKey  []byte
	refreshKey []byte

	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("token manager config: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}, nil
}

func (m *TokenManager) params(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case Access:
		return m.accessKey, m.accessTTL, nil
	case Refresh:
		return m.refreshKey, m.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %s", kind)
	}
}

// Issue signed token of the kind for subject with scopes
func (m *TokenManager) Issue(kind Kind, subject string, scopes []string) (models.IssuedToken, error) {
	key, ttl, err := m.params(kind)
	if err != nil {
		return models.IssuedToken{}, err
	}
	if subject == "" {
		return models.IssuedToken{}, errors.New("token subject must not be empty")
	}
	if scopes == nil {
		scopes = []string{}
	}

	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(m.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scopes: scopes,
	})

	value, err := token.SignedString(key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing %s token. Err: %w", kind, err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// IssuePair issues access and refresh tokens with the same subject and scopes
func (m *TokenManager) IssuePair(subject string, scopes []string) (models.TokenPair, error) {
	access, err := m.Issue(Access, subject, scopes)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := m.Issue(Refresh, subject, scopes)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Verify checks signature first and expiry second
// Expired token with valid signature is apperrors.ErrExpiration, any other failure is apperrors.ErrCredentials
func (m *TokenManager) Verify(value string, kind Kind) (Claims, error) {
	key, _, err := m.params(kind)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrCredentials, err)
	}

	claims := Claims{}
	_, err = jwt.ParseWithClaims(
		value,
		&claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	switch {
	case err == nil && claims.Subject == "":
		return Claims{}, fmt.Errorf("%w: token has no subject", apperrors.ErrCredentials)
	case err == nil:
		if claims.Scopes == nil {
			claims.Scopes = []string{}
		}
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrExpiration, err)
	default:
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrCredentials, err)
	}
}
