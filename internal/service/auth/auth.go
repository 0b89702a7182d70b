package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/nkiryanov/urfube/internal/apperrors"
	"github.com/nkiryanov/urfube/internal/models"
	"github.com/nkiryanov/urfube/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName = "User-Auth-Token"
	defaultAccessAuthScheme = "Bearer"
)

// Scope that unlocks administrative methods
const ScopeAdmin = "admin"

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type TokenManager interface {
	IssuePair(subject string, scopes []string) (models.TokenPair, error)
	Verify(value string, kind tokenmanager.Kind) (tokenmanager.Claims, error)
}

type UserFinder interface {
	// Case insensitive lookup. Has to return apperrors.ErrUserNotFound if nothing found
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

type Config struct {
	// Header with raw access token. "User-Auth-Token" if empty
	AccessHeaderName string

	// Scheme of Authorization header accepted as fallback. "Bearer" if empty
	AccessAuthScheme string
}

// Principal is identity resolved from access token together with the scopes granted to that token
type Principal struct {
	User   models.User
	Scopes []string
}

// HasScopes reports whether every required scope is granted
func (p Principal) HasScopes(required ...string) bool {
	for _, scope := range required {
		if !slices.Contains(p.Scopes, scope) {
			return false
		}
	}
	return true
}

// Auth service: issues tokens and resolves them back to users
type Service struct {
	accessHeaderName string
	accessAuthScheme string

	tokens TokenManager
	users  UserFinder
}

func NewService(cfg Config, tokens TokenManager, users UserFinder) (*Service, error) {
	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}
	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}

	return &Service{
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		tokens:           tokens,
		users:            users,
	}, nil
}

// TokenFromRequest returns raw access token or empty string if request carries none
// Dedicated header wins over Authorization
func (s *Service) TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(s.accessHeaderName)); token != "" {
		return token
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate verifies access token and resolves its subject
// No token is apperrors.ErrAuth, bad or stale token is ErrCredentials or ErrExpiration,
// unknown subject is ErrUserNotFound
func (s *Service) Authenticate(ctx context.Context, raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, apperrors.ErrAuth
	}

	claims, err := s.tokens.Verify(raw, tokenmanager.Access)
	if err != nil {
		return Principal{}, err
	}

	user, err := s.users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("resolve token subject: %w", err)
	}

	return Principal{User: user, Scopes: claims.Scopes}, nil
}

// Authorize returns principal's user unchanged if every required scope was granted
// Scopes come from the decode done by Authenticate, token is not parsed again
func (s *Service) Authorize(p Principal, required ...string) (models.User, error) {
	if !p.HasScopes(required...) {
		return models.User{}, apperrors.ErrPermission
	}
	return p.User, nil
}

// IssueTokens issues new token pair for user
// Requested scopes are granted as is
func (s *Service) IssueTokens(user models.User, scopes []string) (models.TokenPair, error) {
	pair, err := s.tokens.IssuePair(user.Username, scopes)
	if err != nil {
		return pair, fmt.Errorf("token could not be issued. Err: %w", err)
	}
	return pair, nil
}

// Refresh exchanges valid refresh token for a new pair with the same scopes
func (s *Service) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	if refresh == "" {
		return models.TokenPair{}, apperrors.ErrAuth
	}

	claims, err := s.tokens.Verify(refresh, tokenmanager.Refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("resolve token subject: %w", err)
	}

	return s.IssueTokens(user, claims.Scopes)
}
