package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	// GetTokenExpiration is the access token lifetime in minutes
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
}

// UserStore is the persistence collaborator. Implementations must enforce
// email uniqueness and report violations as ErrIdentityAlreadyExists.
type UserStore interface {
	FindByIdentity(ctx context.Context, identity string) (*User, error)
	Insert(ctx context.Context, user *User) (uuid.UUID, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch UserPatch) error
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// TokenService issues and validates signed access tokens
type TokenService interface {
	Issue(claims *JWTClaims, ttl time.Duration) (string, error)
	Validate(token string) (AuthClaims, error)
}

// TokenResponse is returned by both login entry points
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenTypeBearer is the only token type we issue
const TokenTypeBearer = "bearer"
