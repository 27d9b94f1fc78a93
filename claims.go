package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CurrentClaimsVersion is stamped on every token we issue. Tokens minted
// before the claim existed carry no "ver" and are read as version 1.
// New claim fields must be optional so older tokens keep validating while
// they are still live.
const CurrentClaimsVersion = 1

// AuthClaims is the read side of the claim set carried by an access token
type AuthClaims interface {
	Subject() string
	Role() string
	Version() int
	Expires() time.Time
	IssuedAt() time.Time
	HasRole(role string) bool
}

// JWTClaims is the concrete claim set
type JWTClaims struct {
	jwt.RegisteredClaims
	Ver      int            `json:"ver,omitempty"`
	UserRole string         `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"` // non-secret extension payload
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// NewClaims returns a claim set for the given subject and role
func NewClaims(subject, role string) *JWTClaims {
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
		UserRole: role,
	}
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Role returns the global role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// Version returns the claim schema version
func (c *JWTClaims) Version() int {
	if c.Ver <= 0 {
		return 1
	}
	return c.Ver
}

// HasRole checks the role claim. It carries no policy beyond equality.
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole != "" && c.UserRole == role
}

// ClaimsMetadata exposes metadata extensions
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
