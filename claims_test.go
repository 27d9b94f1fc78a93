package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/hirableedge/go-auth"
)

func TestNewClaims(t *testing.T) {
	claims := auth.NewClaims("alice@example.com", auth.RoleStudent)

	assert.Equal(t, "alice@example.com", claims.Subject())
	assert.Equal(t, auth.RoleStudent, claims.Role())
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
	assert.Nil(t, claims.ClaimsMetadata())
}

func TestJWTClaims_Version(t *testing.T) {
	tests := []struct {
		ver  int
		want int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{2, 2},
	}

	for _, tt := range tests {
		claims := &auth.JWTClaims{Ver: tt.ver}
		assert.Equal(t, tt.want, claims.Version())
	}
}

func TestJWTClaims_HasRole(t *testing.T) {
	assert.True(t, auth.NewClaims("a", auth.RoleAdmin).HasRole(auth.RoleAdmin))
	assert.False(t, auth.NewClaims("a", auth.RoleStudent).HasRole(auth.RoleAdmin))
	assert.False(t, auth.NewClaims("a", "").HasRole(""))
}

func TestJWTClaims_Times(t *testing.T) {
	iat := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(time.Hour)),
		},
	}

	assert.True(t, claims.IssuedAt().Equal(iat))
	assert.True(t, claims.Expires().Equal(iat.Add(time.Hour)))
}
