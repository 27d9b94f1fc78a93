package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ClaimsDecorator can mutate allowed JWT claim extensions before a token is signed.
// Implementations may only touch Metadata and must leave subject, role,
// issuer and audience untouched.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, user *User, claims *JWTClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, user *User, claims *JWTClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, user *User, claims *JWTClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, user, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, *User, *JWTClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}

type immutableClaimsSnapshot struct {
	subject  string
	role     string
	issuer   string
	audience []string
}

func captureImmutableClaims(claims *JWTClaims) immutableClaimsSnapshot {
	var audienceCopy []string
	if len(claims.Audience) > 0 {
		audienceCopy = append(audienceCopy, claims.Audience...)
	}

	return immutableClaimsSnapshot{
		subject:  claims.RegisteredClaims.Subject,
		role:     claims.UserRole,
		issuer:   claims.Issuer,
		audience: audienceCopy,
	}
}

func (snap immutableClaimsSnapshot) validate(claims *JWTClaims) error {
	if claims.RegisteredClaims.Subject != snap.subject {
		return immutableClaimViolation("sub")
	}

	if claims.UserRole != snap.role {
		return immutableClaimViolation("role")
	}

	if claims.Issuer != snap.issuer {
		return immutableClaimViolation("iss")
	}

	if !audienceEqual(claims.Audience, snap.audience) {
		return immutableClaimViolation("aud")
	}

	return nil
}

func audienceEqual(a jwt.ClaimStrings, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func immutableClaimViolation(field string) error {
	return errors.New(fmt.Sprintf("immutable claim mutated: %s", field), errors.CategoryInternal).
		WithTextCode(TextCodeImmutableClaim).
		WithCode(errors.CodeInternal).
		WithMetadata(map[string]any{"claim": field})
}
