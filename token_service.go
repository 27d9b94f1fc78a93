package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultSigningMethod is used when the configuration leaves it blank
const DefaultSigningMethod = "HS256"

var supportedSigningMethods = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// SigningMethodFor resolves an algorithm identifier, only HMAC methods are
// accepted since the key is a shared secret.
func SigningMethodFor(alg string) (jwt.SigningMethod, error) {
	if alg == "" {
		alg = DefaultSigningMethod
	}
	method, ok := supportedSigningMethods[alg]
	if !ok {
		return nil, errors.New(fmt.Sprintf("unsupported signing method %q", alg), errors.CategoryInternal).
			WithTextCode(TextCodeUnsupportedSigning).
			WithCode(errors.CodeInternal)
	}
	return method, nil
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	method     jwt.SigningMethod
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, signingMethod, issuer string, audience []string, logger Logger) (*TokenServiceImpl, error) {
	method, err := SigningMethodFor(signingMethod)
	if err != nil {
		return nil, err
	}

	if len(signingKey) == 0 {
		return nil, errors.New("signing key must not be empty", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &TokenServiceImpl{
		signingKey: signingKey,
		method:     method,
		issuer:     issuer,
		audience:   aud,
		logger:     normalizeLogger(logger),
		now:        time.Now,
	}, nil
}

// NewTokenServiceFromConfig builds the service from the auth Config
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetSigningMethod(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)
}

// WithClock overrides the time source for issuing and validating
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Algorithm returns the configured signing algorithm
func (ts *TokenServiceImpl) Algorithm() string {
	return ts.method.Alg()
}

// Issue stamps issued-at, expiry and schema version on claims and signs them.
// ttl must be positive.
func (ts *TokenServiceImpl) Issue(claims *JWTClaims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}

	if ttl <= 0 {
		return "", ErrInvalidTokenTTL
	}

	now := ts.now()
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.Ver = CurrentClaimsVersion

	if claims.Issuer == "" {
		claims.Issuer = ts.issuer
	}

	if len(claims.Audience) == 0 && len(ts.audience) > 0 {
		claims.Audience = append(jwt.ClaimStrings(nil), ts.audience...)
	}

	return ts.SignClaims(claims)
}

// SignClaims signs claims as they are, no defaults are applied
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	token := jwt.NewWithClaims(ts.method, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string. Every failure, including
// expiry, is reported as ErrInvalidToken.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
		jwt.WithStrictDecoding(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("token rejected", "error", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject() == "" {
		ts.logger.Debug("token rejected", "error", "missing subject or invalid claims")
		return nil, ErrInvalidToken
	}

	return claims, nil
}
