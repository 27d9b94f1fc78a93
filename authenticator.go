package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel/attribute"
)

// IdentityVerifier checks an identity/password pair
type IdentityVerifier interface {
	Authenticate(ctx context.Context, identity, password string) (*User, bool, error)
}

// Auther issues access tokens for verified credentials
type Auther struct {
	verifier        IdentityVerifier
	store           UserStore
	tokenService    TokenService
	tokenExpiration time.Duration
	logger          Logger
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
	now             func() time.Time
}

// NewAuthenticator returns a new Authenticator. The token lifetime is read
// once from opts and is not validated here, a non positive value surfaces
// as ErrInvalidTokenTTL on the first login.
func NewAuthenticator(store UserStore, opts Config) (*Auther, error) {
	tokenService, err := NewTokenServiceFromConfig(opts, defLogger)
	if err != nil {
		return nil, err
	}

	return &Auther{
		verifier:        NewUserProvider(store),
		store:           store,
		tokenService:    tokenService,
		tokenExpiration: time.Duration(opts.GetTokenExpiration()) * time.Minute,
		logger:          defLogger,
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
		now:             time.Now,
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
		ts.logger = s.logger
	}
	if up, ok := s.verifier.(*UserProvider); ok {
		up.WithLogger(s.logger)
	}
	return s
}

// WithIdentityVerifier replaces the default UserProvider
func (s *Auther) WithIdentityVerifier(verifier IdentityVerifier) *Auther {
	if verifier != nil {
		s.verifier = verifier
	}
	return s
}

// WithTokenService replaces the token service built from config
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching JWTs.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithClock overrides the time source used for last login
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// TokenExpiration is the lifetime of issued tokens
func (s *Auther) TokenExpiration() time.Duration {
	return s.tokenExpiration
}

// Login verifies identity and password and returns a bearer token
func (s *Auther) Login(ctx context.Context, identity, password string) (*TokenResponse, error) {
	return s.login(ctx, "json", identity, password)
}

// LoginForm is the OAuth2 password grant entry point, username carries the
// email.
func (s *Auther) LoginForm(ctx context.Context, username, password string) (*TokenResponse, error) {
	return s.login(ctx, "form", username, password)
}

func (s *Auther) login(ctx context.Context, channel, identity, password string) (res *TokenResponse, err error) {
	ctx, span := startSpan(ctx, "auth.login", attribute.String("auth.channel", channel))
	defer func() { finishSpan(span, err) }()

	identity = NormalizeIdentity(identity)

	user, ok, err := s.verifier.Authenticate(ctx, identity, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitLoginFailure(ctx, channel, identity, err)
		return nil, asInternal(err, "failed to verify credentials")
	}

	if !ok || user == nil {
		s.emitLoginFailure(ctx, channel, identity, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(ctx, user)
	if err != nil {
		s.logger.Error("Login failed to issue token", "error", err)
		s.emitLoginFailure(ctx, channel, identity, err)
		return nil, err
	}

	s.recordLastLogin(ctx, user)

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"identifier": identity,
			"channel":    channel,
		},
	})

	return &TokenResponse{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(s.tokenExpiration / time.Second),
	}, nil
}

// generateJWT builds the claim set for user, lets the decorator extend it
// and issues the token.
func (s *Auther) generateJWT(ctx context.Context, user *User) (string, error) {
	claims := NewClaims(user.Email, user.Role)
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, user, claims); err != nil {
		s.logger.Error("claims decorator failed", "error", err)
		return "", err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims", "error", err)
		return "", err
	}

	return s.tokenService.Issue(claims, s.tokenExpiration)
}

// recordLastLogin stamps last_login. The token is already minted so a
// failure here is logged and swallowed.
func (s *Auther) recordLastLogin(ctx context.Context, user *User) {
	now := s.now().UTC()
	if err := s.store.UpdateFields(ctx, user.ID, UserPatch{LastLogin: &now}); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID.String(), "error", err)
		return
	}
	user.LastLogin = &now
}

func (s *Auther) emitLoginFailure(ctx context.Context, channel, identity string, err error) {
	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		Metadata: map[string]any{
			"identifier": identity,
			"channel":    channel,
			"error":      err.Error(),
		},
	})
}

// asInternal keeps rich errors as they are and wraps anything else
func asInternal(err error, msg string) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode(TextCodeStoreFailure)
}
