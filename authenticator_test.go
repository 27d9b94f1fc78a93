package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hirableedge/go-auth"
	"github.com/hirableedge/go-auth/repository"
)

func newTestAuther(t *testing.T, store auth.UserStore) *auth.Auther {
	t.Helper()
	auther, err := auth.NewAuthenticator(store, newMockConfig())
	require.NoError(t, err)
	return auther.
		WithLogger(discardLogger{}).
		WithIdentityVerifier(auth.NewUserProvider(store).WithHasher(fastHasher()))
}

func seedUser(t *testing.T, store *repository.MemoryUsers, email, password string) *auth.User {
	t.Helper()
	user := newTestUser(email, password)
	_, err := store.Insert(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUsers()
	seedUser(t, store, "alice@example.com", "pw123")

	auther := newTestAuther(t, store)

	t.Run("successful login", func(t *testing.T) {
		res, err := auther.Login(ctx, "alice@example.com", "pw123")
		require.NoError(t, err)

		assert.NotEmpty(t, res.AccessToken)
		assert.Equal(t, "bearer", res.TokenType)
		assert.Equal(t, int64(30*60), res.ExpiresIn)

		claims, err := auther.TokenService().Validate(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", claims.Subject())
		assert.Equal(t, auth.RoleStudent, claims.Role())
		assert.Equal(t, 1, claims.Version())
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		res, err := auther.Login(ctx, "ALICE@example.com", "pw123")
		require.NoError(t, err)

		claims, err := auther.TokenService().Validate(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", claims.Subject())
	})

	t.Run("wrong password", func(t *testing.T) {
		res, err := auther.Login(ctx, "alice@example.com", "nope")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email yields the same error", func(t *testing.T) {
		res, err := auther.Login(ctx, "ghost@example.com", "pw123")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.True(t, auth.IsInvalidCredentials(err))
	})
}

func TestAuther_LoginFormMatchesLogin(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUsers()
	seedUser(t, store, "alice@example.com", "pw123")
	auther := newTestAuther(t, store)

	res, err := auther.LoginForm(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeBearer, res.TokenType)
	assert.Equal(t, int64(1800), res.ExpiresIn)

	_, err = auther.LoginForm(ctx, "alice@example.com", "bad")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuther_RecordsLastLogin(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUsers()
	seedUser(t, store, "alice@example.com", "pw123")

	loginAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	auther := newTestAuther(t, store).WithClock(func() time.Time { return loginAt })

	before, err := store.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, before.LastLogin)

	_, err = auther.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)

	after, err := store.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, after.LastLogin)
	assert.True(t, after.LastLogin.Equal(loginAt))

	_, err = auther.Login(ctx, "alice@example.com", "wrong")
	require.Error(t, err)
	again, err := store.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, again.LastLogin.Equal(loginAt))
}

func TestAuther_LastLoginFailureDoesNotFailLogin(t *testing.T) {
	ctx := context.Background()
	alice := newTestUser("alice@example.com", "pw123")

	store := new(MockUserStore)
	store.On("FindByIdentity", mock.Anything, "alice@example.com").Return(alice, nil)
	store.On("UpdateFields", mock.Anything, alice.ID, mock.MatchedBy(func(p auth.UserPatch) bool {
		return p.LastLogin != nil
	})).Return(errors.New("disk full")).Once()

	res, err := newTestAuther(t, store).Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	store.AssertExpectations(t)
}

func TestAuther_VerifierFailureIsInternal(t *testing.T) {
	store := new(MockUserStore)
	verifier := new(MockIdentityVerifier)
	verifier.On("Authenticate", mock.Anything, "alice@example.com", "pw123").
		Return(nil, false, errors.New("connection reset")).Once()

	auther, err := auth.NewAuthenticator(store, newMockConfig())
	require.NoError(t, err)
	auther.WithLogger(discardLogger{}).WithIdentityVerifier(verifier)

	_, err = auther.Login(context.Background(), "alice@example.com", "pw123")
	require.Error(t, err)
	assert.False(t, auth.IsInvalidCredentials(err))
	assert.Contains(t, err.Error(), "failed to verify credentials")
	store.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuther_NonPositiveExpiryFailsLogin(t *testing.T) {
	store := repository.NewMemoryUsers()
	seedUser(t, store, "alice@example.com", "pw123")

	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("test-signing-key")
	cfg.On("GetSigningMethod").Return("HS256")
	cfg.On("GetTokenExpiration").Return(0)
	cfg.On("GetIssuer").Return("")
	cfg.On("GetAudience").Return(nil)

	auther, err := auth.NewAuthenticator(store, cfg)
	require.NoError(t, err)
	auther.WithLogger(discardLogger{}).
		WithIdentityVerifier(auth.NewUserProvider(store).WithHasher(fastHasher()))

	_, err = auther.Login(context.Background(), "alice@example.com", "pw123")
	assert.ErrorIs(t, err, auth.ErrInvalidTokenTTL)
}

func TestAuther_ActivityEvents(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUsers()
	alice := seedUser(t, store, "alice@example.com", "pw123")

	sink := &recordingSink{}
	auther := newTestAuther(t, store).WithActivitySink(sink)

	_, err := auther.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)
	_, err = auther.LoginForm(ctx, "alice@example.com", "bad")
	require.Error(t, err)

	events := sink.Events()
	require.Len(t, events, 2)

	assert.Equal(t, auth.ActivityEventLoginSuccess, events[0].EventType)
	assert.Equal(t, alice.ID.String(), events[0].UserID)
	assert.Equal(t, "json", events[0].Metadata["channel"])
	assert.False(t, events[0].OccurredAt.IsZero())

	assert.Equal(t, auth.ActivityEventLoginFailure, events[1].EventType)
	assert.Empty(t, events[1].UserID)
	assert.Equal(t, "form", events[1].Metadata["channel"])
	assert.Equal(t, "alice@example.com", events[1].Metadata["identifier"])
}

func TestAuther_SinkErrorsAreIgnored(t *testing.T) {
	store := repository.NewMemoryUsers()
	seedUser(t, store, "alice@example.com", "pw123")

	auther := newTestAuther(t, store).WithActivitySink(auth.ActivitySinkFunc(
		func(context.Context, auth.ActivityEvent) error { return errors.New("queue down") },
	))

	_, err := auther.Login(context.Background(), "alice@example.com", "pw123")
	assert.NoError(t, err)
}

func TestAuther_ClaimsDecorator(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUsers()
	seedUser(t, store, "alice@example.com", "pw123")

	t.Run("metadata is carried into the token", func(t *testing.T) {
		auther := newTestAuther(t, store).WithClaimsDecorator(auth.ClaimsDecoratorFunc(
			func(_ context.Context, user *auth.User, claims *auth.JWTClaims) error {
				claims.Metadata = map[string]any{"university": "MIT"}
				return nil
			},
		))

		res, err := auther.Login(ctx, "alice@example.com", "pw123")
		require.NoError(t, err)

		claims, err := auther.TokenService().Validate(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "MIT", claims.(*auth.JWTClaims).ClaimsMetadata()["university"])
	})

	mutations := map[string]func(*auth.JWTClaims){
		"sub":  func(c *auth.JWTClaims) { c.RegisteredClaims.Subject = "mallory@example.com" },
		"role": func(c *auth.JWTClaims) { c.UserRole = auth.RoleAdmin },
		"iss":  func(c *auth.JWTClaims) { c.Issuer = "elsewhere" },
		"aud":  func(c *auth.JWTClaims) { c.Audience = []string{"elsewhere"} },
	}

	for claim, mutate := range mutations {
		t.Run("rejects mutation of "+claim, func(t *testing.T) {
			auther := newTestAuther(t, store).WithClaimsDecorator(auth.ClaimsDecoratorFunc(
				func(_ context.Context, _ *auth.User, claims *auth.JWTClaims) error {
					mutate(claims)
					return nil
				},
			))

			res, err := auther.Login(ctx, "alice@example.com", "pw123")
			assert.Nil(t, res)
			require.Error(t, err)
			assert.Contains(t, err.Error(), claim)
		})
	}

	t.Run("decorator error aborts login", func(t *testing.T) {
		auther := newTestAuther(t, store).WithClaimsDecorator(auth.ClaimsDecoratorFunc(
			func(context.Context, *auth.User, *auth.JWTClaims) error { return errors.New("lookup failed") },
		))

		_, err := auther.Login(ctx, "alice@example.com", "pw123")
		assert.EqualError(t, err, "lookup failed")
	})
}

func TestAuther_WithTokenService(t *testing.T) {
	store := repository.NewMemoryUsers()
	seedUser(t, store, "alice@example.com", "pw123")

	tokens := new(MockTokenService)
	tokens.On("Issue", mock.AnythingOfType("*auth.JWTClaims"), 30*time.Minute).Return("signed", nil).Once()

	auther := newTestAuther(t, store).WithTokenService(tokens)
	res, err := auther.Login(context.Background(), "alice@example.com", "pw123")
	require.NoError(t, err)

	assert.Equal(t, "signed", res.AccessToken)
	assert.Equal(t, 30*time.Minute, auther.TokenExpiration())
	tokens.AssertExpectations(t)
}

func TestNewAuthenticator_RejectsBadAlgorithm(t *testing.T) {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("k")
	cfg.On("GetSigningMethod").Return("RS256")
	cfg.On("GetIssuer").Return("")
	cfg.On("GetAudience").Return(nil)

	_, err := auth.NewAuthenticator(new(MockUserStore), cfg)
	assert.Error(t, err)
}
