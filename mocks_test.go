package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/hirableedge/go-auth"
)

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByIdentity(ctx context.Context, identity string) (*auth.User, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserStore) Insert(ctx context.Context, user *auth.User) (uuid.UUID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockUserStore) UpdateFields(ctx context.Context, id uuid.UUID, patch auth.UserPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// MockConfig implements auth.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSigningMethod() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenLookup() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAuthScheme() string {
	args := m.Called()
	return args.String(0)
}

func newMockConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("test-signing-key").Maybe()
	cfg.On("GetSigningMethod").Return("HS256").Maybe()
	cfg.On("GetTokenExpiration").Return(30).Maybe()
	cfg.On("GetIssuer").Return("").Maybe()
	cfg.On("GetAudience").Return(nil).Maybe()
	cfg.On("GetContextKey").Return("").Maybe()
	cfg.On("GetTokenLookup").Return("").Maybe()
	cfg.On("GetAuthScheme").Return("").Maybe()
	return cfg
}

// MockIdentityVerifier implements auth.IdentityVerifier
type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) Authenticate(ctx context.Context, identity, password string) (*auth.User, bool, error) {
	args := m.Called(ctx, identity, password)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*auth.User), args.Bool(1), args.Error(2)
}

// MockTokenService implements auth.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Issue(claims *auth.JWTClaims, ttl time.Duration) (string, error) {
	args := m.Called(claims, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(token string) (auth.AuthClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.AuthClaims), args.Error(1)
}

// recordingSink keeps every event it receives
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Events() []auth.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEvent, len(r.events))
	copy(out, r.events)
	return out
}

// discardLogger drops everything
type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

func fastHasher() *auth.BcryptHasher {
	return auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost))
}

func newTestUser(email, password string) *auth.User {
	hash, err := fastHasher().Hash(password)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	return &auth.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleStudent,
		IsActive:     true,
		Profile:      auth.UserProfile{FirstName: "Alice", LastName: "Smith"},
		Progress:     auth.NewUserProgress(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
