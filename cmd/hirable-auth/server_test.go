package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hirableedge/go-auth"
	"github.com/hirableedge/go-auth/activitymap"
	"github.com/hirableedge/go-auth/config"
)

func testConfig() config.Config {
	return config.Config{
		Env: config.EnvDevelopment,
		Auth: config.AuthConfig{
			SecretKey:                "test-secret",
			Algorithm:                "HS256",
			AccessTokenExpireMinutes: 30,
			BcryptCost:               bcrypt.MinCost,
			ContextKey:               "user",
			TokenLookup:              "header:Authorization",
			Scheme:                   "Bearer",
		},
		DB:   config.DBConfig{Driver: config.DriverMemory},
		HTTP: config.HTTPConfig{Addr: ":0", CORSOrigins: []string{"http://localhost:5173"}, PhoneRegion: "US", ShutdownGrace: 1},
		Log:  config.LogConfig{Level: "error", Format: "json"},
	}
}

func TestServer_RegisterLoginMe(t *testing.T) {
	cfg := testConfig()
	srv, err := newServer(context.Background(), cfg, auth.NewLevelLogger("test", "error", "json"))
	require.NoError(t, err)
	defer srv.Close()

	req := httptest.NewRequest(fiber.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"alice@example.com","password":"pw123","first_name":"Alice","last_name":"Smith"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	res, err := srv.http.WrappedRouter().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/api/auth/token",
		strings.NewReader("grant_type=password&username=alice@example.com&password=pw123"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	res, err = srv.http.WrappedRouter().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var token auth.TokenResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&token))
	assert.Equal(t, auth.TokenTypeBearer, token.TokenType)
	assert.Equal(t, int64(1800), token.ExpiresIn)

	req = httptest.NewRequest(fiber.MethodGet, "/api/users/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token.AccessToken)
	res, err = srv.http.WrappedRouter().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var me auth.UserResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&me))
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, auth.RoleStudent, me.Role)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, err := newServer(context.Background(), testConfig(), auth.NewLevelLogger("test", "error", "json"))
	require.NoError(t, err)
	defer srv.Close()

	req := httptest.NewRequest(fiber.MethodOptions, "/api/auth/login", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, fiber.MethodPost)
	res, err := srv.http.WrappedRouter().Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, res.StatusCode)
	assert.Equal(t, "http://localhost:5173", res.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestAllowCredentials(t *testing.T) {
	assert.True(t, allowCredentials([]string{"http://localhost:5173"}))
	assert.False(t, allowCredentials([]string{"*"}))
	assert.False(t, allowCredentials(nil))
}

func TestActivitySink(t *testing.T) {
	_, ok := activitySink(auth.NewLevelLogger("test", "error", "json")).(*activitymap.Sink)
	assert.True(t, ok)

	_, ok = activitySink(nopLogger{}).(*auth.LoggerActivitySink)
	assert.True(t, ok)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
