package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mm-schedule-backend/pkg/config"
	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		JWTSecret:   "test-secret",
	}
}

// echoUser reports whether a user landed in the request context.
func echoUser(t *testing.T, captured **models.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := GetUserFromContext(r.Context()); ok {
			*captured = user
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	cfg := testConfig()
	access, _, err := utils.NewJWTService(cfg.JWTSecret).GenerateAccessToken("user-1", "alice@example.com")
	require.NoError(t, err)

	var captured *models.User
	handler := AuthMiddleware(cfg)(echoUser(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/projects/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-1", captured.ID)
	assert.Equal(t, "alice@example.com", captured.Email)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	cfg := testConfig()
	handler := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projects/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	cfg := testConfig()
	_, refresh, _, err := utils.NewJWTService(cfg.JWTSecret).GenerateTokenPair("user-1", "alice@example.com")
	require.NoError(t, err)

	handler := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	access, _, err := utils.NewJWTService(cfg.JWTSecret).GenerateAccessToken("user-1", "alice@example.com")
	require.NoError(t, err)

	// Anonymous request passes through with no user.
	var captured *models.User
	handler := OptionalAuthMiddleware(cfg)(echoUser(t, &captured))
	req := httptest.NewRequest(http.MethodGet, "/api/share/tok", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, captured)

	// Invalid token also passes through anonymously.
	req = httptest.NewRequest(http.MethodGet, "/api/share/tok", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, captured)

	// Valid token injects the user.
	req = httptest.NewRequest(http.MethodGet, "/api/share/tok", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-1", captured.ID)
}
