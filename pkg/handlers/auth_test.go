package handlers

import (
	"net/http"
	"testing"

	"mm-schedule-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "sup3rsecret",
		"name":     "Alice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var registered models.UserLoginResponse
	decodeData(t, rec, &registered)
	assert.NotEmpty(t, registered.User.ID)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	// The stored hash never equals the plaintext and never leaks.
	stored, err := env.db.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "sup3rsecret", stored.Password)
	assert.NotContains(t, rec.Body.String(), "sup3rsecret")

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "sup3rsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var loggedIn models.UserLoginResponse
	decodeData(t, rec, &loggedIn)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "sup3rsecret",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "bob@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]string{"email": "alice@example.com", "password": "sup3rsecret"}
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "sup3rsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "sup3rsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var registered models.UserLoginResponse
	decodeData(t, rec, &registered)

	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": registered.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	decodeData(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Greater(t, refreshed.ExpiresIn, int64(0))

	// An access token cannot be used as a refresh token.
	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": registered.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
