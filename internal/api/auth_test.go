package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestRegisterLoginLogout(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":      "chef@example.com",
		"username":   "chef",
		"first_name": "Julia",
		"last_name":  "Child",
		"password":   "boeuf-bourguignon",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]interface{}](t, w)
	assert.Equal(t, "chef", created["username"])
	assert.NotEmpty(t, created["id"])
	assert.NotContains(t, created, "password")

	w = s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "chef@example.com", "password": "boeuf-bourguignon",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[types.TokenResponse](t, w).AuthToken
	require.NotEmpty(t, token)

	w = s.do(http.MethodGet, "/api/v1/users/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/users/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "not-an-email",
		"username": "bad name!",
		"password": "short",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[middleware.ErrorResponse](t, w)
	assert.Equal(t, "validation", body.Error)
	for _, field := range []string{"email", "username", "first_name", "last_name", "password"} {
		assert.Contains(t, body.Fields, field)
	}
}

func TestRegisterUsernameCharacters(t *testing.T) {
	s := newTestServer(t, nil)
	register := func(email, username string) int {
		return s.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email": email, "username": username,
			"first_name": "A", "last_name": "B", "password": "long-enough",
		}, "").Code
	}

	assert.Equal(t, http.StatusCreated, register("one@example.com", "chef.one@home-1_x"))
	assert.Equal(t, http.StatusBadRequest, register("two@example.com", "chef+one"))
}

func TestRegisterMalformedBody(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodPost, "/api/v1/auth/register", `{"email": `, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed request body", decode[middleware.ErrorResponse](t, w).Message)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "a@example.com", "username": "a", "first_name": "A", "last_name": "B", "password": "long-enough",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "a@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication", decode[middleware.ErrorResponse](t, w).Error)
}
