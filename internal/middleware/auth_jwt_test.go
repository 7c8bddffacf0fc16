package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop/internal/config"
	"shop/internal/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	assert.NoError(t, err)
	return s
}

func invoke(t *testing.T, authz string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	mw := middleware.AuthJWT(config.Config{JWTSecret: testSecret})
	h := mw(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})

	err := h(c)
	assert.NoError(t, err)
	return rec, c, reached
}

func TestAuthJWT_ValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   int64(42),
		"email": "a@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	rec, c, reached := invoke(t, "Bearer "+token)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), c.Get(middleware.CtxUserIDKey))
	assert.Equal(t, "a@example.com", c.Get(middleware.CtxUserEmailKey))
}

func TestAuthJWT_MissingHeader(t *testing.T) {
	rec, _, reached := invoke(t, "")

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_NotBearer(t *testing.T) {
	rec, _, reached := invoke(t, "Basic abcdef")

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_WrongSecret(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   int64(42),
		"email": "a@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}, "other-secret")

	rec, _, reached := invoke(t, "Bearer "+token)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_ExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   int64(42),
		"email": "a@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	}, testSecret)

	rec, _, reached := invoke(t, "Bearer "+token)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_MissingEmailClaim(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": int64(42),
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	rec, _, reached := invoke(t, "Bearer "+token)

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
