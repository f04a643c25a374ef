package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/smartkeys/keyserver/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-auth-secret"

func TestAuthenticateValidToken(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.NewString()

	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	got, err := m.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.NewString()

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"expired", mintToken(t, testSecret, jwt.MapClaims{
			"sub": userID,
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"wrong secret", mintToken(t, "other-secret", jwt.MapClaims{
			"sub": userID,
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"non-uuid subject", mintToken(t, testSecret, jwt.MapClaims{
			"sub": "not-a-uuid",
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"missing subject", mintToken(t, testSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Authenticate(tc.token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestAuthenticateRejectsUnsignedToken(t *testing.T) {
	m := newTestManager(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Authenticate(signed)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestReadTokenFromCookieAndHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager(t)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/licenses", nil)
	_, ok := m.ReadToken(c)
	assert.False(t, ok)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/licenses", nil)
	c.Request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie-token"})
	token, ok := m.ReadToken(c)
	require.True(t, ok)
	assert.Equal(t, "cookie-token", token)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/licenses", nil)
	c.Request.Header.Set("Authorization", "Bearer header-token")
	token, ok = m.ReadToken(c)
	require.True(t, ok)
	assert.Equal(t, "header-token", token)
}

func TestNewManagerSecretPolicy(t *testing.T) {
	_, err := NewManager(config.Config{Environment: config.EnvProduction})
	assert.ErrorIs(t, err, ErrMissingSecret)

	m, err := NewManager(config.Config{Environment: config.EnvDevelopment})
	require.NoError(t, err)
	assert.NotEmpty(t, m.secret)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(config.Config{
		Environment:   config.EnvDevelopment,
		AuthJWTSecret: testSecret,
	})
	require.NoError(t, err)
	return m
}

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}
