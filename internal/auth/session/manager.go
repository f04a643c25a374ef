package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/smartkeys/keyserver/internal/config"
)

const DefaultCookieName = "_sid"

var (
	ErrInvalidSession = errors.New("invalid_session")
	ErrMissingSecret  = errors.New("auth jwt secret is required")
)

// Manager verifies session tokens minted by the external auth provider.
// Sign-in itself happens elsewhere; this service only needs to know which
// account a request belongs to.
type Manager struct {
	cookieName string
	secret     []byte
}

func NewManager(cfg config.Config) (*Manager, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		// Dev fallback pairs with the auth provider emulator.
		secret = "dev-only-auth-secret-change-me"
	}
	return &Manager{
		cookieName: DefaultCookieName,
		secret:     []byte(secret),
	}, nil
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken extracts the session token from the cookie or, for API clients,
// the Authorization header.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(m.cookieName); err == nil {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			return trimmed, true
		}
	}

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		if trimmed := strings.TrimSpace(after); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// Authenticate validates the token signature and expiry and returns the
// account id from the subject claim.
func (m *Manager) Authenticate(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSession
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSession
	}
	subject, _ := claims["sub"].(string)
	if uuid.Validate(strings.TrimSpace(subject)) != nil {
		return "", ErrInvalidSession
	}
	return strings.TrimSpace(subject), nil
}
