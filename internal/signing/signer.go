package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartkeys/keyserver/internal/config"
	"go.uber.org/zap"
)

// minSecretBytes is the 128-bit floor for the signing secret.
const minSecretBytes = 16

// devFallbackSecret is deterministic on purpose so local desktop builds can
// verify against a local server without coordination.
const devFallbackSecret = "dev-only-signing-secret-change-me"

// HeaderName carries the payload signature out of band so the desktop
// client can authenticate the exact response bytes independent of TLS.
const HeaderName = "x-license-sig"

var ErrWeakSecret = errors.New("license signing secret missing or too short")

// Signer HMAC-signs license decision payloads.
type Signer struct {
	secret []byte
}

// New resolves the signing secret once at startup. Production refuses to
// boot with a weak or missing secret; development falls back loudly.
func New(cfg config.Config, log *zap.Logger) (*Signer, error) {
	secret := cfg.LicenseSigningSecret
	if len(secret) >= minSecretBytes {
		return &Signer{secret: []byte(secret)}, nil
	}

	msg := "LICENSE_SIGNING_SECRET is not set"
	if secret != "" {
		msg = fmt.Sprintf("LICENSE_SIGNING_SECRET is too short (min %d bytes)", minSecretBytes)
	}

	if cfg.IsProduction() {
		return nil, fmt.Errorf("%s: %w", msg, ErrWeakSecret)
	}

	log.Warn(msg + "; using the DEV fallback secret, do not use this in production")
	return &Signer{secret: []byte(devFallbackSecret)}, nil
}

// Sign serializes payload and returns the bytes with their base64 HMAC-SHA256
// signature. Callers must send the returned bytes untouched: re-serializing
// would invalidate the signature.
func (s *Signer) Sign(payload any) ([]byte, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	return body, s.sign(body), nil
}

// Verify recomputes the signature over body and compares in constant time.
func (s *Signer) Verify(body []byte, sig string) bool {
	return hmac.Equal([]byte(sig), []byte(s.sign(body)))
}

func (s *Signer) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
