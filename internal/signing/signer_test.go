package signing

import (
	"errors"
	"testing"

	"github.com/smartkeys/keyserver/internal/config"
	"go.uber.org/zap"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := New(config.Config{
		Environment:          config.EnvDevelopment,
		LicenseSigningSecret: "0123456789abcdef0123456789abcdef",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	body, sig, err := s.Sign(map[string]any{"ok": true, "bound": false})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig == "" {
		t.Fatal("expected non-empty signature")
	}
	if !s.Verify(body, sig) {
		t.Fatal("signature did not verify against its own payload")
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	s := &Signer{secret: []byte("0123456789abcdef")}

	body, sig, err := s.Sign(map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] ^= 0x01
	if s.Verify(tampered, sig) {
		t.Fatal("tampered body verified")
	}
	if s.Verify(body, sig+"A") {
		t.Fatal("tampered signature verified")
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a := &Signer{secret: []byte("aaaaaaaaaaaaaaaa")}
	b := &Signer{secret: []byte("bbbbbbbbbbbbbbbb")}

	body, sig, err := a.Sign(map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if b.Verify(body, sig) {
		t.Fatal("signature verified under a different secret")
	}
}

func TestNewRefusesWeakSecretInProduction(t *testing.T) {
	cases := []string{"", "short"}
	for _, secret := range cases {
		_, err := New(config.Config{
			Environment:          config.EnvProduction,
			LicenseSigningSecret: secret,
		}, zap.NewNop())
		if !errors.Is(err, ErrWeakSecret) {
			t.Fatalf("secret %q: expected ErrWeakSecret, got %v", secret, err)
		}
	}
}

func TestNewFallsBackInDevelopment(t *testing.T) {
	s, err := New(config.Config{Environment: config.EnvDevelopment}, zap.NewNop())
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if string(s.secret) != devFallbackSecret {
		t.Fatal("expected dev fallback secret")
	}
}
