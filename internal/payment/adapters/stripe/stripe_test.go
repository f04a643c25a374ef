package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/smartkeys/keyserver/internal/payment/domain"
)

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := New("whsec_test")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	headers := http.Header{}
	headers.Set("Stripe-Signature", buildSignatureHeader("whsec_test", payload, time.Now().Unix()))

	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	adapter := New("whsec_test")
	payload := []byte(`{"id":"evt_1"}`)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage header", "not-a-signature"},
		{"wrong secret", buildSignatureHeader("whsec_other", payload, time.Now().Unix())},
		{"missing timestamp", "v1=deadbeef"},
		{"missing v1", fmt.Sprintf("t=%d", time.Now().Unix())},
		{"non-numeric timestamp", "t=yesterday,v1=deadbeef"},
		{"stale timestamp", buildSignatureHeader("whsec_test", payload, time.Now().Add(-10*time.Minute).Unix())},
	}
	for _, tc := range cases {
		headers := http.Header{}
		if tc.header != "" {
			headers.Set("Stripe-Signature", tc.header)
		}
		if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Fatalf("%s: expected ErrInvalidSignature, got %v", tc.name, err)
		}
	}
}

func TestVerifyRequiresConfiguredSecret(t *testing.T) {
	adapter := New("")
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1,v1=deadbeef")

	if err := adapter.Verify(context.Background(), []byte(`{}`), headers); !errors.Is(err, domain.ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestParseCheckoutCompleted(t *testing.T) {
	adapter := New("whsec_test")
	now := time.Now().UTC().Truncate(time.Second)
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"checkout.session.completed","created":%d,"data":{"object":{"id":"cs_1","payment_status":"paid","metadata":{"user_id":"11111111-2222-3333-4444-555555555555"}}}}`,
		now.Unix(),
	))

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.EventID != "evt_1" || event.SessionID != "cs_1" {
		t.Fatalf("unexpected ids: %+v", event)
	}
	if event.UserID != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("unexpected user id %q", event.UserID)
	}
	if !event.Paid {
		t.Fatal("expected paid event")
	}
	if !event.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %s, got %s", now, event.OccurredAt)
	}
}

func TestParseFallsBackToClientReferenceID(t *testing.T) {
	adapter := New("whsec_test")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid","client_reference_id":"11111111-2222-3333-4444-555555555555"}}}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.UserID != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("unexpected user id %q", event.UserID)
	}
}

func TestParseUnpaidSession(t *testing.T) {
	adapter := New("whsec_test")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"unpaid","status":"open","metadata":{"user_id":"u"}}}}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Paid {
		t.Fatal("expected unpaid event")
	}
}

func TestParseIgnoresOtherEventTypes(t *testing.T) {
	adapter := New("whsec_test")
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)

	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, domain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseRejectsMalformedPayloads(t *testing.T) {
	adapter := New("whsec_test")

	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"not json", `{`, domain.ErrInvalidPayload},
		{"missing event id", `{"type":"checkout.session.completed"}`, domain.ErrInvalidEvent},
		{"missing session id", `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`, domain.ErrInvalidEvent},
		{"missing buyer", `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid"}}}`, domain.ErrInvalidBuyer},
	}
	for _, tc := range cases {
		if _, err := adapter.Parse(context.Background(), []byte(tc.payload)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func buildSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}
