package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrInvalidBuyer     = errors.New("invalid_buyer")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrMissingSecret    = errors.New("webhook_secret_missing")
)

// CheckoutEvent is a provider-neutral view of a completed checkout. SessionID
// doubles as the issuance idempotency key.
type CheckoutEvent struct {
	Provider   string
	EventID    string
	SessionID  string
	UserID     string
	Paid       bool
	OccurredAt time.Time
	RawPayload []byte
}

// Adapter verifies and parses one payment provider's webhook deliveries.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*CheckoutEvent, error)
}

// Service ingests webhook deliveries from payment providers.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
