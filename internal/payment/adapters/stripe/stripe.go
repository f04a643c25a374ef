package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smartkeys/keyserver/internal/payment/domain"
)

// signatureTolerance bounds the age of a delivery. The timestamp is part of
// the signed payload, so a replayed capture carries a valid signature but an
// old t=. Matches the tolerance Stripe's own SDKs enforce.
const signatureTolerance = 5 * time.Minute

// Adapter verifies and parses Stripe webhook deliveries. Only
// checkout.session.completed issues licenses; every other event type is
// acknowledged and ignored.
type Adapter struct {
	webhookSecret string
}

func New(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Provider() string {
	return "stripe"
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return domain.ErrMissingSecret
	}

	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	if time.Since(time.Unix(ts, 0)) > signatureTolerance {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return domain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.CheckoutEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	if strings.TrimSpace(event.Type) != "checkout.session.completed" {
		return nil, domain.ErrEventIgnored
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	userID := strings.TrimSpace(session.Metadata["user_id"])
	if userID == "" {
		userID = strings.TrimSpace(session.ClientReferenceID)
	}
	if userID == "" {
		return nil, domain.ErrInvalidBuyer
	}

	paid := session.PaymentStatus == "paid" || session.Status == "complete"

	return &domain.CheckoutEvent{
		Provider:   "stripe",
		EventID:    event.ID,
		SessionID:  session.ID,
		UserID:     userID,
		Paid:       paid,
		OccurredAt: timestamp(event.Created),
		RawPayload: payload,
	}, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID                string            `json:"id"`
	PaymentStatus     string            `json:"payment_status"`
	Status            string            `json:"status"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(value int64) time.Time {
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
