package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	licensedomain "github.com/smartkeys/keyserver/internal/license/domain"
	obsmetrics "github.com/smartkeys/keyserver/internal/observability/metrics"
	"github.com/smartkeys/keyserver/internal/payment/adapters"
	"github.com/smartkeys/keyserver/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	LicenseSvc licensedomain.Service
	Adapters   *adapters.Registry
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	licenseSvc licensedomain.Service
	adapters   *adapters.Registry
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		licenseSvc: p.LicenseSvc,
		adapters:   p.Adapters,
		metrics:    p.Metrics,
	}
}

// IngestWebhook authenticates a delivery and issues a license on a paid
// checkout. Signature and identity failures are final (the sender must not
// retry); only store failures propagate as retryable. Issuance is idempotent
// on the session id, so redelivery acks cleanly.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.ErrInvalidProvider
	}
	adapter, ok := s.adapters.Get(provider)
	if !ok {
		return domain.ErrProviderNotFound
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider), zap.Error(err))
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			return nil
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(ctx, provider)
	}

	if !event.Paid {
		s.log.Warn("checkout session not paid, skipping",
			zap.String("provider", provider),
			zap.String("session_id", event.SessionID),
		)
		return nil
	}

	_, err = s.licenseSvc.Issue(ctx, licensedomain.IssueRequest{
		UserID:     event.UserID,
		ExternalID: event.SessionID,
		Source:     provider,
	})
	if err != nil {
		if errors.Is(err, licensedomain.ErrInvalidUser) {
			s.log.Warn("webhook buyer identity malformed",
				zap.String("provider", provider),
				zap.String("session_id", event.SessionID),
			)
			return domain.ErrInvalidBuyer
		}
		return err
	}

	return nil
}
