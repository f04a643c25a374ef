package payment

import (
	"github.com/smartkeys/keyserver/internal/config"
	"github.com/smartkeys/keyserver/internal/payment/adapters"
	"github.com/smartkeys/keyserver/internal/payment/adapters/stripe"
	"github.com/smartkeys/keyserver/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.webhook",
	fx.Provide(func(cfg config.Config) *adapters.Registry {
		return adapters.NewRegistry(
			stripe.New(cfg.StripeWebhookSecret),
		)
	}),
	fx.Provide(webhook.New),
)
