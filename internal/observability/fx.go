package observability

import (
	obsmetrics "github.com/smartkeys/keyserver/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(func(cfg Config) obsmetrics.Config {
		return obsmetrics.Config{
			Enabled:          cfg.OtelEnabled,
			ExporterEndpoint: cfg.OtelExporterEndpoint,
			ExporterProtocol: cfg.OtelExporterProtocol,
			ServiceName:      cfg.ServiceName,
			Environment:      cfg.Environment,
		}
	}),
	fx.Provide(obsmetrics.NewProvider),
	fx.Provide(obsmetrics.New),
)
