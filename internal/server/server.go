package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authsession "github.com/smartkeys/keyserver/internal/auth/session"
	"github.com/smartkeys/keyserver/internal/config"
	"github.com/smartkeys/keyserver/internal/license"
	licensedomain "github.com/smartkeys/keyserver/internal/license/domain"
	"github.com/smartkeys/keyserver/internal/observability"
	obslogger "github.com/smartkeys/keyserver/internal/observability/logger"
	obsmetrics "github.com/smartkeys/keyserver/internal/observability/metrics"
	"github.com/smartkeys/keyserver/internal/payment"
	paymentdomain "github.com/smartkeys/keyserver/internal/payment/domain"
	"github.com/smartkeys/keyserver/internal/ratelimit"
	"github.com/smartkeys/keyserver/internal/release"
	releasedomain "github.com/smartkeys/keyserver/internal/release/domain"
	"github.com/smartkeys/keyserver/internal/signing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authsession.Module,
	signing.Module,
	license.Module,
	payment.Module,
	release.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

type Params struct {
	fx.In

	Engine     *gin.Engine
	Cfg        config.Config
	LicenseSvc licensedomain.Service
	WebhookSvc paymentdomain.Service
	ReleaseSvc releasedomain.Service
	Signer     *signing.Signer
	Sessions   *authsession.Manager
	Limiter    *ratelimit.LicenseLimiter `optional:"true"`
	Metrics    *obsmetrics.Metrics       `optional:"true"`
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	licenseSvc licensedomain.Service
	webhookSvc paymentdomain.Service
	releaseSvc releasedomain.Service
	signer     *signing.Signer
	sessions   *authsession.Manager
	limiter    *ratelimit.LicenseLimiter
	metrics    *obsmetrics.Metrics
}

func NewServer(p Params) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Cfg,
		licenseSvc: p.LicenseSvc,
		webhookSvc: p.WebhookSvc,
		releaseSvc: p.ReleaseSvc,
		signer:     p.Signer,
		sessions:   p.Sessions,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
	}
}

// RegisterRoutes wires the public API surface.
func (s *Server) RegisterRoutes() {
	r := s.engine

	// Device-facing endpoints: the license key is the only credential.
	r.POST("/licenses/activate", s.RateLimit("activate", s.limiter.AllowActivate), s.HandleActivate)
	r.GET("/licenses/verify", s.RateLimit("verify", s.limiter.AllowVerify), s.HandleVerify)

	// Owner endpoints behind the auth provider session.
	owner := r.Group("/licenses", s.AuthRequired())
	owner.GET("", s.HandleListLicenses)
	owner.POST("/test", s.HandleCreateTestLicense)
	owner.POST("/:id/revoke", s.HandleRevoke)
	owner.POST("/:id/unbind", s.HandleUnbind)
	owner.DELETE("/:id/delete", s.HandleDeleteLicense)

	r.POST("/payments/webhook", s.HandlePaymentWebhook)
	r.POST("/payments/webhook/:provider", s.HandlePaymentWebhook)

	r.GET("/releases/latest", s.HandleLatestRelease)
}

func NewEngine(obsCfg observability.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
