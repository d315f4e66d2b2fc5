package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/picklepickle/picklepay/internal/audit/domain"
	"github.com/picklepickle/picklepay/internal/config"
	"github.com/picklepickle/picklepay/internal/observability"
	obslogger "github.com/picklepickle/picklepay/internal/observability/logger"
	obsmetrics "github.com/picklepickle/picklepay/internal/observability/metrics"
	obstracing "github.com/picklepickle/picklepay/internal/observability/tracing"
	paymentdomain "github.com/picklepickle/picklepay/internal/payment/domain"
	accountdomain "github.com/picklepickle/picklepay/internal/provideraccount/domain"
	"github.com/picklepickle/picklepay/internal/ratelimit"
	splitdomain "github.com/picklepickle/picklepay/internal/split/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	paymentSvc paymentdomain.Service
	webhookSvc paymentdomain.WebhookService
	accountSvc accountdomain.Service
	splitSvc   splitdomain.Service
	auditSvc   auditdomain.Service
	limiter    ratelimit.Limiter
	metrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	WebhookSvc paymentdomain.WebhookService
	AccountSvc accountdomain.Service
	SplitSvc   splitdomain.Service
	AuditSvc   auditdomain.Service       `optional:"true"`
	Limiter    *ratelimit.WebhookLimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	var limiter ratelimit.Limiter
	if p.Limiter != nil {
		limiter = p.Limiter
	}
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		paymentSvc: p.PaymentSvc,
		webhookSvc: p.WebhookSvc,
		accountSvc: p.AccountSvc,
		splitSvc:   p.SplitSvc,
		auditSvc:   p.AuditSvc,
		metrics:    p.ObsMetrics,
		limiter:    limiter,
	}
}

func RegisterRoutes(s *Server) {
	s.RegisterWebhookRoutes()
	s.RegisterAPIRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterWebhookRoutes exposes provider callbacks. VNPay delivers its IPN as a GET.
func (s *Server) RegisterWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")
	webhooks.Use(s.webhookRateLimit())
	webhooks.POST("/:provider", s.HandlePaymentWebhook)
	webhooks.GET("/:provider", s.HandlePaymentWebhook)
}

func (s *Server) RegisterAPIRoutes() {
	payments := s.engine.Group("/payments")
	payments.POST("", s.OpenPayment)
	payments.POST("/confirm-return", s.ConfirmReturn)
	payments.GET("/anomalies", s.ListAnomalies)
	payments.POST("/anomalies/:id/resolve", s.ResolveAnomaly)
	payments.GET("/:id", s.GetPayment)
	payments.POST("/:id/reconcile", s.ReconcilePayment)

	venues := s.engine.Group("/venues/:venue_id/provider-accounts")
	venues.POST("", s.BindProviderAccount)
	venues.GET("", s.ListProviderAccounts)
	venues.PUT("/:provider/status", s.SetProviderAccountStatus)
	venues.PUT("/:provider/kyc", s.SetProviderAccountKyc)

	payouts := s.engine.Group("/payouts")
	payouts.GET("/transferable", s.ListTransferable)
	payouts.POST("/splits/:id/transferred", s.RecordTransfer)
	payouts.POST("/splits/:id/failed", s.RecordTransferFailure)

	s.engine.GET("/audit-logs", s.ListAuditLogs)
}
