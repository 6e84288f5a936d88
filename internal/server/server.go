package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apikeydomain "github.com/UniqBrio/UniqBrio-sub017/internal/apikey/domain"
	auditdomain "github.com/UniqBrio/UniqBrio-sub017/internal/audit/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/config"
	ingestdomain "github.com/UniqBrio/UniqBrio-sub017/internal/ingest/domain"
	ledgerdomain "github.com/UniqBrio/UniqBrio-sub017/internal/ledger/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/logger"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/metrics"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/tracing"
	subscriptiondomain "github.com/UniqBrio/UniqBrio-sub017/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server is the HTTP boundary. It stays thin: parse, establish tenant
// context, call a service, translate the error.
type Server struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.Logger

	apikeySvc       apikeydomain.Service
	subscriptionSvc subscriptiondomain.Service
	ledgerSvc       ledgerdomain.Service
	ingestSvc       ingestdomain.Service
	auditSvc        auditdomain.Service

	httpMetrics *metrics.HTTPMetrics
	limiter     *rateLimiter
}

type Params struct {
	fx.In

	Cfg config.Config
	DB  *gorm.DB
	Log *zap.Logger

	APIKeySvc       apikeydomain.Service
	SubscriptionSvc subscriptiondomain.Service
	LedgerSvc       ledgerdomain.Service
	IngestSvc       ingestdomain.Service
	AuditSvc        auditdomain.Service

	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

func New(p Params) *Server {
	return &Server{
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		apikeySvc:       p.APIKeySvc,
		subscriptionSvc: p.SubscriptionSvc,
		ledgerSvc:       p.LedgerSvc,
		ingestSvc:       p.IngestSvc,
		auditSvc:        p.AuditSvc,
		httpMetrics:     p.HTTPMetrics,
		limiter:         newRateLimiter(p.Cfg.RateLimitPerMinute, time.Minute, rateLimiterMaxCallers),
	}
}

// Engine wires middleware and routes.
func (s *Server) Engine() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.GinMiddleware())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: []string{"/healthz"}}))
	if s.httpMetrics != nil {
		r.Use(metrics.GinMiddleware(s.httpMetrics))
	}

	r.GET("/healthz", s.Health)

	billing := r.Group("/billing")
	billing.Use(s.RateLimit(), s.APIKeyRequired())
	{
		billing.POST("/plans", s.CreatePlan)
		billing.GET("/plans/:id", s.GetPlan)
		billing.POST("/plans/:id/payments", s.ProcessPayment)
		billing.POST("/plans/:id/pause", s.PausePlan)
		billing.POST("/plans/:id/resume", s.ResumePlan)
		billing.POST("/plans/:id/cancel", s.CancelPlan)

		billing.GET("/subjects/:id/plans", s.ListSubjectPlans)
		billing.GET("/subjects/:id/transactions", s.ListSubjectTransactions)
		billing.GET("/subjects/:id/balance", s.GetSubjectBalance)
		billing.GET("/subjects/:id/invoice-breakdown", s.GetInvoiceBreakdown)
		billing.GET("/subjects/:id/summary", s.GetSubjectSummary)
		billing.PUT("/subjects/:id/fees", s.SetSubjectFees)

		billing.POST("/transactions/:id/reverse", s.ReverseTransaction)
		billing.POST("/ingest", s.IngestBatch)
	}

	return r
}

// Health reports liveness; it deliberately skips auth and tenancy.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Module starts the HTTP listener under the fx lifecycle.
var Module = fx.Module("server",
	fx.Provide(
		New,
		newHTTPMetrics,
	),
	fx.Invoke(Run),
)

func newHTTPMetrics(cfg metrics.Config, provider metric.MeterProvider) (*metrics.HTTPMetrics, error) {
	return metrics.NewHTTPMetrics(cfg, provider)
}

func Run(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.Int("port", s.cfg.HTTPPort))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
