// Package server exposes the HTTP API: message pricing and sending,
// delivery callbacks, account credit, and pricing-rule administration.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/upeosms/upeo/internal/billing/domain"
	"github.com/upeosms/upeo/internal/config"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	cfg config.Config
	log *zap.Logger
	db  *gorm.DB

	billingSvc billingdomain.Service
	pricingSvc pricingdomain.Service
	ledgerSvc  ledgerdomain.Service

	registry *prometheus.Registry
	engine   *gin.Engine
}

type ServerParam struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Engine   *gin.Engine
	Registry *prometheus.Registry

	BillingSvc billingdomain.Service
	PricingSvc pricingdomain.Service
	LedgerSvc  ledgerdomain.Service
}

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(requestLogger(log.Named("http")))
	return engine
}

const headerRequestID = "X-Request-Id"

// requestID honors a caller-supplied request id and generates one
// otherwise, so log lines and client reports can be correlated.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextRequestIDKey, id)
		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}

const contextRequestIDKey = "request_id"

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg: p.Config,
		log: p.Log.Named("server"),
		db:  p.DB,

		billingSvc: p.BillingSvc,
		pricingSvc: p.PricingSvc,
		ledgerSvc:  p.LedgerSvc,

		registry: p.Registry,
		engine:   p.Engine,
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/readyz", s.Readyz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")

	api.POST("/accounts", s.CreateAccount)
	api.GET("/accounts/:id", s.GetAccount)
	api.POST("/accounts/:id/topups", s.TopUpAccount)
	api.GET("/accounts/:id/ledger", s.ListLedgerEntries)
	api.GET("/accounts/:id/messages", s.ListAccountMessages)

	api.POST("/messages/preview", s.PreviewMessage)
	api.POST("/messages", s.SendMessage)
	api.GET("/messages/:id", s.GetMessage)
	api.POST("/messages/:id/delivery", s.ReportDelivery)

	api.GET("/pricing-rules", s.ListPricingRules)
	api.GET("/pricing-rules/global", s.GetGlobalPricingRule)
	api.PUT("/pricing-rules/global", s.PutGlobalPricingRule)
	api.PUT("/accounts/:id/pricing-rule", s.PutAccountPricingRule)
	api.DELETE("/accounts/:id/pricing-rule", s.DeleteAccountPricingRule)
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting http server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(contextRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		for _, err := range c.Errors {
			fields = append(fields, zap.Error(err.Err))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
