// Package server wires the public API server and the operations server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/infrastructure/http/handlers"
	"github.com/platewise/engine/internal/infrastructure/http/middleware"
	"github.com/platewise/engine/internal/infrastructure/monitoring"
	"github.com/platewise/engine/pkg/healthcheck"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Server represents the API server
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	engine     *gin.Engine
	server     *http.Server
	middleware *middleware.Middleware
}

// NewServer creates the gin API server with the full middleware chain
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *monitoring.MetricsCollector,
	search *handlers.SearchHandlers,
	recommendations *handlers.RecommendationHandlers,
) *Server {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			logger.Warn("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.HandleMethodNotAllowed = true

	mw := middleware.New(cfg, logger)
	engine.Use(mw.Chain()...)
	if metrics != nil {
		engine.Use(metrics.GinMiddleware())
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.APIResponse{Success: false, Error: "Resource not found", Code: "NOT_FOUND"})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handlers.APIResponse{Success: false, Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	v1 := engine.Group("/api/v1")
	search.RegisterRoutes(v1)
	recommendations.RegisterRoutes(v1)

	return &Server{
		config:     cfg,
		logger:     logger.Named("api-server"),
		engine:     engine,
		middleware: mw,
		server: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        engine,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}
}

// ApplyConfig applies the runtime-adjustable parts of a reloaded config
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.middleware.UpdateRateLimit(cfg.RateLimit)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting API server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	if err := http2.ConfigureServer(s.server, nil); err != nil {
		s.logger.Error("Failed to configure HTTP/2", zap.Error(err))
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.Shutdown(ctx)
}

// OpsServer serves metrics, probes and the API document on a separate port
type OpsServer struct {
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewOpsServer creates the chi operations server
func NewOpsServer(cfg *config.Config, logger *zap.Logger, metrics *monitoring.MetricsCollector, health *healthcheck.HealthCheck) *OpsServer {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.SetHeader("X-Content-Type-Options", "nosniff"))

	r.Get(cfg.Monitoring.HealthCheckPath, health.LivenessHandler())
	r.Get(cfg.Monitoring.ReadinessPath, health.ReadinessHandler())
	if cfg.Monitoring.EnableMetrics && metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	docs := NewOpenAPIHandler(logger)
	r.Get("/openapi.yaml", docs.ServeOpenAPISpec)

	return &OpsServer{
		logger: logger.Named("ops-server"),
		router: r,
		server: &http.Server{
			Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Monitoring.MetricsPort),
			Handler:     r,
			ReadTimeout: cfg.Server.ReadTimeout,
			IdleTimeout: cfg.Server.IdleTimeout,
		},
	}
}

// Handler exposes the router, mainly for tests
func (s *OpsServer) Handler() http.Handler {
	return s.router
}

// Start starts the operations server and blocks until it stops
func (s *OpsServer) Start() error {
	s.logger.Info("Starting operations server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the operations server
func (s *OpsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down operations server")
	return s.server.Shutdown(ctx)
}
