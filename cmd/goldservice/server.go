// Package main provides the gold/forex analysis service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/config"
	"github.com/goldnightmare/goldservice/internal/metrics"
	"github.com/goldnightmare/goldservice/internal/server"
)

// Server is the process-level container for the service's two HTTP
// listeners: the public/admin API and a separate metrics endpoint.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	metricsCollector *metrics.Collector

	wg sync.WaitGroup
}

// NewServer creates a Server bound to cfg. Call Start with the fully wired
// router to bring both listeners up.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start brings up the HTTP API (wrapped in the middleware chain) and the
// metrics listener. router must already have every route registered.
func (s *Server) Start(router http.Handler, collector *metrics.Collector) error {
	s.metricsCollector = collector

	if err := s.startHTTPServer(router); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

func (s *Server) startHTTPServer(router http.Handler) error {
	handler := Chain(router,
		Recovery(s.logger),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RequestID(),
		SecurityHeaders(),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// WaitForShutdown blocks until an OS signal or listener error arrives, then
// runs Shutdown.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown tears down both listeners, giving in-flight requests up to each
// manager's ShutdownTimeout to finish.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx := context.Background()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	s.wg.Wait()

	s.logger.Info("graceful shutdown completed")
}
