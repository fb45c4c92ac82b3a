// Package api exposes the triage classifier over HTTP: a classification
// endpoint, verdict lookups against the audit log, a live verdict stream
// over WebSocket, and a health probe.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/atp-triage-server/internal/config"
	"github.com/atp-triage-server/internal/domain"
	"github.com/atp-triage-server/internal/middleware"
	"github.com/atp-triage-server/internal/service"
)

// VerdictReader is the read side over the shared verdict log, served by the
// pgx repository when the postgres audit backend is configured. Listing and
// stats queries prefer it over the audit store.
type VerdictReader interface {
	ListRecent(ctx context.Context, limit, offset int) ([]*domain.TriageRecord, error)
	ListByLevel(ctx context.Context, level domain.TriageLevel, limit int) ([]*domain.TriageRecord, error)
	CountByLevel(ctx context.Context) (map[domain.TriageLevel]int64, error)
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	classifier *service.ClassifierService
	reader     VerdictReader
	log        *logrus.Logger
	router     *gin.Engine
	server     *http.Server
	hub        *StreamHub
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithVerdictReader routes verdict list and stats queries through a
// read-side repository instead of the audit store.
func WithVerdictReader(reader VerdictReader) ServerOption {
	return func(s *Server) { s.reader = reader }
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, classifier *service.ClassifierService, logger *logrus.Logger, opts ...ServerOption) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(corsMiddleware())
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(limiter.Handler())
	}

	server := &Server{
		config:     cfg,
		classifier: classifier,
		log:        logger,
		router:     router,
		hub:        NewStreamHub(logger),
	}

	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine, used by the HTTP tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/triage", s.handleTriage)
		v1.POST("/validate", s.handleValidate)
		v1.GET("/verdicts/:id", s.handleGetVerdict)
		v1.GET("/verdicts", s.handleListVerdicts)
		v1.GET("/stats", s.handleStats)
	}

	s.router.GET("/ws/verdicts", s.handleVerdictStream)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
