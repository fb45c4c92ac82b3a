// Package mcp exposes the triage classifier to AI agents over the Model
// Context Protocol. The lite server runs standalone: in-memory verdict
// cache, SQLite audit log, stdio transport.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/atp-triage-server/internal/audit"
	"github.com/atp-triage-server/internal/cache"
	"github.com/atp-triage-server/internal/config"
	"github.com/atp-triage-server/internal/service"
)

// LiteServer is a lightweight MCP server that requires no external
// databases.
type LiteServer struct {
	config     *config.LiteConfig
	mcpServer  *sdkmcp.Server
	classifier *service.ClassifierService
	store      audit.Store
	logger     *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithAuditStore sets a custom verdict audit store.
func WithAuditStore(store audit.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *config.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logrus.New(),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	server.logger.SetLevel(level)

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.store == nil {
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := audit.NewSQLiteStore(cfg.VerdictDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create verdict store: %w", err)
		}
		server.store = store
	}

	verdictCache, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict cache: %w", err)
	}

	server.classifier = service.NewClassifierService(server.logger,
		service.WithAuditStore(server.store),
		service.WithVerdictCache(verdictCache))

	server.mcpServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "atp-triage-server", Version: "v1.0.0"},
		nil,
	)
	server.registerTools()

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// Run serves MCP over stdio until the context is cancelled.
func (s *LiteServer) Run(ctx context.Context) error {
	s.logger.Info("Starting ATP triage MCP server")

	if err := s.mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close verdict store")
			return err
		}
	}
	return nil
}

// MCPServer exposes the SDK server, used by the in-memory transport tests.
func (s *LiteServer) MCPServer() *sdkmcp.Server {
	return s.mcpServer
}
