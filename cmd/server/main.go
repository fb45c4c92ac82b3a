// Package main is the HTTP triage server entry point.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atp-triage-server/internal/api"
	"github.com/atp-triage-server/internal/audit"
	"github.com/atp-triage-server/internal/cache"
	"github.com/atp-triage-server/internal/config"
	"github.com/atp-triage-server/internal/database"
	"github.com/atp-triage-server/internal/repository"
	"github.com/atp-triage-server/internal/service"
)

// retentionSweepInterval is how often the purge job re-checks the verdict
// log against the configured retention window.
const retentionSweepInterval = 6 * time.Hour

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting ATP triage server")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Verdict audit store
	store, err := newAuditStore(configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create verdict audit store")
	}
	defer store.Close()

	// Verdict cache
	verdictCache, closeCache, err := newVerdictCache(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create verdict cache")
	}
	defer closeCache()

	classifier := service.NewClassifierService(logger,
		service.WithAuditStore(store),
		service.WithVerdictCache(verdictCache))

	// Read-side repository and retention purge, postgres backend only.
	var serverOpts []api.ServerOption
	if cfg.Audit.Backend == "postgres" {
		db, err := database.NewConnection(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			Database:    cfg.Database.Database,
			Username:    cfg.Database.Username,
			Password:    cfg.Database.Password,
			MaxConns:    int32(cfg.Database.MaxOpenConns),
			MinConns:    int32(cfg.Database.MaxIdleConns),
			MaxConnLife: cfg.Database.ConnMaxLifetime,
			MaxConnIdle: 30 * time.Minute,
			SSLMode:     cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create verdict database pool")
		}
		defer db.Close()

		repo := repository.NewVerdictRepository(db.Pool, logger)
		serverOpts = append(serverOpts, api.WithVerdictReader(repo))

		if cfg.Audit.Retention > 0 {
			go runRetention(ctx, repo, cfg.Audit.Retention, logger)
		}
	}

	server := api.NewServer(cfg, classifier, logger, serverOpts...)

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// runRetention purges verdicts older than the retention window until the
// context is cancelled.
func runRetention(ctx context.Context, repo *repository.VerdictRepository, retention time.Duration, logger *logrus.Logger) {
	logger.WithField("retention", retention).Info("Verdict retention purge enabled")

	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()

	for {
		if _, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention)); err != nil {
			logger.WithError(err).Warn("Verdict retention purge failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newAuditStore(configManager *config.Manager, logger *logrus.Logger) (audit.Store, error) {
	cfg := configManager.GetConfig()
	switch cfg.Audit.Backend {
	case "postgres":
		// Bring the verdict schema up to date before serving.
		runner, err := database.NewMigrationRunner(
			configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			return nil, err
		}
		if err := runner.Up(); err != nil {
			runner.Close()
			return nil, err
		}
		if err := runner.Close(); err != nil {
			return nil, err
		}
		return audit.NewPostgresStoreFromURL(configManager.GetDatabaseURL())
	case "memory":
		return audit.NewMemoryStore(), nil
	default:
		return audit.NewSQLiteStore(cfg.Audit.SQLitePath)
	}
}

func newVerdictCache(cfg *config.Config, logger *logrus.Logger) (cache.VerdictCache, func(), error) {
	if cfg.Cache.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, nil, err
		}
		return redisCache, func() { redisCache.Close() }, nil
	}

	memCache, err := cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Cache.TTL)
	if err != nil {
		return nil, nil, err
	}
	return memCache, func() {}, nil
}
