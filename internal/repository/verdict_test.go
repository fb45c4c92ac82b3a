package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/atp-triage-server/internal/database"
	"github.com/atp-triage-server/internal/domain"
)

func setupRepository(t *testing.T) (*VerdictRepository, *database.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("triage_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "triage_test",
		Username:    "testuser",
		Password:    "testpass",
		MaxConns:    5,
		MinConns:    1,
		MaxConnLife: time.Hour,
		MaxConnIdle: 30 * time.Minute,
		SSLMode:     "disable",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	databaseURL := fmt.Sprintf("postgres://testuser:testpass@%s:%d/triage_test?sslmode=disable",
		host, port.Int())
	runner, err := database.NewMigrationRunner(databaseURL, "../database/migrations", logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up())
	require.NoError(t, runner.Close())

	return NewVerdictRepository(db.Pool, logger), db
}

func insertVerdict(t *testing.T, db *database.DB, level domain.TriageLevel, reasons string, evaluatedAt time.Time) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO verdicts (
			id, level, disposition, reasons,
			spo2, heart_rate, systolic_bp, diastolic_bp,
			respiratory_rate, temperature, pain_score,
			consciousness, processing_time_ms, evaluated_at
		) VALUES ($1, $2, $3, $4, 98, 80, 120, 80, 16, 37.0, 0, 'ALERT', 1, $5)`,
		id, string(level), level.Disposition(), reasons, evaluatedAt)
	require.NoError(t, err)
	return id
}

func TestVerdictRepository(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()
	base := time.Now().UTC()

	redID := insertVerdict(t, db, domain.RED,
		fmt.Sprintf(`[%q]`, domain.ReasonAirway), base)
	greenID := insertVerdict(t, db, domain.GREEN,
		fmt.Sprintf(`[%q]`, domain.ReasonDefaultGreen), base.Add(-time.Hour))
	insertVerdict(t, db, domain.RED,
		fmt.Sprintf(`[%q]`, domain.ReasonCirculation), base.Add(-2*time.Hour))

	t.Run("GetByID", func(t *testing.T) {
		rec, err := repo.GetByID(ctx, redID)
		require.NoError(t, err)
		assert.Equal(t, domain.RED, rec.Level)
		assert.Equal(t, []string{domain.ReasonAirway}, rec.Reasons)
		assert.Equal(t, "ALERT", rec.Consciousness)
	})

	t.Run("GetByID missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New().String())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListRecent", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, redID, records[0].ID)
		assert.Equal(t, greenID, records[1].ID)
	})

	t.Run("ListByLevel", func(t *testing.T) {
		records, err := repo.ListByLevel(ctx, domain.RED, 10)
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, rec := range records {
			assert.Equal(t, domain.RED, rec.Level)
		}
	})

	t.Run("CountByLevel", func(t *testing.T) {
		counts, err := repo.CountByLevel(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[domain.RED])
		assert.Equal(t, int64(1), counts[domain.GREEN])
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		removed, err := repo.DeleteOlderThan(ctx, base.Add(-90*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		records, err := repo.ListRecent(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}
