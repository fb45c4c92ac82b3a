package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atp-triage-server/internal/domain"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL, for
// deployments where multiple triage stations share one audit log.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL verdict store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL verdict store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save appends a committed verdict to the log.
func (s *PostgresStore) Save(ctx context.Context, record *domain.TriageRecord) error {
	reasonsJSON, err := json.Marshal(record.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}

	query := `
		INSERT INTO verdicts (
			id, level, disposition, reasons,
			spo2, heart_rate, systolic_bp, diastolic_bp,
			respiratory_rate, temperature, pain_score,
			consciousness, processing_time_ms, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		string(record.Level),
		record.Disposition,
		string(reasonsJSON),
		record.Vitals.OxygenSaturation,
		record.Vitals.HeartRate,
		record.Vitals.SystolicBP,
		record.Vitals.DiastolicBP,
		record.Vitals.RespiratoryRate,
		record.Vitals.Temperature,
		record.Vitals.PainScore,
		record.Consciousness,
		record.ProcessingTimeMs,
		record.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}

	return nil
}

// Get retrieves a verdict by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.TriageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+verdictColumns+" FROM verdicts WHERE id = $1", id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns verdicts newest-first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.TriageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+verdictColumns+" FROM verdicts ORDER BY evaluated_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListByLevel returns the most recent verdicts at a given level.
func (s *PostgresStore) ListByLevel(ctx context.Context, level domain.TriageLevel, limit int) ([]*domain.TriageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+verdictColumns+" FROM verdicts WHERE level = $1 ORDER BY evaluated_at DESC LIMIT $2",
		string(level), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Count returns the total number of recorded verdicts.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verdicts").Scan(&count)
	return count, err
}

// ExportJSON writes the full verdict log to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list verdicts: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Verdicts:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
