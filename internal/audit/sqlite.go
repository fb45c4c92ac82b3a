package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/atp-triage-server/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite, for standalone
// deployments with no database server.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite verdict store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS verdicts (
		id TEXT PRIMARY KEY,
		level TEXT NOT NULL,
		disposition TEXT NOT NULL,
		reasons TEXT NOT NULL,
		spo2 REAL NOT NULL,
		heart_rate REAL NOT NULL,
		systolic_bp REAL NOT NULL,
		diastolic_bp REAL NOT NULL,
		respiratory_rate REAL NOT NULL,
		temperature REAL NOT NULL,
		pain_score INTEGER NOT NULL,
		consciousness TEXT NOT NULL,
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		evaluated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_level ON verdicts(level);
	CREATE INDEX IF NOT EXISTS idx_verdicts_evaluated_at ON verdicts(evaluated_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const verdictColumns = `id, level, disposition, reasons,
	spo2, heart_rate, systolic_bp, diastolic_bp,
	respiratory_rate, temperature, pain_score,
	consciousness, processing_time_ms, evaluated_at`

// scanRecord scans a row into a TriageRecord, decoding the reason log.
func scanRecord(s scanner) (*domain.TriageRecord, error) {
	rec := &domain.TriageRecord{}
	var level, reasonsJSON string

	err := s.Scan(
		&rec.ID, &level, &rec.Disposition, &reasonsJSON,
		&rec.Vitals.OxygenSaturation, &rec.Vitals.HeartRate,
		&rec.Vitals.SystolicBP, &rec.Vitals.DiastolicBP,
		&rec.Vitals.RespiratoryRate, &rec.Vitals.Temperature,
		&rec.Vitals.PainScore, &rec.Consciousness,
		&rec.ProcessingTimeMs, &rec.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Level = domain.TriageLevel(level)
	if err := json.Unmarshal([]byte(reasonsJSON), &rec.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons: %w", err)
	}
	return rec, nil
}

// Save appends a committed verdict to the log.
func (s *SQLiteStore) Save(ctx context.Context, record *domain.TriageRecord) error {
	reasonsJSON, err := json.Marshal(record.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts (
			id, level, disposition, reasons,
			spo2, heart_rate, systolic_bp, diastolic_bp,
			respiratory_rate, temperature, pain_score,
			consciousness, processing_time_ms, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
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
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.TriageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+verdictColumns+" FROM verdicts WHERE id = ?", id)

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
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.TriageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+verdictColumns+" FROM verdicts ORDER BY evaluated_at DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListByLevel returns the most recent verdicts at a given level.
func (s *SQLiteStore) ListByLevel(ctx context.Context, level domain.TriageLevel, limit int) ([]*domain.TriageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+verdictColumns+" FROM verdicts WHERE level = ? ORDER BY evaluated_at DESC LIMIT ?",
		string(level), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]*domain.TriageRecord, error) {
	var result []*domain.TriageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of recorded verdicts.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verdicts").Scan(&count)
	return count, err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON writes the full verdict log to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
