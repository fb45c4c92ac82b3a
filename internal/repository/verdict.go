// Package repository provides the pgx read side over the shared verdict
// log: lookups, paging, level breakdowns, and retention purges used by
// reporting rather than the hot triage path.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/atp-triage-server/internal/domain"
)

// VerdictRepository handles verdict queries against PostgreSQL.
type VerdictRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewVerdictRepository creates a new verdict repository.
func NewVerdictRepository(db *pgxpool.Pool, logger *logrus.Logger) *VerdictRepository {
	return &VerdictRepository{
		db:  db,
		log: logger,
	}
}

const verdictSelect = `
	SELECT id, level, disposition, reasons,
		   spo2, heart_rate, systolic_bp, diastolic_bp,
		   respiratory_rate, temperature, pain_score,
		   consciousness, processing_time_ms, evaluated_at
	FROM verdicts`

func scanVerdictRow(row pgx.Row) (*domain.TriageRecord, error) {
	rec := &domain.TriageRecord{}
	var level, reasonsJSON string

	err := row.Scan(
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
		return nil, fmt.Errorf("decoding reasons: %w", err)
	}
	return rec, nil
}

// GetByID retrieves a verdict by its ID.
func (r *VerdictRepository) GetByID(ctx context.Context, id string) (*domain.TriageRecord, error) {
	row := r.db.QueryRow(ctx, verdictSelect+" WHERE id = $1", id)

	rec, err := scanVerdictRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("verdict not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"verdict_id": id,
			"error":      err,
		}).Error("Failed to get verdict by ID")
		return nil, fmt.Errorf("getting verdict by ID: %w", err)
	}

	return rec, nil
}

// ListRecent retrieves verdicts newest-first with pagination.
func (r *VerdictRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.TriageRecord, error) {
	rows, err := r.db.Query(ctx,
		verdictSelect+" ORDER BY evaluated_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		r.log.WithError(err).Error("Failed to list verdicts")
		return nil, fmt.Errorf("listing verdicts: %w", err)
	}
	defer rows.Close()

	return collectVerdictRows(rows)
}

// ListByLevel retrieves the most recent verdicts at a given level.
func (r *VerdictRepository) ListByLevel(ctx context.Context, level domain.TriageLevel, limit int) ([]*domain.TriageRecord, error) {
	rows, err := r.db.Query(ctx,
		verdictSelect+" WHERE level = $1 ORDER BY evaluated_at DESC LIMIT $2",
		string(level), limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"level": level.String(),
			"error": err,
		}).Error("Failed to list verdicts by level")
		return nil, fmt.Errorf("listing verdicts by level: %w", err)
	}
	defer rows.Close()

	return collectVerdictRows(rows)
}

func collectVerdictRows(rows pgx.Rows) ([]*domain.TriageRecord, error) {
	var records []*domain.TriageRecord
	for rows.Next() {
		rec, err := scanVerdictRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning verdict row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating verdict rows: %w", err)
	}

	return records, nil
}

// CountByLevel returns the number of recorded verdicts per level.
func (r *VerdictRepository) CountByLevel(ctx context.Context) (map[domain.TriageLevel]int64, error) {
	rows, err := r.db.Query(ctx,
		"SELECT level, COUNT(*) FROM verdicts GROUP BY level")
	if err != nil {
		r.log.WithError(err).Error("Failed to count verdicts by level")
		return nil, fmt.Errorf("counting verdicts by level: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TriageLevel]int64)
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[domain.TriageLevel(level)] = count
	}

	return counts, rows.Err()
}

// DeleteOlderThan purges verdicts evaluated before the cutoff and returns
// how many were removed. Used by retention jobs.
func (r *VerdictRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx,
		"DELETE FROM verdicts WHERE evaluated_at < $1", cutoff)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"cutoff": cutoff,
			"error":  err,
		}).Error("Failed to purge old verdicts")
		return 0, fmt.Errorf("purging old verdicts: %w", err)
	}

	removed := result.RowsAffected()
	if removed > 0 {
		r.log.WithFields(logrus.Fields{
			"cutoff":  cutoff,
			"removed": removed,
		}).Info("Purged old verdicts")
	}

	return removed, nil
}
