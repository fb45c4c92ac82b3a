// Package audit provides the verdict audit log: an append-only record of
// every committed triage verdict and the vitals that justified it. No
// patient identity is stored; the log exists so that any classification
// the system produced can be reviewed later.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/atp-triage-server/internal/domain"
)

// Store defines the interface for verdict audit storage.
type Store interface {
	// Save appends a committed verdict. Verdict IDs are unique; saving the
	// same ID twice is an error.
	Save(ctx context.Context, record *domain.TriageRecord) error

	// Get retrieves a verdict by ID. Returns (nil, nil) when absent.
	Get(ctx context.Context, id string) (*domain.TriageRecord, error)

	// List returns verdicts newest-first with pagination.
	List(ctx context.Context, limit, offset int) ([]*domain.TriageRecord, error)

	// ListByLevel returns the most recent verdicts at a given level.
	ListByLevel(ctx context.Context, level domain.TriageLevel, limit int) ([]*domain.TriageRecord, error)

	// Count returns the total number of recorded verdicts.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes the full log to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string                 `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Count      int                    `json:"count"`
	Verdicts   []*domain.TriageRecord `json:"verdicts"`
}
