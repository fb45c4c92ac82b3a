package audit

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/atp-triage-server/internal/domain"
)

// MemoryStore is an in-memory Store used by tests and by deployments that
// need no durable audit trail.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.TriageRecord
}

// NewMemoryStore creates an empty in-memory verdict store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*domain.TriageRecord)}
}

// Save appends a committed verdict.
func (s *MemoryStore) Save(ctx context.Context, record *domain.TriageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy so callers cannot mutate the stored record afterwards.
	clone := *record
	clone.Reasons = append([]string(nil), record.Reasons...)
	s.records[record.ID] = &clone
	return nil
}

// Get retrieves a verdict by ID. Returns (nil, nil) when absent.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.TriageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	clone.Reasons = append([]string(nil), rec.Reasons...)
	return &clone, nil
}

// List returns verdicts newest-first with pagination.
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*domain.TriageRecord, error) {
	all := s.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// ListByLevel returns the most recent verdicts at a given level.
func (s *MemoryStore) ListByLevel(ctx context.Context, level domain.TriageLevel, limit int) ([]*domain.TriageRecord, error) {
	var result []*domain.TriageRecord
	for _, rec := range s.sorted() {
		if rec.Level == level {
			result = append(result, rec)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// Count returns the total number of recorded verdicts.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// ExportJSON writes the full verdict log to a JSON writer.
func (s *MemoryStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all := s.sorted()
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

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) sorted() []*domain.TriageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*domain.TriageRecord, 0, len(s.records))
	for _, rec := range s.records {
		clone := *rec
		clone.Reasons = append([]string(nil), rec.Reasons...)
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].EvaluatedAt.After(all[j].EvaluatedAt)
	})
	return all
}
