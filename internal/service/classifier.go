package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/atp-triage-server/internal/audit"
	"github.com/atp-triage-server/internal/cache"
	"github.com/atp-triage-server/internal/domain"
)

// ClassifierService implements the triage classification workflow: parse
// and validate the input document, run the rule cascade, stamp the verdict
// with an ID and timing, then record it to the audit log and cache.
//
// Audit writes are best-effort behind a circuit breaker: a failing store
// degrades to log-only operation and never blocks or fails a triage
// response. The cascade itself cannot fail on a validated snapshot.
type ClassifierService struct {
	logger       *logrus.Logger
	parser       *SnapshotParser
	engine       *TriageRuleEngine
	store        audit.Store
	cache        cache.VerdictCache
	auditBreaker *gobreaker.CircuitBreaker
}

// ClassifierOption is a functional option for ClassifierService.
type ClassifierOption func(*ClassifierService)

// WithAuditStore sets the verdict audit store. Without one the service
// runs log-only.
func WithAuditStore(store audit.Store) ClassifierOption {
	return func(s *ClassifierService) { s.store = store }
}

// WithVerdictCache sets the verdict cache used for read-back of recent
// verdicts.
func WithVerdictCache(c cache.VerdictCache) ClassifierOption {
	return func(s *ClassifierService) { s.cache = c }
}

// NewClassifierService creates a new classifier service.
func NewClassifierService(logger *logrus.Logger, opts ...ClassifierOption) *ClassifierService {
	s := &ClassifierService{
		logger: logger,
		parser: NewSnapshotParser(),
		engine: NewTriageRuleEngine(logger),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.auditBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "verdict-audit",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Audit circuit breaker state changed")
		},
	})

	return s
}

// Triage performs one complete classification from a wire-level snapshot
// document. Validation errors are returned to the caller; once a snapshot
// validates, a verdict is always produced.
func (s *ClassifierService) Triage(ctx context.Context, input *SnapshotInput) (*domain.TriageRecord, error) {
	startTime := time.Now()

	snapshot, err := s.parser.ParseSnapshot(input)
	if err != nil {
		s.logger.WithError(err).Warn("Rejected triage input")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"consciousness": snapshot.Consciousness.String(),
		"pain_score":    snapshot.Vitals.PainScore,
	}).Info("Starting triage classification")

	verdict := s.engine.Classify(snapshot)

	record := &domain.TriageRecord{
		ID:               uuid.New().String(),
		Level:            verdict.Level,
		Disposition:      verdict.Level.Disposition(),
		Reasons:          verdict.Reasons,
		Vitals:           snapshot.Vitals,
		Consciousness:    snapshot.Consciousness.String(),
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		EvaluatedAt:      time.Now().UTC(),
	}

	s.recordVerdict(ctx, record)

	s.logger.WithFields(logrus.Fields{
		"verdict_id":      record.ID,
		"level":           record.Level.String(),
		"reason_count":    len(record.Reasons),
		"processing_time": time.Since(startTime),
	}).Info("Triage classification completed")

	return record, nil
}

// Classify runs the bare cascade over an already-validated snapshot with no
// persistence, ID assignment, or logging side channel. Exposed for
// embedders that manage their own verdict lifecycle.
func (s *ClassifierService) Classify(snapshot *domain.PatientSnapshot) domain.Verdict {
	return s.engine.Classify(snapshot)
}

// ValidateSnapshot runs boundary validation only and reports the first
// failure, if any, without classifying.
func (s *ClassifierService) ValidateSnapshot(input *SnapshotInput) error {
	_, err := s.parser.ParseSnapshot(input)
	return err
}

// GetVerdict retrieves a committed verdict by ID, consulting the cache
// before the audit store.
func (s *ClassifierService) GetVerdict(ctx context.Context, id string) (*domain.TriageRecord, error) {
	if s.cache != nil {
		if record, ok := s.cache.Get(ctx, id); ok {
			return record, nil
		}
	}
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	if s.cache != nil {
		s.cache.Put(ctx, record)
	}
	return record, nil
}

// ListVerdicts returns recent verdicts from the audit store, newest first.
func (s *ClassifierService) ListVerdicts(ctx context.Context, limit, offset int) ([]*domain.TriageRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.List(ctx, limit, offset)
}

// CountVerdicts returns the total number of recorded verdicts.
func (s *ClassifierService) CountVerdicts(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.Count(ctx)
}

// ListVerdictsByLevel returns the most recent verdicts at one triage level.
func (s *ClassifierService) ListVerdictsByLevel(ctx context.Context, level domain.TriageLevel, limit int) ([]*domain.TriageRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListByLevel(ctx, level, limit)
}

// recordVerdict persists and caches a committed verdict. Best-effort: audit
// failures are logged and counted against the breaker, never surfaced.
func (s *ClassifierService) recordVerdict(ctx context.Context, record *domain.TriageRecord) {
	if s.cache != nil {
		s.cache.Put(ctx, record)
	}

	if s.store == nil {
		return
	}

	_, err := s.auditBreaker.Execute(func() (interface{}, error) {
		return nil, s.store.Save(ctx, record)
	})
	if err != nil {
		s.logger.WithError(err).WithField("verdict_id", record.ID).
			Error("Failed to record verdict to audit store")
	}
}
