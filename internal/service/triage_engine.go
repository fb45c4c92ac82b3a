package service

import (
	"github.com/sirupsen/logrus"

	"github.com/atp-triage-server/internal/domain"
)

// TriageRuleEngine evaluates the ATP rule cascade against a patient
// snapshot. Evaluation runs in two phases: an ordered short-circuiting RED
// phase (the first tier that fires resolves the case and nothing after it
// is evaluated) and a non-short-circuiting YELLOW phase that accumulates
// reasons without ever downgrading. The engine holds no per-evaluation
// state; concurrent Classify calls with distinct snapshots are safe.
type TriageRuleEngine struct {
	logger   *logrus.Logger
	redTiers []redTier
}

// redTier is one ordered group of red-level checks: a predicate over the
// snapshot, the tier name for logging, and the reason recorded when it
// fires. Every red tier short-circuits by construction.
type redTier struct {
	Name      string
	Reason    string
	Predicate func(*domain.PatientSnapshot) bool
}

// NewTriageRuleEngine creates a new rule engine with the protocol tiers in
// their mandated order.
func NewTriageRuleEngine(logger *logrus.Logger) *TriageRuleEngine {
	return &TriageRuleEngine{
		logger:   logger,
		redTiers: buildRedTiers(),
	}
}

// buildRedTiers returns the ordered RED tiers. Order is load-bearing: the
// protocol mandates airway before breathing before circulation before
// consciousness before time-sensitive before other-urgent.
func buildRedTiers() []redTier {
	return []redTier{
		{
			Name:   "airway",
			Reason: domain.ReasonAirway,
			Predicate: func(s *domain.PatientSnapshot) bool {
				return s.Red.AnyAirway()
			},
		},
		{
			Name:   "breathing",
			Reason: domain.ReasonBreathing,
			Predicate: func(s *domain.PatientSnapshot) bool {
				v := s.Vitals
				return s.Red.IncompleteSentences || s.Red.AudibleWheeze ||
					v.RespiratoryRate > 22 || v.RespiratoryRate < 10 ||
					v.OxygenSaturation < 90
			},
		},
		{
			Name:   "circulation",
			Reason: domain.ReasonCirculation,
			Predicate: func(s *domain.PatientSnapshot) bool {
				v := s.Vitals
				return v.HeartRate < 50 || v.HeartRate > 120 ||
					v.SystolicBP < 90 || v.SystolicBP > 220 ||
					v.DiastolicBP < 60 || v.DiastolicBP > 110 ||
					v.ShockIndex() > 1.0 ||
					s.Red.ActiveBleeding
			},
		},
		{
			Name:   "consciousness",
			Reason: domain.ReasonConsciousness,
			Predicate: func(s *domain.PatientSnapshot) bool {
				return s.Consciousness.Altered()
			},
		},
		{
			Name:   "time_sensitive",
			Reason: domain.ReasonTimeSensitive,
			Predicate: func(s *domain.PatientSnapshot) bool {
				v := s.Vitals
				return s.Red.AnyTimeSensitive() ||
					v.PainScore > 7 ||
					v.Temperature > 40.0 || v.Temperature < 35.0
			},
		},
		{
			Name:   "other_urgent",
			Reason: domain.ReasonOtherUrgent,
			Predicate: func(s *domain.PatientSnapshot) bool {
				return s.Red.AnyOtherUrgent()
			},
		},
	}
}

// Classify runs the full cascade over one snapshot and returns the verdict.
// Total over validated snapshots: always exactly one level and at least one
// reason, never an error. The snapshot is read-only throughout.
func (e *TriageRuleEngine) Classify(snapshot *domain.PatientSnapshot) domain.Verdict {
	// Phase 1: RED tiers in protocol order, first hit wins.
	for _, tier := range e.redTiers {
		if tier.Predicate(snapshot) {
			if e.logger != nil {
				e.logger.WithFields(logrus.Fields{
					"tier":  tier.Name,
					"level": domain.RED.String(),
				}).Debug("Red tier fired, short-circuiting cascade")
			}
			return domain.Verdict{
				Level:   domain.RED,
				Reasons: []string{tier.Reason},
			}
		}
	}

	// Phase 2: YELLOW accumulation. Both bands may record a reason; the
	// level is set to YELLOW at most once and never downgraded.
	level := domain.GREEN
	reasons := make([]string, 0, 2)

	if yellowVitals(snapshot.Vitals) {
		reasons = append(reasons, domain.ReasonYellowVitals)
		level = domain.YELLOW
	}

	if yellowSymptoms(snapshot) {
		// The symptom reason is recorded at most once: upgrading when the
		// level is still GREEN, otherwise appended without touching the
		// already-YELLOW level. Both bands firing yields two reasons and a
		// single YELLOW.
		if level == domain.GREEN {
			level = domain.YELLOW
		}
		reasons = append(reasons, domain.ReasonYellowSymptom)
	}

	// Phase 3: default. A verdict always carries at least one reason.
	if len(reasons) == 0 {
		reasons = append(reasons, domain.ReasonDefaultGreen)
		level = domain.GREEN
	}

	return domain.Verdict{Level: level, Reasons: reasons}
}

// yellowVitals checks the inclusive warning bands. Each band's upper edge
// abuts the corresponding red threshold: RR 22 is yellow, RR 23 is red.
func yellowVitals(v domain.Vitals) bool {
	return (v.RespiratoryRate >= 20 && v.RespiratoryRate <= 22) ||
		(v.HeartRate >= 100 && v.HeartRate <= 120) ||
		(v.SystolicBP >= 180 && v.SystolicBP <= 220) ||
		(v.DiastolicBP >= 100 && v.DiastolicBP <= 110) ||
		(v.Temperature >= 38.0 && v.Temperature <= 40.0)
}

// yellowSymptoms checks moderate pain and the semi-urgent condition flags.
func yellowSymptoms(s *domain.PatientSnapshot) bool {
	return (s.Vitals.PainScore >= 4 && s.Vitals.PainScore <= 7) || s.Yellow.Any()
}
