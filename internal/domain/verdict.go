package domain

import "time"

// Reason strings recorded by the cascade. The wording is part of the
// protocol output contract: downstream systems and clinicians see these
// verbatim, so they are constants rather than composed text.
const (
	ReasonAirway        = "Airway compromise (Stridor/Angioedema/Active Seizures)"
	ReasonBreathing     = "Breathing compromise (Abnormal RR/SpO2, Dyspnea, Wheeze)"
	ReasonCirculation   = "Circulation compromise (Abnormal HR/BP, Shock Index >1, Active Bleeding)"
	ReasonConsciousness = "Altered sensorium (AVPU < Alert)"
	ReasonTimeSensitive = "Time-sensitive/Urgent condition requiring immediate attention (including extreme temp)."
	ReasonOtherUrgent   = "Other highly urgent condition (Agitation/Poisoning/Pregnancy complication)."
	ReasonYellowVitals  = "Vital signs slightly abnormal, warranting urgent assessment (including fever)."
	ReasonYellowSymptom = "Semi-urgent condition requiring evaluation/admission."
	ReasonDefaultGreen  = "No specific red or yellow criteria met. Appears non-urgent."
)

// Verdict is the sole output of classification: a triage level plus the
// ordered, never-empty log of reasons, in the order the contributing rules
// fired.
type Verdict struct {
	Level   TriageLevel `json:"level"`
	Reasons []string    `json:"reasons"`
}

// TriageRecord is a committed verdict with audit metadata, as persisted,
// cached, and returned over the API. It carries the vitals that justified
// the verdict but no patient identity.
type TriageRecord struct {
	ID               string      `json:"id"`
	Level            TriageLevel `json:"level"`
	Disposition      string      `json:"disposition"`
	Reasons          []string    `json:"reasons"`
	Vitals           Vitals      `json:"vitals"`
	Consciousness    string      `json:"consciousness"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	EvaluatedAt      time.Time   `json:"evaluated_at"`
}

// Equal reports value equality of level and reason log content and order.
// Classification is deterministic: two evaluations of the same snapshot
// must compare Equal.
func (v Verdict) Equal(other Verdict) bool {
	if v.Level != other.Level || len(v.Reasons) != len(other.Reasons) {
		return false
	}
	for i := range v.Reasons {
		if v.Reasons[i] != other.Reasons[i] {
			return false
		}
	}
	return true
}

// LogFields returns structured logging fields for a verdict.
func (v Verdict) LogFields() map[string]any {
	return map[string]any{
		"level":        v.Level.String(),
		"disposition":  v.Level.Disposition(),
		"reason_count": len(v.Reasons),
		"reasons":      v.Reasons,
	}
}
