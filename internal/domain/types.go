// Package domain contains core business entities and types for emergency
// department triage classification following a simplified AIIMS Triage
// Protocol (ATP): a deterministic rule cascade over one patient snapshot
// producing a RED/YELLOW/GREEN urgency level with recorded justifications.
package domain

import "errors"

// TriageLevel represents the urgency classification assigned to a patient.
// Exactly one of three values; there is no unclassified state.
type TriageLevel string

const (
	RED    TriageLevel = "RED"
	YELLOW TriageLevel = "YELLOW"
	GREEN  TriageLevel = "GREEN"
)

// ConsciousnessLevel represents the AVPU scale, an ordered categorical
// consciousness assessment. ALERT is the least severe; anything below
// ALERT is a red-level finding.
type ConsciousnessLevel string

const (
	ALERT        ConsciousnessLevel = "ALERT"
	VERBAL       ConsciousnessLevel = "VERBAL"
	PAIN         ConsciousnessLevel = "PAIN"
	UNRESPONSIVE ConsciousnessLevel = "UNRESPONSIVE"
)

// Validation errors for triage data integrity.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid triage input")
	ErrOutOfRangeInput      = errors.New("vital sign out of documented range")
	ErrInvalidLevel         = errors.New("invalid triage level")
	ErrInvalidConsciousness = errors.New("invalid AVPU consciousness level")
)

// IsValid validates that the TriageLevel is one of the three protocol levels.
// Only valid levels may be used in clinical decision-making.
func (l TriageLevel) IsValid() bool {
	switch l {
	case RED, YELLOW, GREEN:
		return true
	default:
		return false
	}
}

// String returns the string representation of the level.
// Required for proper logging and audit trails.
func (l TriageLevel) String() string {
	return string(l)
}

// severityRank orders levels by urgency. Higher is more urgent.
func (l TriageLevel) severityRank() int {
	switch l {
	case RED:
		return 3
	case YELLOW:
		return 2
	case GREEN:
		return 1
	default:
		return 0
	}
}

// MoreUrgentThan reports whether l outranks other on the triage scale.
// The cascade only ever upgrades: a level never replaces a more urgent one.
func (l TriageLevel) MoreUrgentThan(other TriageLevel) bool {
	return l.severityRank() > other.severityRank()
}

// Disposition returns a human-readable care disposition for the level,
// used by presentation surfaces to pick severity-appropriate rendering.
func (l TriageLevel) Disposition() string {
	switch l {
	case RED:
		return "IMMEDIATE ATTENTION REQUIRED"
	case YELLOW:
		return "URGENT CARE REQUIRED"
	case GREEN:
		return "NON-URGENT CARE"
	default:
		return "UNKNOWN"
	}
}

// RequiresImmediateAction reports whether the level demands immediate
// clinical intervention. Conservative for unknown values.
func (l TriageLevel) RequiresImmediateAction() bool {
	switch l {
	case YELLOW, GREEN:
		return false
	default:
		return true
	}
}

// LogFields returns structured logging fields for audit trails.
func (l TriageLevel) LogFields() map[string]any {
	return map[string]any{
		"level":           string(l),
		"disposition":     l.Disposition(),
		"is_valid":        l.IsValid(),
		"requires_action": l.RequiresImmediateAction(),
	}
}

// IsValid validates the AVPU consciousness level.
func (c ConsciousnessLevel) IsValid() bool {
	switch c {
	case ALERT, VERBAL, PAIN, UNRESPONSIVE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the consciousness level.
func (c ConsciousnessLevel) String() string {
	return string(c)
}

// Altered reports whether the patient is below ALERT on the AVPU scale.
func (c ConsciousnessLevel) Altered() bool {
	return c != ALERT
}

// ParseConsciousnessLevel accepts the full level name or the single-letter
// AVPU code used on paper triage forms ("A", "V", "P", "U").
func ParseConsciousnessLevel(s string) (ConsciousnessLevel, error) {
	switch s {
	case "A", "a", string(ALERT), "Alert", "alert":
		return ALERT, nil
	case "V", "v", string(VERBAL), "Verbal", "verbal":
		return VERBAL, nil
	case "P", "p", string(PAIN), "Pain", "pain":
		return PAIN, nil
	case "U", "u", string(UNRESPONSIVE), "Unresponsive", "unresponsive":
		return UNRESPONSIVE, nil
	default:
		return "", ErrInvalidConsciousness
	}
}
