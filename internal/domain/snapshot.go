package domain

import (
	"errors"
	"fmt"
)

// Vitals holds the continuous measurements taken at triage.
// SpO2 is a percentage; blood pressures are mmHg; temperature is Celsius.
type Vitals struct {
	OxygenSaturation float64 `json:"spo2"`
	HeartRate        float64 `json:"heart_rate"`
	SystolicBP       float64 `json:"systolic_bp"`
	DiastolicBP      float64 `json:"diastolic_bp"`
	RespiratoryRate  float64 `json:"respiratory_rate"`
	Temperature      float64 `json:"temperature"`
	PainScore        int     `json:"pain_score"`
}

// RedFlags are the symptom and condition findings that can trigger a RED
// classification. Flags are independent; no flag implies another.
type RedFlags struct {
	// Airway
	Stridor        bool `json:"stridor"`
	Angioedema     bool `json:"angioedema"`
	ActiveSeizures bool `json:"active_seizures"`

	// Breathing
	IncompleteSentences bool `json:"talking_incomplete_sentences"`
	AudibleWheeze       bool `json:"audible_wheeze"`

	// Circulation
	ActiveBleeding bool `json:"active_bleeding"`

	// Time-sensitive conditions
	AcuteChestPain          bool `json:"acute_chest_pain_lt_24hr"`
	SuspectedStroke         bool `json:"suspected_stroke_lt_24hr"`
	AcuteShortnessOfBreath  bool `json:"acute_sob_lt_12hr"`
	SuddenSevereHeadache    bool `json:"sudden_severe_headache"`
	AcuteLimbIschemia       bool `json:"acute_limb_ischemia"`
	HistorySyncope          bool `json:"history_syncope"`
	SuddenAbdominalPain     bool `json:"abdominal_pain_sudden_onset"`
	FeverImmunocompromised  bool `json:"fever_immunocompromised"`
	AcuteUrinaryRetention   bool `json:"acute_urinary_retention"`

	// Other highly urgent conditions
	AgitatedViolent            bool `json:"agitated_violent"`
	SuspectedPoisoningBite     bool `json:"suspected_poisoning_bite"`
	PregnantThirdTrimesterBleed bool `json:"pregnant_3rd_trimester_abdominal_bleed"`
}

// YellowFlags are the semi-urgent findings that can raise GREEN to YELLOW.
type YellowFlags struct {
	PersistentVomitingDiarrhea bool `json:"vomiting_diarrhea_persistent"`
	MinorTraumaDeformity       bool `json:"minor_trauma_with_deformity"`
	FeverNoRedFlags            bool `json:"fever_no_red_flags"`
	ModerateUrinarySymptoms    bool `json:"urinary_symptoms_moderate"`
	OlderAdultMinorFall        bool `json:"older_adult_minor_fall"`
	PediatricFeverIrritable    bool `json:"pediatric_fever_irritable"`
	ChronicConditionFlare      bool `json:"chronic_condition_exacerbation"`
}

// GreenContext flags are collected at intake for documentation but consumed
// by no rule: the default-green reason is the only green justification the
// protocol produces.
type GreenContext struct {
	MinorCutAbrasion        bool `json:"minor_cut_abrasion"`
	MildColdSymptoms        bool `json:"mild_cold_symptoms"`
	MedicationRefillRequest bool `json:"medication_refill_request"`
}

// PatientSnapshot is the sole input to classification: one immutable record
// of vitals, consciousness, and symptom flags. A snapshot is constructed
// fresh per classification request, never mutated by the classifier, and
// never shared across concurrent evaluations.
type PatientSnapshot struct {
	Vitals        Vitals             `json:"vitals"`
	Consciousness ConsciousnessLevel `json:"consciousness"`
	Red           RedFlags           `json:"red_flags"`
	Yellow        YellowFlags        `json:"yellow_flags"`
	Green         GreenContext       `json:"green_context"`
}

// Documented physiological input ranges. These mirror the bounds enforced
// by the original intake form; values outside them are rejected at the
// boundary rather than clamped, so a malformed reading can never be moved
// across a rule threshold.
const (
	MaxOxygenSaturation = 100.0
	MaxHeartRate        = 200.0
	MaxSystolicBP       = 250.0
	MaxDiastolicBP      = 150.0
	MaxRespiratoryRate  = 40.0
	MinTemperature      = 25.0
	MaxTemperature      = 45.0
	MaxPainScore        = 10
)

// Validate checks every numeric field against its documented range and the
// consciousness value against the AVPU enum. It does not run any triage
// rule: validation is a boundary concern and the cascade only ever sees
// snapshots that pass it.
func (s *PatientSnapshot) Validate() error {
	v := s.Vitals

	if v.OxygenSaturation < 0 || v.OxygenSaturation > MaxOxygenSaturation {
		return rangeErr("spo2", v.OxygenSaturation, 0, MaxOxygenSaturation)
	}
	if v.HeartRate < 0 || v.HeartRate > MaxHeartRate {
		return rangeErr("heart_rate", v.HeartRate, 0, MaxHeartRate)
	}
	if v.SystolicBP < 0 || v.SystolicBP > MaxSystolicBP {
		return rangeErr("systolic_bp", v.SystolicBP, 0, MaxSystolicBP)
	}
	if v.DiastolicBP < 0 || v.DiastolicBP > MaxDiastolicBP {
		return rangeErr("diastolic_bp", v.DiastolicBP, 0, MaxDiastolicBP)
	}
	if v.RespiratoryRate < 0 || v.RespiratoryRate > MaxRespiratoryRate {
		return rangeErr("respiratory_rate", v.RespiratoryRate, 0, MaxRespiratoryRate)
	}
	if v.Temperature < MinTemperature || v.Temperature > MaxTemperature {
		return rangeErr("temperature", v.Temperature, MinTemperature, MaxTemperature)
	}
	if v.PainScore < 0 || v.PainScore > MaxPainScore {
		return rangeErr("pain_score", float64(v.PainScore), 0, MaxPainScore)
	}

	if !s.Consciousness.IsValid() {
		return fmt.Errorf("snapshot validation: consciousness %q: %w",
			s.Consciousness, ErrInvalidConsciousness)
	}

	return nil
}

func rangeErr(field string, value, min, max float64) error {
	return fmt.Errorf("snapshot validation: %s=%v outside [%v, %v]: %w",
		field, value, min, max, ErrOutOfRangeInput)
}

// ShockIndex returns heart rate divided by systolic blood pressure.
// Defined as 0 when systolic BP is 0: a deliberate safety default rather
// than a physiological value, preserved from the protocol source.
func (v Vitals) ShockIndex() float64 {
	if v.SystolicBP == 0 {
		return 0
	}
	return v.HeartRate / v.SystolicBP
}

// AnyAirway reports whether any airway-compromise finding is present.
func (r RedFlags) AnyAirway() bool {
	return r.Stridor || r.Angioedema || r.ActiveSeizures
}

// AnyTimeSensitive reports whether any of the fixed time-sensitive urgent
// condition flags is present. Pain and temperature extremes are checked
// alongside these by the cascade, not here.
func (r RedFlags) AnyTimeSensitive() bool {
	return r.AcuteChestPain || r.SuspectedStroke || r.AcuteShortnessOfBreath ||
		r.SuddenSevereHeadache || r.AcuteLimbIschemia || r.HistorySyncope ||
		r.SuddenAbdominalPain || r.FeverImmunocompromised || r.AcuteUrinaryRetention
}

// AnyOtherUrgent reports whether any of the remaining highly urgent
// condition flags is present.
func (r RedFlags) AnyOtherUrgent() bool {
	return r.AgitatedViolent || r.SuspectedPoisoningBite || r.PregnantThirdTrimesterBleed
}

// Any reports whether any red flag at all is present.
func (r RedFlags) Any() bool {
	return r.AnyAirway() || r.IncompleteSentences || r.AudibleWheeze ||
		r.ActiveBleeding || r.AnyTimeSensitive() || r.AnyOtherUrgent()
}

// Any reports whether any semi-urgent symptom flag is present.
func (y YellowFlags) Any() bool {
	return y.PersistentVomitingDiarrhea || y.MinorTraumaDeformity ||
		y.FeverNoRedFlags || y.ModerateUrinarySymptoms ||
		y.OlderAdultMinorFall || y.PediatricFeverIrritable ||
		y.ChronicConditionFlare
}

// IsOutOfRange reports whether err is (or wraps) an out-of-range
// validation failure, letting callers distinguish it from a missing or
// malformed field.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRangeInput)
}
