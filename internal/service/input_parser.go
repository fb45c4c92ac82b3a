package service

import (
	"fmt"

	"github.com/atp-triage-server/internal/domain"
)

// SnapshotInput is the wire-level snapshot document. Every field is a
// pointer so that an absent field is distinguishable from a zero value: a
// missing red-flag boolean must fail validation rather than silently read
// as false, and a missing vital must not read as 0. The omitempty tags keep
// schema-generating surfaces (MCP tool schemas) from marking fields required
// up front: presence is enforced by the parser so a missing field fails with
// its own name, identically on every transport.
type SnapshotInput struct {
	// Vitals
	OxygenSaturation *float64 `json:"spo2,omitempty"`
	HeartRate        *float64 `json:"heart_rate,omitempty"`
	SystolicBP       *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP      *float64 `json:"diastolic_bp,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	PainScore        *int     `json:"pain_score,omitempty"`

	// AVPU consciousness: full name or single-letter code.
	Consciousness *string `json:"consciousness,omitempty"`

	// Red flags
	Stridor                     *bool `json:"stridor,omitempty"`
	Angioedema                  *bool `json:"angioedema,omitempty"`
	ActiveSeizures              *bool `json:"active_seizures,omitempty"`
	IncompleteSentences         *bool `json:"talking_incomplete_sentences,omitempty"`
	AudibleWheeze               *bool `json:"audible_wheeze,omitempty"`
	ActiveBleeding              *bool `json:"active_bleeding,omitempty"`
	AcuteChestPain              *bool `json:"acute_chest_pain_lt_24hr,omitempty"`
	SuspectedStroke             *bool `json:"suspected_stroke_lt_24hr,omitempty"`
	AcuteShortnessOfBreath      *bool `json:"acute_sob_lt_12hr,omitempty"`
	SuddenSevereHeadache        *bool `json:"sudden_severe_headache,omitempty"`
	AcuteLimbIschemia           *bool `json:"acute_limb_ischemia,omitempty"`
	HistorySyncope              *bool `json:"history_syncope,omitempty"`
	SuddenAbdominalPain         *bool `json:"abdominal_pain_sudden_onset,omitempty"`
	FeverImmunocompromised      *bool `json:"fever_immunocompromised,omitempty"`
	AcuteUrinaryRetention       *bool `json:"acute_urinary_retention,omitempty"`
	AgitatedViolent             *bool `json:"agitated_violent,omitempty"`
	SuspectedPoisoningBite      *bool `json:"suspected_poisoning_bite,omitempty"`
	PregnantThirdTrimesterBleed *bool `json:"pregnant_3rd_trimester_abdominal_bleed,omitempty"`

	// Yellow flags
	PersistentVomitingDiarrhea *bool `json:"vomiting_diarrhea_persistent,omitempty"`
	MinorTraumaDeformity       *bool `json:"minor_trauma_with_deformity,omitempty"`
	FeverNoRedFlags            *bool `json:"fever_no_red_flags,omitempty"`
	ModerateUrinarySymptoms    *bool `json:"urinary_symptoms_moderate,omitempty"`
	OlderAdultMinorFall        *bool `json:"older_adult_minor_fall,omitempty"`
	PediatricFeverIrritable    *bool `json:"pediatric_fever_irritable,omitempty"`
	ChronicConditionFlare      *bool `json:"chronic_condition_exacerbation,omitempty"`

	// Green context (documentation only, no rule reads these)
	MinorCutAbrasion        *bool `json:"minor_cut_abrasion,omitempty"`
	MildColdSymptoms        *bool `json:"mild_cold_symptoms,omitempty"`
	MedicationRefillRequest *bool `json:"medication_refill_request,omitempty"`
}

// SnapshotParser converts wire-level input into a validated
// domain.PatientSnapshot. Parsing is the only place missing-field errors
// can arise; once a snapshot exists, the cascade is total over it.
type SnapshotParser struct{}

// NewSnapshotParser creates a new snapshot parser.
func NewSnapshotParser() *SnapshotParser {
	return &SnapshotParser{}
}

// ParseSnapshot validates presence of every field, resolves the AVPU value,
// and range-checks the vitals. Returns *domain.ValidationError (wrapping
// domain.ErrInvalidInput) for a missing or malformed field, and a
// domain.ErrOutOfRangeInput-wrapping error for an out-of-range vital.
func (p *SnapshotParser) ParseSnapshot(in *SnapshotInput) (*domain.PatientSnapshot, error) {
	if in == nil {
		return nil, domain.NewValidationError("snapshot", "snapshot document is required", nil)
	}

	vitals, err := p.parseVitals(in)
	if err != nil {
		return nil, err
	}

	if in.Consciousness == nil {
		return nil, domain.NewValidationError("consciousness", "field is required", nil)
	}
	consciousness, err := domain.ParseConsciousnessLevel(*in.Consciousness)
	if err != nil {
		return nil, domain.NewValidationError("consciousness",
			fmt.Sprintf("must be one of ALERT, VERBAL, PAIN, UNRESPONSIVE (or A/V/P/U), got %q", *in.Consciousness),
			*in.Consciousness)
	}

	red, err := p.parseRedFlags(in)
	if err != nil {
		return nil, err
	}
	yellow, err := p.parseYellowFlags(in)
	if err != nil {
		return nil, err
	}
	green, err := p.parseGreenContext(in)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.PatientSnapshot{
		Vitals:        *vitals,
		Consciousness: consciousness,
		Red:           *red,
		Yellow:        *yellow,
		Green:         *green,
	}

	// Range policy: reject. See domain.PatientSnapshot.Validate.
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (p *SnapshotParser) parseVitals(in *SnapshotInput) (*domain.Vitals, error) {
	required := []struct {
		field string
		value *float64
	}{
		{"spo2", in.OxygenSaturation},
		{"heart_rate", in.HeartRate},
		{"systolic_bp", in.SystolicBP},
		{"diastolic_bp", in.DiastolicBP},
		{"respiratory_rate", in.RespiratoryRate},
		{"temperature", in.Temperature},
	}
	for _, f := range required {
		if f.value == nil {
			return nil, domain.NewValidationError(f.field, "field is required", nil)
		}
	}
	if in.PainScore == nil {
		return nil, domain.NewValidationError("pain_score", "field is required", nil)
	}

	return &domain.Vitals{
		OxygenSaturation: *in.OxygenSaturation,
		HeartRate:        *in.HeartRate,
		SystolicBP:       *in.SystolicBP,
		DiastolicBP:      *in.DiastolicBP,
		RespiratoryRate:  *in.RespiratoryRate,
		Temperature:      *in.Temperature,
		PainScore:        *in.PainScore,
	}, nil
}

func (p *SnapshotParser) parseRedFlags(in *SnapshotInput) (*domain.RedFlags, error) {
	out := &domain.RedFlags{}
	// Enumerated explicitly so a missing flag names itself in the error.
	flagFields := []struct {
		name  string
		value *bool
		dst   *bool
	}{
		{"stridor", in.Stridor, &out.Stridor},
		{"angioedema", in.Angioedema, &out.Angioedema},
		{"active_seizures", in.ActiveSeizures, &out.ActiveSeizures},
		{"talking_incomplete_sentences", in.IncompleteSentences, &out.IncompleteSentences},
		{"audible_wheeze", in.AudibleWheeze, &out.AudibleWheeze},
		{"active_bleeding", in.ActiveBleeding, &out.ActiveBleeding},
		{"acute_chest_pain_lt_24hr", in.AcuteChestPain, &out.AcuteChestPain},
		{"suspected_stroke_lt_24hr", in.SuspectedStroke, &out.SuspectedStroke},
		{"acute_sob_lt_12hr", in.AcuteShortnessOfBreath, &out.AcuteShortnessOfBreath},
		{"sudden_severe_headache", in.SuddenSevereHeadache, &out.SuddenSevereHeadache},
		{"acute_limb_ischemia", in.AcuteLimbIschemia, &out.AcuteLimbIschemia},
		{"history_syncope", in.HistorySyncope, &out.HistorySyncope},
		{"abdominal_pain_sudden_onset", in.SuddenAbdominalPain, &out.SuddenAbdominalPain},
		{"fever_immunocompromised", in.FeverImmunocompromised, &out.FeverImmunocompromised},
		{"acute_urinary_retention", in.AcuteUrinaryRetention, &out.AcuteUrinaryRetention},
		{"agitated_violent", in.AgitatedViolent, &out.AgitatedViolent},
		{"suspected_poisoning_bite", in.SuspectedPoisoningBite, &out.SuspectedPoisoningBite},
		{"pregnant_3rd_trimester_abdominal_bleed", in.PregnantThirdTrimesterBleed, &out.PregnantThirdTrimesterBleed},
	}

	for _, f := range flagFields {
		if f.value == nil {
			return nil, domain.NewValidationError(f.name, "field is required", nil)
		}
		*f.dst = *f.value
	}
	return out, nil
}

func (p *SnapshotParser) parseYellowFlags(in *SnapshotInput) (*domain.YellowFlags, error) {
	out := &domain.YellowFlags{}
	flagFields := []struct {
		name  string
		value *bool
		dst   *bool
	}{
		{"vomiting_diarrhea_persistent", in.PersistentVomitingDiarrhea, &out.PersistentVomitingDiarrhea},
		{"minor_trauma_with_deformity", in.MinorTraumaDeformity, &out.MinorTraumaDeformity},
		{"fever_no_red_flags", in.FeverNoRedFlags, &out.FeverNoRedFlags},
		{"urinary_symptoms_moderate", in.ModerateUrinarySymptoms, &out.ModerateUrinarySymptoms},
		{"older_adult_minor_fall", in.OlderAdultMinorFall, &out.OlderAdultMinorFall},
		{"pediatric_fever_irritable", in.PediatricFeverIrritable, &out.PediatricFeverIrritable},
		{"chronic_condition_exacerbation", in.ChronicConditionFlare, &out.ChronicConditionFlare},
	}

	for _, f := range flagFields {
		if f.value == nil {
			return nil, domain.NewValidationError(f.name, "field is required", nil)
		}
		*f.dst = *f.value
	}
	return out, nil
}

func (p *SnapshotParser) parseGreenContext(in *SnapshotInput) (*domain.GreenContext, error) {
	out := &domain.GreenContext{}
	flagFields := []struct {
		name  string
		value *bool
		dst   *bool
	}{
		{"minor_cut_abrasion", in.MinorCutAbrasion, &out.MinorCutAbrasion},
		{"mild_cold_symptoms", in.MildColdSymptoms, &out.MildColdSymptoms},
		{"medication_refill_request", in.MedicationRefillRequest, &out.MedicationRefillRequest},
	}

	for _, f := range flagFields {
		if f.value == nil {
			return nil, domain.NewValidationError(f.name, "field is required", nil)
		}
		*f.dst = *f.value
	}
	return out, nil
}
