package domain

import (
	"errors"
	"testing"
)

// normalSnapshot returns a snapshot at the documented example normal values:
// all vitals unremarkable, fully alert, no flags.
func normalSnapshot() PatientSnapshot {
	return PatientSnapshot{
		Vitals: Vitals{
			OxygenSaturation: 98,
			HeartRate:        80,
			SystolicBP:       120,
			DiastolicBP:      80,
			RespiratoryRate:  16,
			Temperature:      37.0,
			PainScore:        0,
		},
		Consciousness: ALERT,
	}
}

func TestSnapshotValidate_Normal(t *testing.T) {
	s := normalSnapshot()
	if err := s.Validate(); err != nil {
		t.Fatalf("normal snapshot should validate, got %v", err)
	}
}

func TestSnapshotValidate_OutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PatientSnapshot)
	}{
		{"negative heart rate", func(s *PatientSnapshot) { s.Vitals.HeartRate = -10 }},
		{"spo2 above 100", func(s *PatientSnapshot) { s.Vitals.OxygenSaturation = 101 }},
		{"heart rate above max", func(s *PatientSnapshot) { s.Vitals.HeartRate = 250 }},
		{"negative systolic", func(s *PatientSnapshot) { s.Vitals.SystolicBP = -1 }},
		{"systolic above max", func(s *PatientSnapshot) { s.Vitals.SystolicBP = 300 }},
		{"diastolic above max", func(s *PatientSnapshot) { s.Vitals.DiastolicBP = 151 }},
		{"respiratory rate above max", func(s *PatientSnapshot) { s.Vitals.RespiratoryRate = 41 }},
		{"temperature below min", func(s *PatientSnapshot) { s.Vitals.Temperature = 20 }},
		{"temperature above max", func(s *PatientSnapshot) { s.Vitals.Temperature = 46 }},
		{"pain score negative", func(s *PatientSnapshot) { s.Vitals.PainScore = -1 }},
		{"pain score above 10", func(s *PatientSnapshot) { s.Vitals.PainScore = 11 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := normalSnapshot()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsOutOfRange(err) {
				t.Errorf("expected ErrOutOfRangeInput, got %v", err)
			}
		})
	}
}

func TestSnapshotValidate_BoundaryValuesAccepted(t *testing.T) {
	// Zero and boundary vitals are in-range: rejection happens only outside
	// the documented physiological envelope.
	s := normalSnapshot()
	s.Vitals.OxygenSaturation = 0
	s.Vitals.HeartRate = 0
	s.Vitals.SystolicBP = 0
	s.Vitals.DiastolicBP = 0
	s.Vitals.RespiratoryRate = 0
	s.Vitals.Temperature = MinTemperature
	s.Vitals.PainScore = MaxPainScore

	if err := s.Validate(); err != nil {
		t.Fatalf("boundary snapshot should validate, got %v", err)
	}
}

func TestSnapshotValidate_InvalidConsciousness(t *testing.T) {
	s := normalSnapshot()
	s.Consciousness = ConsciousnessLevel("DROWSY")

	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrInvalidConsciousness) {
		t.Errorf("expected ErrInvalidConsciousness, got %v", err)
	}
}

func TestShockIndex(t *testing.T) {
	tests := []struct {
		name     string
		hr, sbp  float64
		expected float64
	}{
		{"normal", 80, 120, 80.0 / 120.0},
		{"elevated", 130, 100, 1.3},
		{"zero systolic guards division", 80, 0, 0},
		{"zero heart rate", 0, 120, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Vitals{HeartRate: tt.hr, SystolicBP: tt.sbp}
			if got := v.ShockIndex(); got != tt.expected {
				t.Errorf("ShockIndex(hr=%v, sbp=%v): expected %v, got %v",
					tt.hr, tt.sbp, tt.expected, got)
			}
		})
	}
}

func TestFlagGroupPredicates(t *testing.T) {
	var r RedFlags
	if r.AnyAirway() || r.AnyTimeSensitive() || r.AnyOtherUrgent() {
		t.Error("zero-value red flags should report nothing present")
	}

	r.Angioedema = true
	if !r.AnyAirway() {
		t.Error("angioedema should register as airway finding")
	}

	r = RedFlags{HistorySyncope: true}
	if !r.AnyTimeSensitive() {
		t.Error("syncope history should register as time-sensitive finding")
	}

	r = RedFlags{SuspectedPoisoningBite: true}
	if !r.AnyOtherUrgent() {
		t.Error("suspected poisoning should register as other-urgent finding")
	}

	var y YellowFlags
	if y.Any() {
		t.Error("zero-value yellow flags should report nothing present")
	}
	y.OlderAdultMinorFall = true
	if !y.Any() {
		t.Error("elderly minor fall should register as yellow finding")
	}
}
