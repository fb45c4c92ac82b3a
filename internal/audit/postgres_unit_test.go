package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atp-triage-server/internal/domain"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_NilConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestNewPostgresStore_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)

	_, err = NewPostgresStore(db)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	rec := newTestRecord(domain.RED, []string{domain.ReasonAirway}, time.Now().UTC())

	mock.ExpectExec("INSERT INTO verdicts").
		WithArgs(rec.ID, "RED", rec.Disposition, fmt.Sprintf(`[%q]`, domain.ReasonAirway),
			rec.Vitals.OxygenSaturation, rec.Vitals.HeartRate,
			rec.Vitals.SystolicBP, rec.Vitals.DiastolicBP,
			rec.Vitals.RespiratoryRate, rec.Vitals.Temperature,
			rec.Vitals.PainScore, rec.Consciousness,
			rec.ProcessingTimeMs, rec.EvaluatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	rec := newTestRecord(domain.GREEN, []string{domain.ReasonDefaultGreen}, time.Now().UTC())
	mock.ExpectExec("INSERT INTO verdicts").WillReturnError(assert.AnError)

	err := store.Save(context.Background(), rec)
	assert.Error(t, err)
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	evaluatedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "level", "disposition", "reasons",
		"spo2", "heart_rate", "systolic_bp", "diastolic_bp",
		"respiratory_rate", "temperature", "pain_score",
		"consciousness", "processing_time_ms", "evaluated_at",
	}).AddRow(
		"verdict-1", "YELLOW", "URGENT CARE REQUIRED",
		fmt.Sprintf(`[%q]`, domain.ReasonYellowSymptom),
		98.0, 80.0, 120.0, 80.0, 16.0, 37.0, 5,
		"ALERT", int64(1), evaluatedAt,
	)
	mock.ExpectQuery("SELECT (.+) FROM verdicts WHERE id =").
		WithArgs("verdict-1").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "verdict-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.YELLOW, got.Level)
	assert.Equal(t, []string{domain.ReasonYellowSymptom}, got.Reasons)
	assert.Equal(t, 5, got.Vitals.PainScore)
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT (.+) FROM verdicts WHERE id =").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_CorruptReasonsColumn(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "level", "disposition", "reasons",
		"spo2", "heart_rate", "systolic_bp", "diastolic_bp",
		"respiratory_rate", "temperature", "pain_score",
		"consciousness", "processing_time_ms", "evaluated_at",
	}).AddRow(
		"verdict-1", "GREEN", "NON-URGENT CARE", "not-json",
		98.0, 80.0, 120.0, 80.0, 16.0, 37.0, 0,
		"ALERT", int64(1), time.Now().UTC(),
	)
	mock.ExpectQuery("SELECT (.+) FROM verdicts WHERE id =").
		WithArgs("verdict-1").
		WillReturnRows(rows)

	_, err := store.Get(context.Background(), "verdict-1")
	assert.Error(t, err)
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestPostgresStore_ListQueryError(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT (.+) FROM verdicts ORDER BY").
		WillReturnError(assert.AnError)

	_, err := store.List(context.Background(), 10, 0)
	assert.Error(t, err)
}
