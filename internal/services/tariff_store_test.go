package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pricing-system/internal/apperror"
	"pricing-system/internal/config"
	"pricing-system/internal/database"
	"pricing-system/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &database.DB{DB: db}, mock
}

func configRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "version", "effective_from", "effective_to", "is_active", "created_at"})
}

func TestTariffStore_GetActiveConfiguration_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	store := NewTariffStore(db, newTestLogger())
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	cfgID := uuid.New()

	mock.ExpectQuery("SELECT id, name, version, effective_from, effective_to, is_active, created_at").
		WithArgs(date).
		WillReturnRows(configRows().
			AddRow(cfgID, "Summer 2025", "2.1.0", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), nil, true, time.Now()))

	cfg, err := store.GetActiveConfiguration(context.Background(), date)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if cfg.ID != cfgID || cfg.Version != "2.1.0" {
		t.Fatalf("unexpected configuration: %+v", cfg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTariffStore_GetActiveConfiguration_None(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	store := NewTariffStore(db, newTestLogger())
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, version, effective_from, effective_to, is_active, created_at").
		WithArgs(date).
		WillReturnRows(configRows())

	_, err := store.GetActiveConfiguration(context.Background(), date)
	var noActive *NoActiveConfigurationError
	if !errors.As(err, &noActive) {
		t.Fatalf("expected NoActiveConfigurationError, got %v", err)
	}
	if !noActive.Date.Equal(date) {
		t.Fatalf("unexpected error date: %v", noActive.Date)
	}
}

func TestTariffStore_GetActiveConfiguration_MultiplePicksLatest(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	store := NewTariffStore(db, newTestLogger())
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	latest := uuid.New()
	older := uuid.New()

	// Запрос сортирует по effective_from DESC, version DESC
	mock.ExpectQuery("SELECT id, name, version, effective_from, effective_to, is_active, created_at").
		WithArgs(date).
		WillReturnRows(configRows().
			AddRow(latest, "Summer 2025", "2.1.0", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), nil, true, time.Now()).
			AddRow(older, "Spring 2025", "2.0.0", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), nil, true, time.Now()))

	cfg, err := store.GetActiveConfiguration(context.Background(), date)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if cfg.ID != latest {
		t.Fatalf("expected latest configuration %s, got %s", latest, cfg.ID)
	}
}

func TestTariffStore_GetSnapshot_LoadsAllTables(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	store := NewTariffStore(db, newTestLogger())
	cfgID := uuid.New()
	cfg := activeConfig(cfgID, "1.0.0")

	expectSnapshotQueries(mock, cfgID, defaultRuleRows(cfgID))

	snapshot, err := store.GetSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if len(snapshot.HourlyRates) != 1 || snapshot.HourlyRates[0].CrewSize != 3 {
		t.Fatalf("unexpected hourly rates: %+v", snapshot.HourlyRates)
	}
	if len(snapshot.CrewAbilities) != 2 {
		t.Fatalf("expected 2 crew abilities, got %d", len(snapshot.CrewAbilities))
	}
	if len(snapshot.DistanceTiers) != 1 || snapshot.DistanceTiers[0].RatePerMile != 4.5 {
		t.Fatalf("unexpected distance tiers: %+v", snapshot.DistanceTiers)
	}
	if len(snapshot.Rules) != 1 || !snapshot.Rules[0].IsDefault {
		t.Fatalf("unexpected rules: %+v", snapshot.Rules)
	}
	if snapshot.Policy.MinimumHoursWeekday != 2 {
		t.Fatalf("unexpected policy: %+v", snapshot.Policy)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTariffStore_GetSnapshot_ConditionsUnmarshal(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	store := NewTariffStore(db, newTestLogger())
	cfgID := uuid.New()
	cfg := activeConfig(cfgID, "1.0.0")

	ruleRows := sqlmock.NewRows([]string{"id", "configuration_id", "method_type", "enabled", "is_default", "priority", "conditions"}).
		AddRow(uuid.New(), cfgID, "distance_based", true, false, 10,
			[]byte(`[{"field":"distance_miles","operator":"greater_than","value":100}]`)).
		AddRow(uuid.New(), cfgID, "hourly", true, true, 100, nil)

	expectSnapshotQueries(mock, cfgID, ruleRows)

	snapshot, err := store.GetSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if len(snapshot.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(snapshot.Rules))
	}
	conds := snapshot.Rules[0].Conditions
	if len(conds) != 1 || conds[0].Field != "distance_miles" || conds[0].Operator != "greater_than" {
		t.Fatalf("unexpected conditions: %+v", conds)
	}
}

func TestTariffStore_GetSnapshot_PolicyMissing(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	store := NewTariffStore(db, newTestLogger())
	cfgID := uuid.New()
	cfg := activeConfig(cfgID, "1.0.0")

	expectChildTableQueries(mock, cfgID, defaultRuleRows(cfgID))
	mock.ExpectQuery("SELECT configuration_id, max_hours_per_job, use_crew_ability_limits").
		WithArgs(cfgID).
		WillReturnRows(sqlmock.NewRows([]string{"configuration_id"}))

	_, err := store.GetSnapshot(context.Background(), cfg)
	if !apperror.Is(err, apperror.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTariffStore_GetConfigurationByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	store := NewTariffStore(db, newTestLogger())
	cfgID := uuid.New()

	mock.ExpectQuery("SELECT id, name, version, effective_from, effective_to, is_active, created_at").
		WithArgs(cfgID).
		WillReturnRows(configRows())

	_, err := store.GetConfigurationByID(context.Background(), cfgID)
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
