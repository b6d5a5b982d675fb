package services

import (
	"testing"
	"time"

	"pricing-system/internal/config"
	"pricing-system/internal/models"
)

func TestHolidayCalendar_IsHoliday(t *testing.T) {
	calendar := NewHolidayCalendar(&config.HolidayConfig{
		Dates: []string{"2025-07-04", "2025-12-25", "not-a-date"},
	}, newTestLogger())

	if !calendar.IsHoliday(time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2025-07-04 to be a holiday")
	}
	if calendar.IsHoliday(time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2025-07-05 not to be a holiday")
	}
}

func TestIsWeekendDate(t *testing.T) {
	saturday := time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	if !isWeekendDate(saturday) || !isWeekendDate(sunday) {
		t.Fatalf("expected Saturday and Sunday to be weekend")
	}
	if isWeekendDate(monday) {
		t.Fatalf("expected Monday not to be weekend")
	}
}

func TestClassifyDay(t *testing.T) {
	if got := classifyDay(false, false); got != models.DayClassWeekday {
		t.Fatalf("expected weekday, got %s", got)
	}
	if got := classifyDay(true, false); got != models.DayClassWeekend {
		t.Fatalf("expected weekend, got %s", got)
	}
	// Праздник важнее выходного при выборе ставки
	if got := classifyDay(true, true); got != models.DayClassHoliday {
		t.Fatalf("expected holiday to win over weekend, got %s", got)
	}
}
