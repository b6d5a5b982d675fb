package services

import (
	"time"

	"pricing-system/internal/config"
	"pricing-system/internal/logger"
	"pricing-system/internal/models"
)

// HolidayCalendar хранит праздничные даты и классифицирует дату переезда
type HolidayCalendar struct {
	holidays map[string]bool
}

// NewHolidayCalendar создаёт календарь из списка дат в формате YYYY-MM-DD
func NewHolidayCalendar(cfg *config.HolidayConfig, log *logger.Logger) *HolidayCalendar {
	holidays := make(map[string]bool, len(cfg.Dates))
	for _, raw := range cfg.Dates {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			log.WithField("date", raw).Warn("Skipping invalid holiday date")
			continue
		}
		holidays[raw] = true
	}
	return &HolidayCalendar{holidays: holidays}
}

// IsHoliday проверяет, является ли дата праздничной
func (c *HolidayCalendar) IsHoliday(date time.Time) bool {
	return c.holidays[date.Format("2006-01-02")]
}

// isWeekendDate проверяет, выпадает ли дата на субботу или воскресенье
func isWeekendDate(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// classifyDay возвращает классификацию даты для выбора почасовой ставки.
// Праздник имеет приоритет над выходным.
func classifyDay(weekend, holiday bool) models.DayClass {
	if holiday {
		return models.DayClassHoliday
	}
	if weekend {
		return models.DayClassWeekend
	}
	return models.DayClassWeekday
}
