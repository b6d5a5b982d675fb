package services

import (
	"fmt"
	"time"

	"pricing-system/internal/models"

	"github.com/google/uuid"
)

// NoActiveConfigurationError означает, что на дату расчёта нет действующего тарифа
type NoActiveConfigurationError struct {
	Date time.Time
}

func (e *NoActiveConfigurationError) Error() string {
	return fmt.Sprintf("no active rate configuration for date %s", e.Date.Format("2006-01-02"))
}

// NoMatchingPricingMethodError означает нарушение целостности конфигурации:
// невозможно выбрать ровно один метод расчёта
type NoMatchingPricingMethodError struct {
	ConfigurationID uuid.UUID
	Version         string
	Reason          string
}

func (e *NoMatchingPricingMethodError) Error() string {
	return fmt.Sprintf("no pricing method can be selected for configuration %s version %s: %s",
		e.ConfigurationID, e.Version, e.Reason)
}

// RateNotFoundError означает отсутствие нужной ставки для разрешённого ключа
type RateNotFoundError struct {
	ConfigurationVersion string
	MethodType           models.MethodType
	Key                  string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("rate entry not found for %s (%s) in configuration version %s",
		e.Key, e.MethodType, e.ConfigurationVersion)
}

// CapacityExceededError означает, что ни один настроенный размер бригады не выдерживает нагрузку
type CapacityExceededError struct {
	RequestedCrewSize int
	MaxCrewSize       int
	VolumeShortfall   float64
	WeightShortfall   float64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("no configured crew size can carry the load: volume shortfall %.2f cu ft, weight shortfall %.2f lbs, largest configured crew %d, requested %d",
		e.VolumeShortfall, e.WeightShortfall, e.MaxCrewSize, e.RequestedCrewSize)
}

// InvalidConditionOperatorError означает некорректное условие в правиле выбора метода
type InvalidConditionOperatorError struct {
	RuleID   uuid.UUID
	Field    string
	Operator models.ConditionOperator
}

func (e *InvalidConditionOperatorError) Error() string {
	return fmt.Sprintf("invalid condition in pricing method rule %s: field %q, operator %q",
		e.RuleID, e.Field, e.Operator)
}
