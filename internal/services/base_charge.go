package services

import (
	"fmt"
	"strconv"

	"pricing-system/internal/models"
)

// regularHoursPerDay — часы смены, сверх которых действует повышающий коэффициент
const regularHoursPerDay = 8.0

// usedRate фиксирует одну фактически применённую ставку для детерминированного хеша
type usedRate struct {
	Name  string
	Value float64
}

// ComputeBase считает базовую стоимость по выбранному методу.
// Возвращает сумму, строку детализации и список применённых ставок
// в порядке использования.
func ComputeBase(snapshot *models.ConfigurationSnapshot, rule *models.PricingMethodRule, crewSize int, request *models.EstimateRequest, day models.DayClass) (float64, models.LineItem, []usedRate, error) {
	version := snapshot.Configuration.Version

	switch rule.MethodType {
	case models.MethodTypeHourly:
		return computeHourly(snapshot, crewSize, request, day)

	case models.MethodTypeDistanceBased:
		for i, tier := range snapshot.DistanceTiers {
			if !tierContains(tier.MinMiles, tier.MaxMiles, i == len(snapshot.DistanceTiers)-1, request.DistanceMiles) {
				continue
			}
			amount := request.DistanceMiles * tier.RatePerMile
			rates := []usedRate{{Name: "rate_per_mile", Value: tier.RatePerMile}}
			amount, rates = applyMinimumCharge(amount, tier.MinimumCharge, rates)
			item := models.LineItem{
				Label:  fmt.Sprintf("Distance charge (%s miles)", formatAmount(request.DistanceMiles)),
				Amount: amount,
			}
			return amount, item, rates, nil
		}
		return 0, models.LineItem{}, nil, &RateNotFoundError{
			ConfigurationVersion: version,
			MethodType:           models.MethodTypeDistanceBased,
			Key:                  fmt.Sprintf("distance %s miles", formatAmount(request.DistanceMiles)),
		}

	case models.MethodTypeWeightBased:
		for i, tier := range snapshot.WeightTiers {
			if !tierContains(tier.MinWeight, tier.MaxWeight, i == len(snapshot.WeightTiers)-1, request.TotalWeight) {
				continue
			}
			amount := request.TotalWeight * tier.RatePerPound
			rates := []usedRate{{Name: "rate_per_pound", Value: tier.RatePerPound}}
			amount, rates = applyMinimumCharge(amount, tier.MinimumCharge, rates)
			item := models.LineItem{
				Label:  fmt.Sprintf("Weight charge (%s lbs)", formatAmount(request.TotalWeight)),
				Amount: amount,
			}
			return amount, item, rates, nil
		}
		return 0, models.LineItem{}, nil, &RateNotFoundError{
			ConfigurationVersion: version,
			MethodType:           models.MethodTypeWeightBased,
			Key:                  fmt.Sprintf("weight %s lbs", formatAmount(request.TotalWeight)),
		}

	case models.MethodTypeVolumeBased:
		for i, tier := range snapshot.VolumeTiers {
			if !tierContains(tier.MinVolume, tier.MaxVolume, i == len(snapshot.VolumeTiers)-1, request.TotalVolume) {
				continue
			}
			amount := request.TotalVolume * tier.RatePerCubicFoot
			rates := []usedRate{{Name: "rate_per_cubic_foot", Value: tier.RatePerCubicFoot}}
			amount, rates = applyMinimumCharge(amount, tier.MinimumCharge, rates)
			item := models.LineItem{
				Label:  fmt.Sprintf("Volume charge (%s cu ft)", formatAmount(request.TotalVolume)),
				Amount: amount,
			}
			return amount, item, rates, nil
		}
		return 0, models.LineItem{}, nil, &RateNotFoundError{
			ConfigurationVersion: version,
			MethodType:           models.MethodTypeVolumeBased,
			Key:                  fmt.Sprintf("volume %s cu ft", formatAmount(request.TotalVolume)),
		}

	case models.MethodTypeFlatRate:
		for _, flat := range snapshot.FlatRates {
			if flat.ServiceType != request.ServiceType {
				continue
			}
			item := models.LineItem{
				Label:  fmt.Sprintf("Flat rate (%s)", flat.ServiceType),
				Amount: flat.Amount,
			}
			return flat.Amount, item, []usedRate{{Name: "flat_amount", Value: flat.Amount}}, nil
		}
		return 0, models.LineItem{}, nil, &RateNotFoundError{
			ConfigurationVersion: version,
			MethodType:           models.MethodTypeFlatRate,
			Key:                  fmt.Sprintf("service type %q", request.ServiceType),
		}
	}

	return 0, models.LineItem{}, nil, &RateNotFoundError{
		ConfigurationVersion: version,
		MethodType:           rule.MethodType,
		Key:                  "unknown method type",
	}
}

// computeHourly считает почасовую стоимость: ставка по классу дня, минимум часов
// из политики, сверхурочные после восьмого часа смены.
func computeHourly(snapshot *models.ConfigurationSnapshot, crewSize int, request *models.EstimateRequest, day models.DayClass) (float64, models.LineItem, []usedRate, error) {
	var entry *models.HourlyRate
	for i := range snapshot.HourlyRates {
		if snapshot.HourlyRates[i].CrewSize == crewSize {
			entry = &snapshot.HourlyRates[i]
			break
		}
	}
	if entry == nil {
		return 0, models.LineItem{}, nil, &RateNotFoundError{
			ConfigurationVersion: snapshot.Configuration.Version,
			MethodType:           models.MethodTypeHourly,
			Key:                  fmt.Sprintf("crew size %d", crewSize),
		}
	}

	// Неуказанные выходные/праздничные ставки откатываются к базовой
	rate := entry.BaseRate
	switch day {
	case models.DayClassWeekend:
		if entry.WeekendRate != nil {
			rate = *entry.WeekendRate
		}
	case models.DayClassHoliday:
		if entry.HolidayRate != nil {
			rate = *entry.HolidayRate
		}
	}

	minHours := minimumHoursFor(snapshot.Policy, day)
	billable := request.EstimatedHours
	if billable < minHours {
		billable = minHours
	}

	var amount float64
	if billable <= regularHoursPerDay {
		amount = rate * billable
	} else {
		amount = rate*regularHoursPerDay + rate*entry.OvertimeMultiplier*(billable-regularHoursPerDay)
	}

	rates := []usedRate{
		{Name: "hourly_base", Value: rate},
		{Name: "overtime_mult", Value: entry.OvertimeMultiplier},
		{Name: "min_hours", Value: minHours},
	}
	item := models.LineItem{
		Label:  fmt.Sprintf("Hourly labor (crew of %d)", crewSize),
		Amount: amount,
	}
	return amount, item, rates, nil
}

// minimumHoursFor возвращает минимальное число часов для класса дня
func minimumHoursFor(policy models.AutoPricingPolicy, day models.DayClass) float64 {
	switch day {
	case models.DayClassWeekend:
		return policy.MinimumHoursWeekend
	case models.DayClassHoliday:
		return policy.MinimumHoursHoliday
	default:
		return policy.MinimumHoursWeekday
	}
}

// tierContains проверяет попадание значения в ступень [min, max).
// Последняя ступень включает верхнюю границу; нулевая граница означает
// неограниченную ступень.
func tierContains(min, max float64, last bool, value float64) bool {
	if value < min {
		return false
	}
	if max == 0 {
		return true
	}
	if last {
		return value <= max
	}
	return value < max
}

// applyMinimumCharge поднимает сумму до минимальной стоимости ступени
func applyMinimumCharge(amount float64, minimum *float64, rates []usedRate) (float64, []usedRate) {
	if minimum == nil {
		return amount, rates
	}
	rates = append(rates, usedRate{Name: "min_charge", Value: *minimum})
	if amount < *minimum {
		amount = *minimum
	}
	return amount, rates
}

// formatAmount печатает число без хвостовых нулей
func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
