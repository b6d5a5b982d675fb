package services

import (
	"fmt"
	"strings"

	"pricing-system/internal/models"
)

// Символические идентификаторы надбавок политики в журнале применённых правил
const (
	ruleIDWeekendSurcharge = "weekend_surcharge"
	ruleIDHolidaySurcharge = "holiday_surcharge"
)

// surchargeEntry — один вклад надбавки: строка детализации и её изолированная дельта
type surchargeEntry struct {
	RuleID string
	Label  string
	Amount float64
}

// ApplySurcharges наслаивает надбавки в фиксированном порядке: выходные,
// праздники, затем осложнения в порядке конфигурации. Порядок несёт смысл:
// процентные осложнения применяются к текущему промежуточному итогу.
// Выходная и праздничная надбавки считаются каждая от исходной базы и
// складываются без взаимного наложения.
func ApplySurcharges(base float64, snapshot *models.ConfigurationSnapshot, request *models.EstimateRequest, weekend, holiday bool) ([]surchargeEntry, []usedRate) {
	policy := snapshot.Policy

	var entries []surchargeEntry
	var rates []usedRate
	subtotal := base

	if policy.ApplyWeekendSurcharge && weekend {
		amount := base * policy.WeekendSurchargePercent / 100
		entries = append(entries, surchargeEntry{
			RuleID: ruleIDWeekendSurcharge,
			Label:  "Weekend surcharge",
			Amount: amount,
		})
		rates = append(rates, usedRate{Name: "weekend_pct", Value: policy.WeekendSurchargePercent})
		subtotal += amount
	}

	if policy.ApplyHolidaySurcharge && holiday {
		amount := base * policy.HolidaySurchargePercent / 100
		entries = append(entries, surchargeEntry{
			RuleID: ruleIDHolidaySurcharge,
			Label:  "Holiday surcharge",
			Amount: amount,
		})
		rates = append(rates, usedRate{Name: "holiday_pct", Value: policy.HolidaySurchargePercent})
		subtotal += amount
	}

	for _, handicap := range snapshot.Handicaps {
		if !handicap.IsActive {
			continue
		}

		// Сторона погрузки оценивается раньше стороны выгрузки
		for _, side := range [2]models.AppliesTo{models.AppliesToPickup, models.AppliesToDelivery} {
			if handicap.AppliesTo != models.AppliesToBoth && handicap.AppliesTo != side {
				continue
			}

			units, ok := sideConditionUnits(request, side, handicap.Category)
			if !ok {
				continue
			}

			var amount float64
			switch handicap.ChargeType {
			case models.ChargeTypeFixedFee:
				amount = handicap.Value
			case models.ChargeTypePercentage:
				amount = subtotal * handicap.Value / 100
			case models.ChargeTypePerUnit:
				amount = handicap.Value * float64(units)
			default:
				continue
			}

			entries = append(entries, surchargeEntry{
				RuleID: handicap.ID.String(),
				Label:  fmt.Sprintf("%s (%s)", titleCase(string(handicap.Category)), side),
				Amount: amount,
			})
			rates = append(rates, usedRate{
				Name:  fmt.Sprintf("handicap_%s_%s", handicap.Category, side),
				Value: handicap.Value,
			})
			subtotal += amount
		}
	}

	return entries, rates
}

// sideConditionUnits ищет условие категории на указанной стороне перевозки
func sideConditionUnits(request *models.EstimateRequest, side models.AppliesTo, category models.HandicapCategory) (int, bool) {
	conditions := request.PickupConditions
	if side == models.AppliesToDelivery {
		conditions = request.DeliveryConditions
	}
	for _, cond := range conditions {
		if cond.Category == category {
			return cond.Units, true
		}
	}
	return 0, false
}

// titleCase поднимает первую букву категории для строки детализации
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
