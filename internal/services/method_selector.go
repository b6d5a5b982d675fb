package services

import (
	"fmt"
	"strconv"

	"pricing-system/internal/models"
)

// Поля запроса, допустимые в условиях правил выбора метода
const (
	conditionFieldServiceType    = "service_type"
	conditionFieldDistanceMiles  = "distance_miles"
	conditionFieldTotalWeight    = "total_weight"
	conditionFieldTotalVolume    = "total_volume"
	conditionFieldCrewSize       = "crew_size"
	conditionFieldEstimatedHours = "estimated_hours"
	conditionFieldSpecialItems   = "special_items"
)

var knownConditionFields = map[string]bool{
	conditionFieldServiceType:    true,
	conditionFieldDistanceMiles:  true,
	conditionFieldTotalWeight:    true,
	conditionFieldTotalVolume:    true,
	conditionFieldCrewSize:       true,
	conditionFieldEstimatedHours: true,
	conditionFieldSpecialItems:   true,
}

var validConditionOperators = map[models.ConditionOperator]bool{
	models.OperatorEquals:      true,
	models.OperatorNotEquals:   true,
	models.OperatorGreaterThan: true,
	models.OperatorLessThan:    true,
	models.OperatorIn:          true,
	models.OperatorContains:    true,
}

// SelectPricingMethod выбирает ровно одно правило расчёта для запроса.
// Правила уже отсортированы по приоритету при сборке снимка; берётся первое
// включённое правило, все условия которого истинны (пустой список совпадает
// безусловно). Если ни одно не совпало, возвращается включённое правило по
// умолчанию.
func SelectPricingMethod(snapshot *models.ConfigurationSnapshot, request *models.EstimateRequest) (*models.PricingMethodRule, error) {
	var fallback *models.PricingMethodRule
	enabled := 0

	for i := range snapshot.Rules {
		rule := &snapshot.Rules[i]
		if !rule.Enabled {
			continue
		}
		enabled++

		if rule.IsDefault && fallback == nil {
			fallback = rule
		}
		if conditionsMatch(rule.Conditions, request) {
			return rule, nil
		}
	}

	if enabled == 0 {
		return nil, &NoMatchingPricingMethodError{
			ConfigurationID: snapshot.Configuration.ID,
			Version:         snapshot.Configuration.Version,
			Reason:          "no enabled pricing method rules",
		}
	}
	if fallback == nil {
		return nil, &NoMatchingPricingMethodError{
			ConfigurationID: snapshot.Configuration.ID,
			Version:         snapshot.Configuration.Version,
			Reason:          "no rule matched and the default rule is disabled",
		}
	}
	return fallback, nil
}

// conditionsMatch проверяет, что все условия правила истинны для запроса
func conditionsMatch(conditions []models.RuleCondition, request *models.EstimateRequest) bool {
	for _, cond := range conditions {
		if !evaluateCondition(cond, request) {
			return false
		}
	}
	return true
}

// evaluateCondition вычисляет одно условие. Числовые операторы приводят обе
// стороны к float64; провал приведения делает ложным условие, а не весь расчёт.
func evaluateCondition(cond models.RuleCondition, request *models.EstimateRequest) bool {
	fieldValue := requestFieldValue(cond.Field, request)

	switch cond.Operator {
	case models.OperatorEquals:
		return valuesEqual(fieldValue, cond.Value)
	case models.OperatorNotEquals:
		return !valuesEqual(fieldValue, cond.Value)
	case models.OperatorGreaterThan:
		left, lok := toFloat(fieldValue)
		right, rok := toFloat(cond.Value)
		return lok && rok && left > right
	case models.OperatorLessThan:
		left, lok := toFloat(fieldValue)
		right, rok := toFloat(cond.Value)
		return lok && rok && left < right
	case models.OperatorIn:
		for _, item := range toSequence(cond.Value) {
			if valuesEqual(fieldValue, item) {
				return true
			}
		}
		return false
	case models.OperatorContains:
		for _, item := range toSequence(fieldValue) {
			if valuesEqual(item, cond.Value) {
				return true
			}
		}
		return false
	}

	// Неизвестные операторы отсекаются при сборке снимка
	return false
}

// requestFieldValue возвращает значение поля запроса по имени из закрытого списка
func requestFieldValue(field string, request *models.EstimateRequest) interface{} {
	switch field {
	case conditionFieldServiceType:
		return request.ServiceType
	case conditionFieldDistanceMiles:
		return request.DistanceMiles
	case conditionFieldTotalWeight:
		return request.TotalWeight
	case conditionFieldTotalVolume:
		return request.TotalVolume
	case conditionFieldCrewSize:
		return float64(request.RequestedCrewSize)
	case conditionFieldEstimatedHours:
		return request.EstimatedHours
	case conditionFieldSpecialItems:
		return request.SpecialItems
	}
	return nil
}

// valuesEqual сравнивает значения числами, когда обе стороны приводимы, иначе строками
func valuesEqual(left, right interface{}) bool {
	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			return lf == rf
		}
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

// toFloat приводит значение условия к float64
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// toSequence разворачивает значение-последовательность в срез элементов
func toSequence(value interface{}) []interface{} {
	switch v := value.(type) {
	case []interface{}:
		return v
	case []string:
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items
	}
	return nil
}
