package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pricing-system/internal/apperror"
	"pricing-system/internal/logger"
	"pricing-system/internal/models"
)

// EstimateService оркестрирует расчёт стоимости: снимок тарифа, выбор метода,
// планирование бригады, базовая стоимость, надбавки, сборка результата.
// Расчёт — чистая функция от (снимок, запрос); любые ошибки движка
// детерминированы и не ретраятся.
type EstimateService struct {
	tariffs  *TariffService
	calendar *HolidayCalendar
	log      *logger.Logger
}

// NewEstimateService создает сервис расчёта стоимости
func NewEstimateService(tariffs *TariffService, calendar *HolidayCalendar, log *logger.Logger) *EstimateService {
	return &EstimateService{
		tariffs:  tariffs,
		calendar: calendar,
		log:      log,
	}
}

// CalculateEstimate считает стоимость переезда по действующему на дату тарифу.
// Идентичные входы против одной версии конфигурации всегда дают идентичные
// finalPrice и deterministicHash.
func (s *EstimateService) CalculateEstimate(ctx context.Context, request *models.EstimateRequest, asOfDate time.Time) (*models.EstimateResult, error) {
	snapshot, err := s.tariffs.Resolve(ctx, asOfDate)
	if err != nil {
		return nil, wrapEngineError(err)
	}

	if err := validateRequest(request, snapshot.Policy); err != nil {
		return nil, err
	}

	weekend := isWeekendDate(request.MoveDate)
	holiday := s.calendar.IsHoliday(request.MoveDate)
	day := classifyDay(weekend, holiday)

	rule, err := SelectPricingMethod(snapshot, request)
	if err != nil {
		return nil, wrapEngineError(err)
	}

	crewSize, capacityNote, err := PlanCrew(snapshot, request)
	if err != nil {
		return nil, wrapEngineError(err)
	}

	base, baseItem, baseRates, err := ComputeBase(snapshot, rule, crewSize, request, day)
	if err != nil {
		return nil, wrapEngineError(err)
	}

	surcharges, surchargeRates := ApplySurcharges(base, snapshot, request, weekend, holiday)

	result := assembleEstimate(snapshot, rule, request, crewSize, capacityNote,
		base, baseItem, surcharges, append(baseRates, surchargeRates...))

	s.log.WithFields(map[string]interface{}{
		"configuration_id":      result.ConfigurationID,
		"configuration_version": result.ConfigurationVersion,
		"method_type":           result.MethodType,
		"crew_size":             result.CrewSize,
		"final_price":           result.FinalPrice,
		"hash":                  result.DeterministicHash,
	}).Info("Estimate calculated")

	return result, nil
}

// assembleEstimate суммирует вклады, округляет ровно один раз и собирает
// журнал применённых правил с детерминированным хешем.
func assembleEstimate(snapshot *models.ConfigurationSnapshot, rule *models.PricingMethodRule, request *models.EstimateRequest, crewSize int, capacityNote string, base float64, baseItem models.LineItem, surcharges []surchargeEntry, rates []usedRate) *models.EstimateResult {
	total := base
	breakdown := make([]models.LineItem, 0, 1+len(surcharges))
	applied := make([]models.AppliedRule, 0, 1+len(surcharges))

	breakdown = append(breakdown, baseItem)
	applied = append(applied, models.AppliedRule{
		RuleID:      rule.ID.String(),
		RuleName:    baseItem.Label,
		PriceImpact: base,
	})

	for _, entry := range surcharges {
		total += entry.Amount
		breakdown = append(breakdown, models.LineItem{Label: entry.Label, Amount: entry.Amount})
		applied = append(applied, models.AppliedRule{
			RuleID:      entry.RuleID,
			RuleName:    entry.Label,
			PriceImpact: entry.Amount,
		})
	}

	return &models.EstimateResult{
		FinalPrice:           round2(total),
		Breakdown:            breakdown,
		AppliedRules:         applied,
		ConfigurationID:      snapshot.Configuration.ID,
		ConfigurationVersion: snapshot.Configuration.Version,
		MethodType:           rule.MethodType,
		CrewSize:             crewSize,
		CapacityNote:         capacityNote,
		DeterministicHash:    deterministicHash(snapshot, rates, request),
		GeneratedAt:          time.Now().UTC(),
	}
}

// deterministicHash считает SHA-256 над канонической сериализацией:
// идентификатор и версия конфигурации, каждая применённая ставка в порядке
// использования, затем поля запроса в фиксированном порядке. GeneratedAt
// в хеш не входит.
func deterministicHash(snapshot *models.ConfigurationSnapshot, rates []usedRate, request *models.EstimateRequest) string {
	parts := make([]string, 0, 12+len(rates))
	parts = append(parts,
		"cfg:"+snapshot.Configuration.ID.String(),
		"ver:"+snapshot.Configuration.Version,
	)
	for _, rate := range rates {
		parts = append(parts, fmt.Sprintf("rate:%s=%s", rate.Name, formatAmount(rate.Value)))
	}
	parts = append(parts,
		"req:"+request.MoveDate.Format("2006-01-02"),
		request.ServiceType,
		formatAmount(request.EstimatedHours),
		formatAmount(request.TotalWeight),
		formatAmount(request.TotalVolume),
		formatAmount(request.DistanceMiles),
		strconv.Itoa(request.RequestedCrewSize),
		joinSiteConditions(request.PickupConditions),
		joinSiteConditions(request.DeliveryConditions),
		strings.Join(request.SpecialItems, ","),
	)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// joinSiteConditions кодирует условия стороны в порядке запроса
func joinSiteConditions(conditions []models.SiteCondition) string {
	if len(conditions) == 0 {
		return ""
	}
	parts := make([]string, len(conditions))
	for i, cond := range conditions {
		parts[i] = fmt.Sprintf("%s:%d", cond.Category, cond.Units)
	}
	return strings.Join(parts, ",")
}

// validateRequest отклоняет некорректные запросы до начала расчёта
func validateRequest(request *models.EstimateRequest, policy models.AutoPricingPolicy) error {
	if request.MoveDate.IsZero() {
		return apperror.Validation("move date is required", nil)
	}
	if request.RequestedCrewSize <= 0 {
		return apperror.Validation("requested crew size must be positive", nil)
	}
	if request.EstimatedHours < 0 || request.TotalWeight < 0 || request.TotalVolume < 0 || request.DistanceMiles < 0 {
		return apperror.Validation("negative measures are not allowed", nil)
	}
	if policy.MaxHoursPerJob > 0 && request.EstimatedHours > policy.MaxHoursPerJob {
		return apperror.Validation(
			fmt.Sprintf("estimated hours %s exceed the policy maximum %s",
				formatAmount(request.EstimatedHours), formatAmount(policy.MaxHoursPerJob)), nil)
	}
	return nil
}

// wrapEngineError классифицирует ошибку движка по apperror.Kind, сохраняя
// конкретный тип для errors.As. Ошибки конфигурации чинит оператор,
// ошибки вместимости — вызывающая сторона.
func wrapEngineError(err error) error {
	var (
		noActive  *NoActiveConfigurationError
		noMethod  *NoMatchingPricingMethodError
		noRate    *RateNotFoundError
		badCond   *InvalidConditionOperatorError
		overloads *CapacityExceededError
	)
	switch {
	case errors.As(err, &noActive), errors.As(err, &noMethod),
		errors.As(err, &noRate), errors.As(err, &badCond):
		return apperror.Configuration(err.Error(), err)
	case errors.As(err, &overloads):
		return apperror.Capacity(err.Error(), err)
	}
	return err
}

// round2 округляет до двух знаков, половина вверх, ровно один раз в конце
func round2(value float64) float64 {
	return math.Floor(value*100+0.5) / 100
}
