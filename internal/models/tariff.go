package models

import (
	"time"

	"github.com/google/uuid"
)

// MethodType представляет способ расчёта базовой стоимости
type MethodType string

const (
	MethodTypeHourly        MethodType = "hourly"
	MethodTypeDistanceBased MethodType = "distance_based"
	MethodTypeWeightBased   MethodType = "weight_based"
	MethodTypeFlatRate      MethodType = "flat_rate"
	MethodTypeVolumeBased   MethodType = "volume_based"
)

// ChargeType представляет способ начисления надбавки
type ChargeType string

const (
	ChargeTypeFixedFee   ChargeType = "fixed_fee"
	ChargeTypePercentage ChargeType = "percentage"
	ChargeTypePerUnit    ChargeType = "per_unit"
)

// HandicapCategory представляет категорию осложняющего условия
type HandicapCategory string

const (
	HandicapCategoryStairs   HandicapCategory = "stairs"
	HandicapCategoryElevator HandicapCategory = "elevator"
	HandicapCategoryAccess   HandicapCategory = "access"
	HandicapCategoryParking  HandicapCategory = "parking"
	HandicapCategoryLocation HandicapCategory = "location"
	HandicapCategorySeasonal HandicapCategory = "seasonal"
)

// AppliesTo представляет сторону перевозки, к которой применяется надбавка
type AppliesTo string

const (
	AppliesToPickup   AppliesTo = "pickup"
	AppliesToDelivery AppliesTo = "delivery"
	AppliesToBoth     AppliesTo = "both"
)

// ConditionOperator представляет оператор условия правила
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIn          ConditionOperator = "in"
	OperatorContains    ConditionOperator = "contains"
)

// DayClass представляет классификацию даты переезда
type DayClass string

const (
	DayClassWeekday DayClass = "weekday"
	DayClassWeekend DayClass = "weekend"
	DayClassHoliday DayClass = "holiday"
)

// RateConfiguration представляет версию тарифа
type RateConfiguration struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Version       string     `json:"version" db:"version"`
	EffectiveFrom time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" db:"effective_to"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// HourlyRate представляет почасовую ставку для размера бригады
type HourlyRate struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	ConfigurationID    uuid.UUID `json:"configuration_id" db:"configuration_id"`
	CrewSize           int       `json:"crew_size" db:"crew_size"`
	BaseRate           float64   `json:"base_rate" db:"base_rate"`
	WeekendRate        *float64  `json:"weekend_rate,omitempty" db:"weekend_rate"`
	HolidayRate        *float64  `json:"holiday_rate,omitempty" db:"holiday_rate"`
	OvertimeMultiplier float64   `json:"overtime_multiplier" db:"overtime_multiplier"`
}

// CrewAbility представляет предельную нагрузку для размера бригады
type CrewAbility struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ConfigurationID uuid.UUID `json:"configuration_id" db:"configuration_id"`
	CrewSize        int       `json:"crew_size" db:"crew_size"`
	MaxVolume       float64   `json:"max_volume" db:"max_volume"`
	MaxWeight       float64   `json:"max_weight" db:"max_weight"`
}

// DistanceRateTier представляет ступень тарифа по расстоянию
type DistanceRateTier struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ConfigurationID uuid.UUID `json:"configuration_id" db:"configuration_id"`
	MinMiles        float64   `json:"min_miles" db:"min_miles"`
	MaxMiles        float64   `json:"max_miles" db:"max_miles"`
	RatePerMile     float64   `json:"rate_per_mile" db:"rate_per_mile"`
	MinimumCharge   *float64  `json:"minimum_charge,omitempty" db:"minimum_charge"`
}

// WeightRateTier представляет ступень тарифа по весу
type WeightRateTier struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ConfigurationID uuid.UUID `json:"configuration_id" db:"configuration_id"`
	MinWeight       float64   `json:"min_weight" db:"min_weight"`
	MaxWeight       float64   `json:"max_weight" db:"max_weight"`
	RatePerPound    float64   `json:"rate_per_pound" db:"rate_per_pound"`
	MinimumCharge   *float64  `json:"minimum_charge,omitempty" db:"minimum_charge"`
}

// VolumeRateTier представляет ступень тарифа по объёму
type VolumeRateTier struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ConfigurationID  uuid.UUID `json:"configuration_id" db:"configuration_id"`
	MinVolume        float64   `json:"min_volume" db:"min_volume"`
	MaxVolume        float64   `json:"max_volume" db:"max_volume"`
	RatePerCubicFoot float64   `json:"rate_per_cubic_foot" db:"rate_per_cubic_foot"`
	MinimumCharge    *float64  `json:"minimum_charge,omitempty" db:"minimum_charge"`
}

// FlatRate представляет фиксированную стоимость для типа услуги
type FlatRate struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ConfigurationID uuid.UUID `json:"configuration_id" db:"configuration_id"`
	ServiceType     string    `json:"service_type" db:"service_type"`
	Amount          float64   `json:"amount" db:"amount"`
}

// Handicap представляет надбавку за осложняющее условие
type Handicap struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	ConfigurationID uuid.UUID        `json:"configuration_id" db:"configuration_id"`
	Category        HandicapCategory `json:"category" db:"category"`
	ChargeType      ChargeType       `json:"charge_type" db:"charge_type"`
	Value           float64          `json:"value" db:"value"`
	Unit            *string          `json:"unit,omitempty" db:"unit"`
	AppliesTo       AppliesTo        `json:"applies_to" db:"applies_to"`
	IsActive        bool             `json:"is_active" db:"is_active"`
	Position        int              `json:"position" db:"position"`
}

// RuleCondition представляет одно условие правила выбора метода
type RuleCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

// PricingMethodRule представляет правило выбора метода расчёта
type PricingMethodRule struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ConfigurationID uuid.UUID       `json:"configuration_id" db:"configuration_id"`
	MethodType      MethodType      `json:"method_type" db:"method_type"`
	Enabled         bool            `json:"enabled" db:"enabled"`
	IsDefault       bool            `json:"is_default" db:"is_default"`
	Priority        int             `json:"priority" db:"priority"`
	Conditions      []RuleCondition `json:"conditions"`
}

// AutoPricingPolicy представляет политику автоматического расчёта
type AutoPricingPolicy struct {
	ConfigurationID         uuid.UUID `json:"configuration_id" db:"configuration_id"`
	MaxHoursPerJob          float64   `json:"max_hours_per_job" db:"max_hours_per_job"`
	UseCrewAbilityLimits    bool      `json:"use_crew_ability_limits" db:"use_crew_ability_limits"`
	ApplyWeekendSurcharge   bool      `json:"apply_weekend_surcharge" db:"apply_weekend_surcharge"`
	WeekendSurchargePercent float64   `json:"weekend_surcharge_percent" db:"weekend_surcharge_percent"`
	ApplyHolidaySurcharge   bool      `json:"apply_holiday_surcharge" db:"apply_holiday_surcharge"`
	HolidaySurchargePercent float64   `json:"holiday_surcharge_percent" db:"holiday_surcharge_percent"`
	MinimumHoursWeekday     float64   `json:"minimum_hours_weekday" db:"minimum_hours_weekday"`
	MinimumHoursWeekend     float64   `json:"minimum_hours_weekend" db:"minimum_hours_weekend"`
	MinimumHoursHoliday     float64   `json:"minimum_hours_holiday" db:"minimum_hours_holiday"`
}

// ConfigurationSnapshot представляет неизменяемый срез тарифа со всеми таблицами ставок.
// Снимок собирается резолвером, валидируется при построении и кешируется целиком.
type ConfigurationSnapshot struct {
	Configuration RateConfiguration   `json:"configuration"`
	HourlyRates   []HourlyRate        `json:"hourly_rates"`
	CrewAbilities []CrewAbility       `json:"crew_abilities"`
	DistanceTiers []DistanceRateTier  `json:"distance_tiers"`
	WeightTiers   []WeightRateTier    `json:"weight_tiers"`
	VolumeTiers   []VolumeRateTier    `json:"volume_tiers"`
	FlatRates     []FlatRate          `json:"flat_rates"`
	Handicaps     []Handicap          `json:"handicaps"`
	Rules         []PricingMethodRule `json:"rules"`
	Policy        AutoPricingPolicy   `json:"policy"`
}
