package models

import (
	"time"

	"github.com/google/uuid"
)

// SiteCondition представляет осложняющее условие на одной стороне перевозки
type SiteCondition struct {
	Category HandicapCategory `json:"category"`
	Units    int              `json:"units,omitempty"`
}

// EstimateRequest представляет запрос на расчёт стоимости переезда
type EstimateRequest struct {
	MoveDate           time.Time       `json:"move_date"`
	ServiceType        string          `json:"service_type"`
	EstimatedHours     float64         `json:"estimated_hours"`
	TotalWeight        float64         `json:"total_weight"`
	TotalVolume        float64         `json:"total_volume"`
	DistanceMiles      float64         `json:"distance_miles"`
	RequestedCrewSize  int             `json:"requested_crew_size"`
	PickupConditions   []SiteCondition `json:"pickup_conditions,omitempty"`
	DeliveryConditions []SiteCondition `json:"delivery_conditions,omitempty"`
	SpecialItems       []string        `json:"special_items,omitempty"`
}

// LineItem представляет одну строку детализации стоимости
type LineItem struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// AppliedRule представляет применённое правило с его вкладом в стоимость
type AppliedRule struct {
	RuleID      string  `json:"rule_id"`
	RuleName    string  `json:"rule_name"`
	PriceImpact float64 `json:"price_impact"`
}

// EstimateResult представляет результат расчёта стоимости
type EstimateResult struct {
	FinalPrice           float64       `json:"final_price"`
	Breakdown            []LineItem    `json:"breakdown"`
	AppliedRules         []AppliedRule `json:"applied_rules"`
	ConfigurationID      uuid.UUID     `json:"configuration_id"`
	ConfigurationVersion string        `json:"configuration_version"`
	MethodType           MethodType    `json:"method_type"`
	CrewSize             int           `json:"crew_size"`
	CapacityNote         string        `json:"capacity_note,omitempty"`
	DeterministicHash    string        `json:"deterministic_hash"`
	GeneratedAt          time.Time     `json:"generated_at"`
}
