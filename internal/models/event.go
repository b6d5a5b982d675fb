package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события в системе
type EventType string

const (
	EventTypeTariffActivated    EventType = "tariff.activated"
	EventTypeTariffUpdated      EventType = "tariff.updated"
	EventTypeTariffArchived     EventType = "tariff.archived"
	EventTypeEstimateRequested  EventType = "estimate.requested"
	EventTypeEstimateCalculated EventType = "estimate.calculated"
	EventTypeEstimateFailed     EventType = "estimate.failed"
)

// Event представляет событие Kafka
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TariffEventPayload представляет данные события жизненного цикла тарифа
type TariffEventPayload struct {
	ConfigurationID uuid.UUID `json:"configuration_id"`
	Version         string    `json:"version"`
}

// EstimateRequestedPayload представляет данные запроса расчёта через событие
type EstimateRequestedPayload struct {
	RequestID uuid.UUID       `json:"request_id"`
	AsOfDate  string          `json:"as_of_date,omitempty"`
	Request   EstimateRequest `json:"request"`
}

// EstimateCalculatedPayload представляет данные успешного расчёта
type EstimateCalculatedPayload struct {
	RequestID uuid.UUID       `json:"request_id"`
	Result    *EstimateResult `json:"result"`
}

// EstimateFailedPayload представляет данные неуспешного расчёта
type EstimateFailedPayload struct {
	RequestID uuid.UUID `json:"request_id"`
	ErrorKind string    `json:"error_kind"`
	Error     string    `json:"error"`
}
