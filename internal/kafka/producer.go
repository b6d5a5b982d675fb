package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"pricing-system/internal/config"
	"pricing-system/internal/logger"
	"pricing-system/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer представляет продюсер событий Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создаёт новый продюсер Kafka
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает продюсер
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// publishEvent сериализует событие и отправляет его в указанный топик
func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"event_id":  event.ID,
		"type":      event.Type,
	}).Debug("Event published")

	return nil
}

// PublishEstimateCalculated публикует результат успешного расчёта
func (p *Producer) PublishEstimateCalculated(requestID uuid.UUID, result *models.EstimateResult) error {
	data, err := json.Marshal(models.EstimateCalculatedPayload{
		RequestID: requestID,
		Result:    result,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal estimate payload: %w", err)
	}

	event := models.Event{
		ID:        uuid.New(),
		Type:      models.EventTypeEstimateCalculated,
		Timestamp: time.Now(),
		Data:      data,
	}
	return p.publishEvent(p.topics.Estimates, event)
}

// PublishEstimateFailed публикует результат неуспешного расчёта
func (p *Producer) PublishEstimateFailed(requestID uuid.UUID, errorKind, errorMsg string) error {
	data, err := json.Marshal(models.EstimateFailedPayload{
		RequestID: requestID,
		ErrorKind: errorKind,
		Error:     errorMsg,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal estimate failure payload: %w", err)
	}

	event := models.Event{
		ID:        uuid.New(),
		Type:      models.EventTypeEstimateFailed,
		Timestamp: time.Now(),
		Data:      data,
	}
	return p.publishEvent(p.topics.Estimates, event)
}
