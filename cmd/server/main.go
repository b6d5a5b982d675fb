package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricing-system/internal/apperror"
	"pricing-system/internal/config"
	"pricing-system/internal/database"
	"pricing-system/internal/handlers"
	"pricing-system/internal/kafka"
	"pricing-system/internal/logger"
	"pricing-system/internal/models"
	"pricing-system/internal/redis"
	"pricing-system/internal/services"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	producer  *kafka.Producer
	consumer  *kafka.Consumer
	tariffs   *services.TariffService
	estimates *services.EstimateService
	mux       *http.ServeMux
	server    *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting pricing system server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.consumer.Stop()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	tariffStore := services.NewTariffStore(db, log)
	tariffService := services.NewTariffService(tariffStore, redisClient, log, &cfg.Tariff)
	calendar := services.NewHolidayCalendar(&cfg.Holiday, log)
	estimateService := services.NewEstimateService(tariffService, calendar, log)

	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck)

	registerEventHandlers(consumer, tariffService, estimateService, producer, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(healthHandler)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		producer:  producer,
		consumer:  consumer,
		tariffs:   tariffService,
		estimates: estimateService,
		mux:       mux,
		server:    server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(healthHandler *handlers.HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(healthHandler.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(healthHandler.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(healthHandler.Liveness))

	return mux
}

// registerEventHandlers регистрирует обработчики событий Kafka.
// События жизненного цикла тарифа сбрасывают кеш резолвера до подтверждения
// сообщения; запросы расчёта считаются и публикуются обратно.
func registerEventHandlers(consumer *kafka.Consumer, tariffs *services.TariffService, estimates *services.EstimateService, producer *kafka.Producer, log *logger.Logger) {
	invalidate := func(ctx context.Context, event *models.Event) error {
		if err := tariffs.Invalidate(ctx); err != nil {
			return fmt.Errorf("failed to invalidate tariff cache: %w", err)
		}

		fields := map[string]interface{}{
			"event_id": event.ID,
			"type":     event.Type,
		}
		var payload models.TariffEventPayload
		if len(event.Data) > 0 && json.Unmarshal(event.Data, &payload) == nil {
			fields["configuration_id"] = payload.ConfigurationID
			fields["version"] = payload.Version
		}
		log.WithFields(fields).Info("Tariff cache invalidated on lifecycle event")
		return nil
	}
	consumer.RegisterHandler(models.EventTypeTariffActivated, invalidate)
	consumer.RegisterHandler(models.EventTypeTariffUpdated, invalidate)
	consumer.RegisterHandler(models.EventTypeTariffArchived, invalidate)

	consumer.RegisterHandler(models.EventTypeEstimateRequested, func(ctx context.Context, event *models.Event) error {
		var payload models.EstimateRequestedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal estimate request: %w", err)
		}

		asOf := payload.Request.MoveDate
		if payload.AsOfDate != "" {
			parsed, err := time.Parse("2006-01-02", payload.AsOfDate)
			if err != nil {
				return fmt.Errorf("failed to parse as-of date %q: %w", payload.AsOfDate, err)
			}
			asOf = parsed
		}

		result, err := estimates.CalculateEstimate(ctx, &payload.Request, asOf)
		if err != nil {
			// Детерминированные ошибки данных публикуются как результат,
			// а не ретраятся
			var appErr *apperror.Error
			if errors.As(err, &appErr) {
				log.WithError(err).WithField("request_id", payload.RequestID).Warn("Estimate calculation rejected")
				return producer.PublishEstimateFailed(payload.RequestID, string(appErr.Kind), appErr.Error())
			}
			return fmt.Errorf("failed to calculate estimate: %w", err)
		}

		return producer.PublishEstimateCalculated(payload.RequestID, result)
	})
}

// corsMiddleware добавляет CORS заголовки
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
