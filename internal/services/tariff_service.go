package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pricing-system/internal/config"
	"pricing-system/internal/logger"
	"pricing-system/internal/models"
	"pricing-system/internal/redis"
)

// TariffService резолвит действующую конфигурацию тарифа на дату расчёта.
// Снимки неизменяемы и кешируются в Redis целиком; недоступность Redis
// деградирует до прямых чтений из базы.
type TariffService struct {
	store        *TariffStore
	redis        *redis.Client
	log          *logger.Logger
	cacheTTL     time.Duration
	cacheEnabled bool
}

// NewTariffService создает резолвер тарифов
func NewTariffService(store *TariffStore, redisClient *redis.Client, log *logger.Logger, cfg *config.TariffConfig) *TariffService {
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TariffService{
		store:        store,
		redis:        redisClient,
		log:          log,
		cacheTTL:     ttl,
		cacheEnabled: cfg.CacheEnabled,
	}
}

// Resolve возвращает снимок действующей конфигурации на дату.
// Кеш сквозной: промах уходит в Postgres, собранный и проверенный снимок
// пишется обратно (best effort).
func (s *TariffService) Resolve(ctx context.Context, date time.Time) (*models.ConfigurationSnapshot, error) {
	day := date.Format("2006-01-02")

	if snapshot := s.tryGetCachedSnapshot(ctx, day); snapshot != nil {
		return snapshot, nil
	}

	cfg, err := s.store.GetActiveConfiguration(ctx, date)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.store.GetSnapshot(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := prepareSnapshot(snapshot); err != nil {
		return nil, err
	}

	s.saveSnapshotToCache(ctx, day, snapshot)
	return snapshot, nil
}

// Invalidate синхронно сбрасывает весь кеш тарифов.
// Вызывается из обработчиков событий жизненного цикла тарифа до подтверждения
// сообщения, чтобы никто не увидел устаревший снимок после записи.
func (s *TariffService) Invalidate(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	if err := s.redis.DeleteByPrefix(ctx, redis.KeyPrefixTariff); err != nil {
		return err
	}
	s.log.Info("Tariff cache invalidated")
	return nil
}

func (s *TariffService) tryGetCachedSnapshot(ctx context.Context, day string) *models.ConfigurationSnapshot {
	if s.redis == nil || !s.cacheEnabled {
		return nil
	}

	var id string
	if err := s.redis.Get(ctx, redis.GenerateKey(redis.KeyPrefixActiveTariff, day), &id); err != nil {
		return nil
	}

	var snapshot models.ConfigurationSnapshot
	if err := s.redis.Get(ctx, redis.GenerateKey(redis.KeyPrefixTariffSnapshot, id), &snapshot); err != nil {
		return nil
	}
	return &snapshot
}

func (s *TariffService) saveSnapshotToCache(ctx context.Context, day string, snapshot *models.ConfigurationSnapshot) {
	if s.redis == nil || !s.cacheEnabled {
		return
	}

	id := snapshot.Configuration.ID.String()
	if err := s.redis.Set(ctx, redis.GenerateKey(redis.KeyPrefixActiveTariff, day), id, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("date", day).Warn("Failed to cache active tariff id")
		return
	}
	if err := s.redis.Set(ctx, redis.GenerateKey(redis.KeyPrefixTariffSnapshot, id), snapshot, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("configuration_id", id).Warn("Failed to cache tariff snapshot")
	}
}

// prepareSnapshot сортирует таблицы ставок и проверяет целостность конфигурации.
// После успешной подготовки путь расчёта полагается на инварианты безусловно:
// ровно одно правило по умолчанию, известные операторы и поля условий,
// отсортированные ступени и способности бригад.
func prepareSnapshot(snapshot *models.ConfigurationSnapshot) error {
	sort.SliceStable(snapshot.Rules, func(i, j int) bool {
		return snapshot.Rules[i].Priority < snapshot.Rules[j].Priority
	})
	sort.Slice(snapshot.HourlyRates, func(i, j int) bool {
		return snapshot.HourlyRates[i].CrewSize < snapshot.HourlyRates[j].CrewSize
	})
	sort.Slice(snapshot.CrewAbilities, func(i, j int) bool {
		return snapshot.CrewAbilities[i].CrewSize < snapshot.CrewAbilities[j].CrewSize
	})
	sort.Slice(snapshot.DistanceTiers, func(i, j int) bool {
		return snapshot.DistanceTiers[i].MinMiles < snapshot.DistanceTiers[j].MinMiles
	})
	sort.Slice(snapshot.WeightTiers, func(i, j int) bool {
		return snapshot.WeightTiers[i].MinWeight < snapshot.WeightTiers[j].MinWeight
	})
	sort.Slice(snapshot.VolumeTiers, func(i, j int) bool {
		return snapshot.VolumeTiers[i].MinVolume < snapshot.VolumeTiers[j].MinVolume
	})
	sort.Slice(snapshot.Handicaps, func(i, j int) bool {
		return snapshot.Handicaps[i].Position < snapshot.Handicaps[j].Position
	})

	defaults := 0
	for _, rule := range snapshot.Rules {
		if rule.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return &NoMatchingPricingMethodError{
			ConfigurationID: snapshot.Configuration.ID,
			Version:         snapshot.Configuration.Version,
			Reason:          fmt.Sprintf("expected exactly one default rule, found %d", defaults),
		}
	}

	for _, rule := range snapshot.Rules {
		for _, cond := range rule.Conditions {
			if !validConditionOperators[cond.Operator] || !knownConditionFields[cond.Field] {
				return &InvalidConditionOperatorError{
					RuleID:   rule.ID,
					Field:    cond.Field,
					Operator: cond.Operator,
				}
			}
		}
	}

	return nil
}
