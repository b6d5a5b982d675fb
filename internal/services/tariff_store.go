package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pricing-system/internal/apperror"
	"pricing-system/internal/database"
	"pricing-system/internal/logger"
	"pricing-system/internal/models"

	"github.com/google/uuid"
)

// TariffStore представляет хранилище тарифных конфигураций
type TariffStore struct {
	db  *database.DB
	log *logger.Logger
}

// NewTariffStore создает новый экземпляр хранилища тарифов
func NewTariffStore(db *database.DB, log *logger.Logger) *TariffStore {
	return &TariffStore{
		db:  db,
		log: log,
	}
}

// GetActiveConfiguration возвращает действующую конфигурацию на дату.
// При нескольких кандидатах берётся самая поздняя по effective_from, затем по версии,
// с предупреждением о нарушении целостности активации.
func (s *TariffStore) GetActiveConfiguration(ctx context.Context, date time.Time) (*models.RateConfiguration, error) {
	query := `
		SELECT id, name, version, effective_from, effective_to, is_active, created_at
		FROM rate_configurations
		WHERE is_active = TRUE
		  AND effective_from <= $1
		  AND (effective_to IS NULL OR effective_to >= $1)
		ORDER BY effective_from DESC, version DESC
	`

	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get active configuration: %w", err)
	}
	defer rows.Close()

	var configs []*models.RateConfiguration
	for rows.Next() {
		cfg := &models.RateConfiguration{}
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.Version, &cfg.EffectiveFrom,
			&cfg.EffectiveTo, &cfg.IsActive, &cfg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rate configuration: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rate configurations: %w", err)
	}

	if len(configs) == 0 {
		return nil, &NoActiveConfigurationError{Date: date}
	}
	if len(configs) > 1 {
		s.log.WithFields(map[string]interface{}{
			"date":    date.Format("2006-01-02"),
			"matches": len(configs),
			"picked":  configs[0].ID,
		}).Warn("Multiple active rate configurations match date, picking latest")
	}

	return configs[0], nil
}

// GetConfigurationByID возвращает конфигурацию по идентификатору
func (s *TariffStore) GetConfigurationByID(ctx context.Context, id uuid.UUID) (*models.RateConfiguration, error) {
	cfg := &models.RateConfiguration{}

	query := `
		SELECT id, name, version, effective_from, effective_to, is_active, created_at
		FROM rate_configurations
		WHERE id = $1
	`

	err := s.db.QueryRowContext(ctx, query, id).Scan(&cfg.ID, &cfg.Name, &cfg.Version,
		&cfg.EffectiveFrom, &cfg.EffectiveTo, &cfg.IsActive, &cfg.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("rate configuration not found", err)
		}
		return nil, fmt.Errorf("failed to get rate configuration: %w", err)
	}

	return cfg, nil
}

// GetSnapshot загружает все таблицы ставок для конфигурации
func (s *TariffStore) GetSnapshot(ctx context.Context, cfg *models.RateConfiguration) (*models.ConfigurationSnapshot, error) {
	snapshot := &models.ConfigurationSnapshot{Configuration: *cfg}

	var err error
	if snapshot.HourlyRates, err = s.loadHourlyRates(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.CrewAbilities, err = s.loadCrewAbilities(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.DistanceTiers, err = s.loadDistanceTiers(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.WeightTiers, err = s.loadWeightTiers(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.VolumeTiers, err = s.loadVolumeTiers(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.FlatRates, err = s.loadFlatRates(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.Handicaps, err = s.loadHandicaps(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.Rules, err = s.loadRules(ctx, cfg.ID); err != nil {
		return nil, err
	}
	if snapshot.Policy, err = s.loadPolicy(ctx, cfg.ID); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (s *TariffStore) loadHourlyRates(ctx context.Context, configurationID uuid.UUID) ([]models.HourlyRate, error) {
	query := `
		SELECT id, configuration_id, crew_size, base_rate, weekend_rate, holiday_rate, overtime_multiplier
		FROM hourly_rates
		WHERE configuration_id = $1
		ORDER BY crew_size
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly rates: %w", err)
	}
	defer rows.Close()

	var rates []models.HourlyRate
	for rows.Next() {
		var rate models.HourlyRate
		if err := rows.Scan(&rate.ID, &rate.ConfigurationID, &rate.CrewSize, &rate.BaseRate,
			&rate.WeekendRate, &rate.HolidayRate, &rate.OvertimeMultiplier); err != nil {
			return nil, fmt.Errorf("failed to scan hourly rate: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hourly rates: %w", err)
	}

	return rates, nil
}

func (s *TariffStore) loadCrewAbilities(ctx context.Context, configurationID uuid.UUID) ([]models.CrewAbility, error) {
	query := `
		SELECT id, configuration_id, crew_size, max_volume, max_weight
		FROM crew_abilities
		WHERE configuration_id = $1
		ORDER BY crew_size
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get crew abilities: %w", err)
	}
	defer rows.Close()

	var abilities []models.CrewAbility
	for rows.Next() {
		var ability models.CrewAbility
		if err := rows.Scan(&ability.ID, &ability.ConfigurationID, &ability.CrewSize,
			&ability.MaxVolume, &ability.MaxWeight); err != nil {
			return nil, fmt.Errorf("failed to scan crew ability: %w", err)
		}
		abilities = append(abilities, ability)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate crew abilities: %w", err)
	}

	return abilities, nil
}

func (s *TariffStore) loadDistanceTiers(ctx context.Context, configurationID uuid.UUID) ([]models.DistanceRateTier, error) {
	query := `
		SELECT id, configuration_id, min_miles, max_miles, rate_per_mile, minimum_charge
		FROM distance_rate_tiers
		WHERE configuration_id = $1
		ORDER BY min_miles
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get distance rate tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.DistanceRateTier
	for rows.Next() {
		var tier models.DistanceRateTier
		if err := rows.Scan(&tier.ID, &tier.ConfigurationID, &tier.MinMiles, &tier.MaxMiles,
			&tier.RatePerMile, &tier.MinimumCharge); err != nil {
			return nil, fmt.Errorf("failed to scan distance rate tier: %w", err)
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate distance rate tiers: %w", err)
	}

	return tiers, nil
}

func (s *TariffStore) loadWeightTiers(ctx context.Context, configurationID uuid.UUID) ([]models.WeightRateTier, error) {
	query := `
		SELECT id, configuration_id, min_weight, max_weight, rate_per_pound, minimum_charge
		FROM weight_rate_tiers
		WHERE configuration_id = $1
		ORDER BY min_weight
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get weight rate tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.WeightRateTier
	for rows.Next() {
		var tier models.WeightRateTier
		if err := rows.Scan(&tier.ID, &tier.ConfigurationID, &tier.MinWeight, &tier.MaxWeight,
			&tier.RatePerPound, &tier.MinimumCharge); err != nil {
			return nil, fmt.Errorf("failed to scan weight rate tier: %w", err)
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weight rate tiers: %w", err)
	}

	return tiers, nil
}

func (s *TariffStore) loadVolumeTiers(ctx context.Context, configurationID uuid.UUID) ([]models.VolumeRateTier, error) {
	query := `
		SELECT id, configuration_id, min_volume, max_volume, rate_per_cubic_foot, minimum_charge
		FROM volume_rate_tiers
		WHERE configuration_id = $1
		ORDER BY min_volume
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get volume rate tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.VolumeRateTier
	for rows.Next() {
		var tier models.VolumeRateTier
		if err := rows.Scan(&tier.ID, &tier.ConfigurationID, &tier.MinVolume, &tier.MaxVolume,
			&tier.RatePerCubicFoot, &tier.MinimumCharge); err != nil {
			return nil, fmt.Errorf("failed to scan volume rate tier: %w", err)
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate volume rate tiers: %w", err)
	}

	return tiers, nil
}

func (s *TariffStore) loadFlatRates(ctx context.Context, configurationID uuid.UUID) ([]models.FlatRate, error) {
	query := `
		SELECT id, configuration_id, service_type, amount
		FROM flat_rates
		WHERE configuration_id = $1
		ORDER BY service_type
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get flat rates: %w", err)
	}
	defer rows.Close()

	var rates []models.FlatRate
	for rows.Next() {
		var rate models.FlatRate
		if err := rows.Scan(&rate.ID, &rate.ConfigurationID, &rate.ServiceType, &rate.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan flat rate: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flat rates: %w", err)
	}

	return rates, nil
}

func (s *TariffStore) loadHandicaps(ctx context.Context, configurationID uuid.UUID) ([]models.Handicap, error) {
	query := `
		SELECT id, configuration_id, category, charge_type, value, unit, applies_to, is_active, position
		FROM handicaps
		WHERE configuration_id = $1
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get handicaps: %w", err)
	}
	defer rows.Close()

	var handicaps []models.Handicap
	for rows.Next() {
		var handicap models.Handicap
		if err := rows.Scan(&handicap.ID, &handicap.ConfigurationID, &handicap.Category,
			&handicap.ChargeType, &handicap.Value, &handicap.Unit, &handicap.AppliesTo,
			&handicap.IsActive, &handicap.Position); err != nil {
			return nil, fmt.Errorf("failed to scan handicap: %w", err)
		}
		handicaps = append(handicaps, handicap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate handicaps: %w", err)
	}

	return handicaps, nil
}

func (s *TariffStore) loadRules(ctx context.Context, configurationID uuid.UUID) ([]models.PricingMethodRule, error) {
	query := `
		SELECT id, configuration_id, method_type, enabled, is_default, priority, conditions
		FROM pricing_method_rules
		WHERE configuration_id = $1
		ORDER BY priority
	`

	rows, err := s.db.QueryContext(ctx, query, configurationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing method rules: %w", err)
	}
	defer rows.Close()

	var rules []models.PricingMethodRule
	for rows.Next() {
		var rule models.PricingMethodRule
		var conditions []byte
		if err := rows.Scan(&rule.ID, &rule.ConfigurationID, &rule.MethodType,
			&rule.Enabled, &rule.IsDefault, &rule.Priority, &conditions); err != nil {
			return nil, fmt.Errorf("failed to scan pricing method rule: %w", err)
		}
		if len(conditions) > 0 {
			if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", rule.ID, err)
			}
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pricing method rules: %w", err)
	}

	return rules, nil
}

func (s *TariffStore) loadPolicy(ctx context.Context, configurationID uuid.UUID) (models.AutoPricingPolicy, error) {
	var policy models.AutoPricingPolicy

	query := `
		SELECT configuration_id, max_hours_per_job, use_crew_ability_limits,
		       apply_weekend_surcharge, weekend_surcharge_percent,
		       apply_holiday_surcharge, holiday_surcharge_percent,
		       minimum_hours_weekday, minimum_hours_weekend, minimum_hours_holiday
		FROM auto_pricing_policies
		WHERE configuration_id = $1
	`

	err := s.db.QueryRowContext(ctx, query, configurationID).Scan(
		&policy.ConfigurationID, &policy.MaxHoursPerJob, &policy.UseCrewAbilityLimits,
		&policy.ApplyWeekendSurcharge, &policy.WeekendSurchargePercent,
		&policy.ApplyHolidaySurcharge, &policy.HolidaySurchargePercent,
		&policy.MinimumHoursWeekday, &policy.MinimumHoursWeekend, &policy.MinimumHoursHoliday,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return policy, apperror.Configuration("auto pricing policy missing for configuration", err)
		}
		return policy, fmt.Errorf("failed to get auto pricing policy: %w", err)
	}

	return policy, nil
}
