package repository

import (
	"context"
	"database/sql"
	"fmt"

	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

// ConfigRepository reads the per-event-type scoring configuration. Rows are
// seeded by migration and rarely change.
type ConfigRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewConfigRepository(db *sql.DB, logger zerolog.Logger) *ConfigRepository {
	return &ConfigRepository{db: db, logger: logger}
}

func (r *ConfigRepository) LoadAll(ctx context.Context) (map[domain.ReputationEventType]domain.ReputationConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_type, default_impact, min_impact, max_impact, decay_enabled, decay_half_life_days, is_active
		FROM reputation_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to load reputation configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[domain.ReputationEventType]domain.ReputationConfig)
	for rows.Next() {
		var cfg domain.ReputationConfig
		var minImpact, maxImpact sql.NullFloat64
		if err := rows.Scan(&cfg.EventType, &cfg.DefaultImpact, &minImpact, &maxImpact,
			&cfg.DecayEnabled, &cfg.DecayHalfLifeDays, &cfg.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan reputation config: %w", err)
		}
		if minImpact.Valid {
			v := minImpact.Float64
			cfg.MinImpact = &v
		}
		if maxImpact.Valid {
			v := maxImpact.Float64
			cfg.MaxImpact = &v
		}
		configs[cfg.EventType] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug().Int("count", len(configs)).Msg("reputation configs loaded")
	return configs, nil
}
