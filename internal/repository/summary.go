package repository

import (
	"context"
	"database/sql"
	"fmt"

	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

// SummaryRepository caches the latest computed reputation summary per player.
// The cache is not a source of truth; a concurrent recompute simply
// overwrites it (last computed wins).
type SummaryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSummaryRepository(db *sql.DB, logger zerolog.Logger) *SummaryRepository {
	return &SummaryRepository{db: db, logger: logger}
}

func (r *SummaryRepository) Save(ctx context.Context, s *domain.ReputationSummary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reputation_summaries
			(player_id, score, tier, total_events, positive_events, negative_events,
			 matches_completed, is_public, calculated_at, last_decay_calculation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			score = excluded.score,
			tier = excluded.tier,
			total_events = excluded.total_events,
			positive_events = excluded.positive_events,
			negative_events = excluded.negative_events,
			matches_completed = excluded.matches_completed,
			is_public = excluded.is_public,
			calculated_at = excluded.calculated_at,
			last_decay_calculation = excluded.last_decay_calculation`,
		s.PlayerID, s.Score, string(s.Tier), s.TotalEvents, s.PositiveEvents, s.NegativeEvents,
		s.MatchesCompleted, s.IsPublic, s.CalculatedAt, s.LastDecayCalculation,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", s.PlayerID).Msg("failed to save reputation summary")
		return fmt.Errorf("failed to save reputation summary: %w", err)
	}

	r.logger.Debug().
		Str("player_id", s.PlayerID).
		Float64("score", s.Score).
		Str("tier", string(s.Tier)).
		Msg("reputation summary saved")
	return nil
}

func (r *SummaryRepository) Get(ctx context.Context, playerID string) (*domain.ReputationSummary, error) {
	var s domain.ReputationSummary
	err := r.db.QueryRowContext(ctx, `
		SELECT player_id, score, tier, total_events, positive_events, negative_events,
		       matches_completed, is_public, calculated_at, last_decay_calculation
		FROM reputation_summaries
		WHERE player_id = ?`, playerID).
		Scan(&s.PlayerID, &s.Score, &s.Tier, &s.TotalEvents, &s.PositiveEvents, &s.NegativeEvents,
			&s.MatchesCompleted, &s.IsPublic, &s.CalculatedAt, &s.LastDecayCalculation)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation summary: %w", err)
	}
	return &s, nil
}
