package service

import (
	"context"
	"fmt"
	"time"

	"matchpoint/internal/config"
	"matchpoint/internal/constants"
	"matchpoint/internal/domain"
	"matchpoint/internal/repository"
	"matchpoint/internal/reputation"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultThresholds are the deployment tier cutoffs. Product values, not
// engine invariants; the engine only sees the sorted list.
var DefaultThresholds = []reputation.TierThreshold{
	{Tier: domain.TierBronze, MinScore: 0},
	{Tier: domain.TierSilver, MinScore: 25},
	{Tier: domain.TierGold, MinScore: 60},
	{Tier: domain.TierPlatinum, MinScore: 100},
}

type ReputationService struct {
	events    *repository.EventRepository
	configs   *repository.ConfigRepository
	summaries *repository.SummaryRepository
	cfg       *config.Config
	logger    zerolog.Logger
}

func NewReputationService(
	events *repository.EventRepository,
	configs *repository.ConfigRepository,
	summaries *repository.SummaryRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *ReputationService {
	return &ReputationService{
		events:    events,
		configs:   configs,
		summaries: summaries,
		cfg:       cfg,
		logger:    logger,
	}
}

// Record appends one behavioral event to the player's log and recomputes the
// cached summary.
func (s *ReputationService) Record(ctx context.Context, event *domain.ReputationEvent) (*domain.ReputationSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if event.EventType == "" {
		return nil, domain.NewValidationError(event.ID, "reputation event has no event type")
	}
	if event.PlayerID == "" {
		return nil, domain.NewValidationError(event.ID, "reputation event has no player id")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := s.events.Append(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event_id", event.ID).
		Str("player_id", event.PlayerID).
		Str("event_type", string(event.EventType)).
		Msg("reputation event recorded")

	return s.Recalculate(ctx, event.PlayerID)
}

// Recalculate recomputes the summary from the full event log and saves it.
// The recompute is idempotent; concurrent runs for one player just overwrite
// each other's cache entry.
func (s *ReputationService) Recalculate(ctx context.Context, playerID string) (*domain.ReputationSummary, error) {
	events, err := s.events.ListByPlayer(ctx, playerID)
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to load event log")
		return nil, fmt.Errorf("failed to load event log: %w", err)
	}

	configs, err := s.configs.LoadAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load reputation configs")
		return nil, fmt.Errorf("failed to load reputation configs: %w", err)
	}

	summary, err := reputation.ComputeScore(events, configs, reputation.Options{
		Now:                time.Now(),
		MinEventsForPublic: s.cfg.MinEventsForPublic,
		Thresholds:         DefaultThresholds,
	})
	if err != nil {
		return nil, err
	}
	summary.PlayerID = playerID

	if err := s.summaries.Save(ctx, summary); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("player_id", playerID).
		Float64("score", summary.Score).
		Str("tier", string(summary.Tier)).
		Int("total_events", summary.TotalEvents).
		Msg("reputation recalculated")

	return summary, nil
}

// Summary returns the cached summary, recomputing when none exists yet.
func (s *ReputationService) Summary(ctx context.Context, playerID string) (*domain.ReputationSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	summary, err := s.summaries.Get(ctx, playerID)
	if err == domain.ErrNotFound {
		s.logger.Debug().Str("player_id", playerID).Msg("no cached summary, recomputing")
		return s.Recalculate(ctx, playerID)
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RecalculateAll recomputes every player with at least one event, with
// bounded parallelism. Meant for cron-style decay refreshes.
func (s *ReputationService) RecalculateAll(ctx context.Context) (int, error) {
	playerIDs, err := s.events.ListPlayerIDs(ctx)
	if err != nil {
		return 0, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.RecalcParallelism)

	for _, playerID := range playerIDs {
		g.Go(func() error {
			if _, err := s.Recalculate(gCtx, playerID); err != nil {
				return fmt.Errorf("failed to recalculate player %s: %w", playerID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.logger.Info().Int("players", len(playerIDs)).Msg("bulk reputation recalculation completed")
	return len(playerIDs), nil
}
