package reputation

import (
	"math"
	"sort"
	"time"

	"matchpoint/internal/domain"
)

const hoursPerDay = 24

// TierThreshold maps a tier to the minimum score that earns it. Thresholds
// are supplied sorted ascending by MinScore; the engine never hard-codes the
// cutoffs.
type TierThreshold struct {
	Tier     domain.Tier
	MinScore float64
}

// Options parameterize a scoring run. Now is the only clock the engine sees,
// so two calls with identical inputs produce identical output.
type Options struct {
	Now                time.Time
	MinEventsForPublic int
	Thresholds         []TierThreshold
}

// ComputeScore folds a player's full event log into a fresh summary. The log
// may arrive in any order; events are sorted by occurrence time internally.
// Events with no active config row contribute nothing and are not counted.
// An event with an empty type is a persistence bug and fails fast.
func ComputeScore(events []domain.ReputationEvent, configs map[domain.ReputationEventType]domain.ReputationConfig, opts Options) (*domain.ReputationSummary, error) {
	sorted := make([]domain.ReputationEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	var playerID string
	if len(sorted) > 0 {
		playerID = sorted[0].PlayerID
	}

	summary := &domain.ReputationSummary{
		PlayerID:             playerID,
		Tier:                 domain.TierUnknown,
		CalculatedAt:         opts.Now,
		LastDecayCalculation: opts.Now,
	}

	for _, ev := range sorted {
		if ev.EventType == "" {
			return nil, domain.NewValidationError(ev.ID, "reputation event has no event type")
		}

		cfg, ok := configs[ev.EventType]
		if !ok || !cfg.IsActive {
			continue
		}

		raw := cfg.DefaultImpact
		if ev.BaseImpact != nil {
			raw = *ev.BaseImpact
		}
		raw = clamp(raw, cfg.MinImpact, cfg.MaxImpact)

		contribution := raw
		if cfg.DecayEnabled && cfg.DecayHalfLifeDays > 0 {
			ageDays := opts.Now.Sub(ev.OccurredAt).Hours() / hoursPerDay
			if ageDays < 0 {
				// future-dated events keep full weight, never inverted
				ageDays = 0
			}
			contribution = raw * math.Pow(0.5, ageDays/cfg.DecayHalfLifeDays)
		}

		summary.Score += contribution
		summary.TotalEvents++
		switch {
		case raw > 0:
			summary.PositiveEvents++
		case raw < 0:
			summary.NegativeEvents++
		}
		if ev.EventType == domain.EventMatchCompleted {
			summary.MatchesCompleted++
		}
	}

	summary.IsPublic = summary.TotalEvents >= opts.MinEventsForPublic
	summary.Tier = classifyTier(summary.Score, summary.TotalEvents, opts.MinEventsForPublic, opts.Thresholds)

	return summary, nil
}

func clamp(v float64, min, max *float64) float64 {
	if min != nil && v < *min {
		v = *min
	}
	if max != nil && v > *max {
		v = *max
	}
	return v
}

// classifyTier returns the highest tier whose MinScore <= score, the lowest
// tier when the score is below every threshold, and TierUnknown below the
// visibility floor.
func classifyTier(score float64, totalEvents, minEventsForPublic int, thresholds []TierThreshold) domain.Tier {
	if totalEvents < minEventsForPublic || len(thresholds) == 0 {
		return domain.TierUnknown
	}

	tier := thresholds[0].Tier
	for _, t := range thresholds {
		if score >= t.MinScore {
			tier = t.Tier
		}
	}
	return tier
}
