package domain

import (
	"time"
)

// ReputationEvent is a single immutable fact about a player's behavior.
// Events are append-only; the score is always recomputed from the full log.
type ReputationEvent struct {
	ID               string
	PlayerID         string
	EventType        ReputationEventType
	BaseImpact       *float64 // nil means "use the config default"
	OccurredAt       time.Time
	CausedByPlayerID string
	MatchID          string
	Metadata         map[string]any
	CreatedAt        time.Time
}

type ReputationEventType string

const (
	EventMatchCompleted     ReputationEventType = "match_completed"
	EventMatchNoShow        ReputationEventType = "match_no_show"
	EventMatchLateArrival   ReputationEventType = "match_late_arrival"
	EventMatchCancelledLate ReputationEventType = "match_cancelled_late"
	EventReviewPositive     ReputationEventType = "review_positive"
	EventReviewNegative     ReputationEventType = "review_negative"
	EventReportUpheld       ReputationEventType = "report_upheld"
	EventReportDismissed    ReputationEventType = "report_dismissed"
)

// ReputationConfig tells the scoring engine how to weigh one event type.
// Unknown event types (no active config row) score zero and are ignored.
type ReputationConfig struct {
	EventType         ReputationEventType
	DefaultImpact     float64
	MinImpact         *float64 // nil = open bound
	MaxImpact         *float64 // nil = open bound
	DecayEnabled      bool
	DecayHalfLifeDays float64
	IsActive          bool
}

type Tier string

const (
	TierUnknown  Tier = "unknown"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// ReputationSummary is the cached result of a full recompute over a player's
// event log. Reproducible from the log alone; never mutated incrementally.
type ReputationSummary struct {
	PlayerID             string
	Score                float64
	Tier                 Tier
	TotalEvents          int
	PositiveEvents       int
	NegativeEvents       int
	MatchesCompleted     int
	IsPublic             bool
	CalculatedAt         time.Time
	LastDecayCalculation time.Time
}
