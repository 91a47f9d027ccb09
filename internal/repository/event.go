package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"matchpoint/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// EventRepository owns the append-only reputation event log. There is no
// update or delete path on purpose.
type EventRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewEventRepository(db *sql.DB, logger zerolog.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger}
}

func (r *EventRepository) Append(ctx context.Context, event *domain.ReputationEvent) error {
	if event.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate event id: %w", err)
		}
		event.ID = id
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	var baseImpact sql.NullFloat64
	if event.BaseImpact != nil {
		baseImpact = sql.NullFloat64{Float64: *event.BaseImpact, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reputation_events
			(id, player_id, event_type, base_impact, occurred_at, caused_by_player_id, match_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.PlayerID, string(event.EventType), baseImpact,
		event.OccurredAt, event.CausedByPlayerID, event.MatchID, string(metadata), event.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", event.ID).Str("player_id", event.PlayerID).Msg("failed to append reputation event")
		return fmt.Errorf("failed to append reputation event: %w", err)
	}

	r.logger.Debug().
		Str("event_id", event.ID).
		Str("player_id", event.PlayerID).
		Str("event_type", string(event.EventType)).
		Msg("reputation event appended")
	return nil
}

func (r *EventRepository) ListByPlayer(ctx context.Context, playerID string) ([]domain.ReputationEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, player_id, event_type, base_impact, occurred_at, caused_by_player_id, match_id, metadata, created_at
		FROM reputation_events
		WHERE player_id = ?
		ORDER BY occurred_at ASC`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reputation events: %w", err)
	}
	defer rows.Close()

	var events []domain.ReputationEvent
	for rows.Next() {
		var ev domain.ReputationEvent
		var baseImpact sql.NullFloat64
		var metadata string
		if err := rows.Scan(&ev.ID, &ev.PlayerID, &ev.EventType, &baseImpact,
			&ev.OccurredAt, &ev.CausedByPlayerID, &ev.MatchID, &metadata, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reputation event: %w", err)
		}
		if baseImpact.Valid {
			v := baseImpact.Float64
			ev.BaseImpact = &v
		}
		if err := json.Unmarshal([]byte(metadata), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListPlayerIDs returns every player that has at least one event, for batch
// recalculation.
func (r *EventRepository) ListPlayerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT player_id FROM reputation_events`)
	if err != nil {
		return nil, fmt.Errorf("failed to list player ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
