package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

// PreferenceRepository stores sparse explicit overrides. Absence of a row is
// meaningful ("use the default matrix") and is reported distinctly from
// enabled=false.
type PreferenceRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPreferenceRepository(db *sql.DB, logger zerolog.Logger) *PreferenceRepository {
	return &PreferenceRepository{db: db, logger: logger}
}

func (r *PreferenceRepository) Lookup(ctx context.Context, userID string, typ domain.NotificationType, ch domain.DeliveryChannel) (bool, bool, error) {
	var enabled bool
	err := r.db.QueryRowContext(ctx, `
		SELECT enabled FROM notification_preferences
		WHERE user_id = ? AND notification_type = ? AND channel = ?`,
		userID, string(typ), string(ch)).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to look up preference: %w", err)
	}
	return enabled, true, nil
}

func (r *PreferenceRepository) Set(ctx context.Context, pref *domain.NotificationPreference) error {
	if pref.UpdatedAt.IsZero() {
		pref.UpdatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, notification_type, channel, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, notification_type, channel) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		pref.UserID, string(pref.Type), string(pref.Channel), pref.Enabled, pref.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", pref.UserID).Msg("failed to set preference")
		return fmt.Errorf("failed to set preference: %w", err)
	}

	r.logger.Debug().
		Str("user_id", pref.UserID).
		Str("type", string(pref.Type)).
		Str("channel", string(pref.Channel)).
		Bool("enabled", pref.Enabled).
		Msg("preference set")
	return nil
}

func (r *PreferenceRepository) ListForUser(ctx context.Context, userID string) ([]domain.NotificationPreference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, notification_type, channel, enabled, updated_at
		FROM notification_preferences
		WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []domain.NotificationPreference
	for rows.Next() {
		var p domain.NotificationPreference
		if err := rows.Scan(&p.UserID, &p.Type, &p.Channel, &p.Enabled, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
