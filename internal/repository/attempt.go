package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"matchpoint/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// AttemptRepository is the append-only delivery audit trail. Attempt numbers
// are assigned as count+1 inside the same transaction as the insert, so
// concurrent appends for one (notification, channel) cannot collide.
type AttemptRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAttemptRepository(db *sql.DB, logger zerolog.Logger) *AttemptRepository {
	return &AttemptRepository{db: db, logger: logger}
}

func (r *AttemptRepository) Append(ctx context.Context, a *domain.DeliveryAttempt) (*domain.DeliveryAttempt, error) {
	if a.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate attempt id: %w", err)
		}
		a.ID = id
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if a.AttemptNumber == 0 {
		var count int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM delivery_attempts
			WHERE notification_id = ? AND channel = ?`,
			a.NotificationID, string(a.Channel)).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("failed to count attempts: %w", err)
		}
		a.AttemptNumber = count + 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO delivery_attempts
			(id, notification_id, channel, attempt_number, status, error_message, provider_response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.NotificationID, string(a.Channel), a.AttemptNumber,
		string(a.Status), a.ErrorMessage, a.ProviderResponse, a.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("notification_id", a.NotificationID).
			Str("channel", string(a.Channel)).
			Msg("failed to append delivery attempt")
		return nil, fmt.Errorf("failed to append delivery attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delivery attempt: %w", err)
	}
	return a, nil
}

func (r *AttemptRepository) HasSuccess(ctx context.Context, notificationID string, ch domain.DeliveryChannel) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_attempts
			WHERE notification_id = ? AND channel = ? AND status = 'success')`,
		notificationID, string(ch)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for successful attempt: %w", err)
	}
	return exists, nil
}

func (r *AttemptRepository) ListForNotification(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, notification_id, channel, attempt_number, status, error_message, provider_response, created_at
		FROM delivery_attempts
		WHERE notification_id = ?
		ORDER BY channel, attempt_number`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.DeliveryAttempt
	for rows.Next() {
		var a domain.DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.NotificationID, &a.Channel, &a.AttemptNumber,
			&a.Status, &a.ErrorMessage, &a.ProviderResponse, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
