package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

// NotificationRepository persists notifications. The unique index on
// (notification_type, target_id, user_id) is the idempotency constraint;
// Create is insert-or-get so a concurrent dispatch losing the race receives
// the winner's row instead of an error.
type NotificationRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewNotificationRepository(db *sql.DB, logger zerolog.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) FindByKey(ctx context.Context, typ domain.NotificationType, targetID, userID string) (*domain.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, notification_type, title, body, payload, priority, target_id,
		       read_at, expires_at, scheduled_at, created_at
		FROM notifications
		WHERE notification_type = ? AND target_id = ? AND user_id = ?`,
		string(typ), targetID, userID)
	return scanNotification(row)
}

func (r *NotificationRepository) Get(ctx context.Context, id string) (*domain.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, notification_type, title, body, payload, priority, target_id,
		       read_at, expires_at, scheduled_at, created_at
		FROM notifications
		WHERE id = ?`, id)
	return scanNotification(row)
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, user_id, notification_type, title, body, payload, priority, target_id,
			 read_at, expires_at, scheduled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (notification_type, target_id, user_id) DO NOTHING`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Body, string(payload), string(n.Priority), n.TargetID,
		nullTime(n.ReadAt), nullTime(n.ExpiresAt), nullTime(n.ScheduledAt), n.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("notification_id", n.ID).Msg("failed to create notification")
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read insert result: %w", err)
	}
	if inserted == 0 {
		// lost the race (or a prior dispatch already created the row)
		r.logger.Debug().
			Str("type", string(n.Type)).
			Str("target_id", n.TargetID).
			Str("user_id", n.UserID).
			Msg("notification already exists for idempotency key")
		return r.FindByKey(ctx, n.Type, n.TargetID, n.UserID)
	}

	r.logger.Debug().Str("notification_id", n.ID).Str("type", string(n.Type)).Msg("notification created")
	return n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = ? WHERE id = ? AND read_at IS NULL`, readAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.logger.Debug().Str("notification_id", id).Msg("notification already read or missing")
	}
	return nil
}

// ListRetryable returns notifications that have at least one channel with a
// failed attempt, no success on that channel, and fewer than maxAttempts
// recorded attempts for it.
func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT n.id, n.user_id, n.notification_type, n.title, n.body, n.payload,
		       n.priority, n.target_id, n.read_at, n.expires_at, n.scheduled_at, n.created_at
		FROM notifications n
		JOIN delivery_attempts a ON a.notification_id = n.id
		WHERE a.status = 'failed'
		  AND NOT EXISTS (
			SELECT 1 FROM delivery_attempts s
			WHERE s.notification_id = n.id AND s.channel = a.channel AND s.status = 'success')
		  AND (
			SELECT COUNT(*) FROM delivery_attempts c
			WHERE c.notification_id = n.id AND c.channel = a.channel) < ?
		ORDER BY n.created_at ASC
		LIMIT ?`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	var payload string
	var readAt, expiresAt, scheduledAt sql.NullTime
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &payload, &n.Priority,
		&n.TargetID, &readAt, &expiresAt, &scheduledAt, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload for notification %s: %w", n.ID, err)
	}
	n.ReadAt = timePtr(readAt)
	n.ExpiresAt = timePtr(expiresAt)
	n.ScheduledAt = timePtr(scheduledAt)
	return &n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
