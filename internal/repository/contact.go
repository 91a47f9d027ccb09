package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

type ContactRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewContactRepository(db *sql.DB, logger zerolog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

func (r *ContactRepository) Get(ctx context.Context, userID string) (*domain.UserContact, error) {
	var c domain.UserContact
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, email, phone, push_token, updated_at
		FROM user_contacts
		WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.Email, &c.Phone, &c.PushToken, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user contact: %w", err)
	}
	return &c, nil
}

func (r *ContactRepository) Upsert(ctx context.Context, c *domain.UserContact) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_contacts (user_id, email, phone, push_token, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			phone = excluded.phone,
			push_token = excluded.push_token,
			updated_at = excluded.updated_at`,
		c.UserID, c.Email, c.Phone, c.PushToken, c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", c.UserID).Msg("failed to upsert user contact")
		return fmt.Errorf("failed to upsert user contact: %w", err)
	}
	return nil
}
