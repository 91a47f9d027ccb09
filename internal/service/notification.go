package service

import (
	"context"
	"time"

	"matchpoint/internal/constants"
	"matchpoint/internal/domain"
	"matchpoint/internal/notify"
	"matchpoint/internal/repository"

	"github.com/rs/zerolog"
)

type NotificationService struct {
	dispatcher    *notify.Dispatcher
	notifications *repository.NotificationRepository
	preferences   *repository.PreferenceRepository
	logger        zerolog.Logger
}

func NewNotificationService(
	dispatcher *notify.Dispatcher,
	notifications *repository.NotificationRepository,
	preferences *repository.PreferenceRepository,
	logger zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		dispatcher:    dispatcher,
		notifications: notifications,
		preferences:   preferences,
		logger:        logger,
	}
}

// Dispatch runs one logical notification through the dispatch engine.
func (s *NotificationService) Dispatch(ctx context.Context, input notify.Input) (*notify.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	return s.dispatcher.Dispatch(ctx, input)
}

// RetryFailed sweeps notifications that still have a failed channel without a
// later success and re-dispatches them. Preferences are re-resolved fresh on
// every pass, so a user who disabled a channel since the failure stops
// receiving retries on it.
func (s *NotificationService) RetryFailed(ctx context.Context) (int, error) {
	candidates, err := s.notifications.ListRetryable(ctx, constants.MaxDeliveryAttempts, constants.RetryBatchLimit)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	s.logger.Info().Int("candidates", len(candidates)).Msg("retrying failed deliveries")

	retried := 0
	for _, n := range candidates {
		_, err := s.dispatcher.Dispatch(ctx, notify.Input{
			UserID:      n.UserID,
			Type:        n.Type,
			TargetID:    n.TargetID,
			Title:       n.Title,
			Body:        n.Body,
			Payload:     n.Payload,
			Priority:    n.Priority,
			ExpiresAt:   n.ExpiresAt,
			ScheduledAt: n.ScheduledAt,
		})
		if err != nil {
			// keep sweeping; one bad notification must not stall the batch
			s.logger.Error().Err(err).Str("notification_id", n.ID).Msg("retry dispatch failed")
			continue
		}
		retried++
	}

	return retried, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.notifications.Get(ctx, notificationID); err != nil {
		return err
	}
	return s.notifications.MarkRead(ctx, notificationID, time.Now())
}

func (s *NotificationService) SetPreference(ctx context.Context, pref *domain.NotificationPreference) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.dispatcher.ResolveChannels(ctx, pref.UserID, pref.Type); err != nil {
		// unknown type surfaces as a ValidationError before anything persists
		return err
	}
	return s.preferences.Set(ctx, pref)
}

// ResolvedPreferences returns the effective (type, channel) matrix for a user
// after applying the preference cascade, for settings screens. Overrides are
// loaded in one query and overlaid on the default matrix, instead of one
// lookup per (type, channel).
func (s *NotificationService) ResolvedPreferences(ctx context.Context, userID string) (map[domain.NotificationType]map[domain.DeliveryChannel]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	overrides, err := s.preferences.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	type prefKey struct {
		typ domain.NotificationType
		ch  domain.DeliveryChannel
	}
	explicit := make(map[prefKey]bool, len(overrides))
	for _, p := range overrides {
		explicit[prefKey{p.Type, p.Channel}] = p.Enabled
	}

	resolved := make(map[domain.NotificationType]map[domain.DeliveryChannel]bool)
	for typ, defaults := range notify.DefaultPreferences() {
		channels := make(map[domain.DeliveryChannel]bool, len(defaults))
		for ch, enabled := range defaults {
			if v, ok := explicit[prefKey{typ, ch}]; ok {
				enabled = v
			}
			channels[ch] = enabled
		}
		resolved[typ] = channels
	}
	return resolved, nil
}
