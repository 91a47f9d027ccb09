package notify

import (
	"context"
	"fmt"
	"time"

	"matchpoint/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationStore persists notifications keyed by the idempotency tuple
// (type, target_id, user_id).
type NotificationStore interface {
	// FindByKey returns domain.ErrNotFound when no row exists.
	FindByKey(ctx context.Context, typ domain.NotificationType, targetID, userID string) (*domain.Notification, error)
	// Create inserts the notification, or returns the existing row when the
	// idempotency key is already taken. Losing the insert race is not an error.
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
}

// AttemptStore is the append-only delivery audit trail. Append assigns the
// attempt number as prior-count+1 inside the same transaction as the insert.
type AttemptStore interface {
	Append(ctx context.Context, a *domain.DeliveryAttempt) (*domain.DeliveryAttempt, error)
	HasSuccess(ctx context.Context, notificationID string, ch domain.DeliveryChannel) (bool, error)
}

// ContactSource resolves a user's delivery addresses. domain.ErrNotFound means
// the user has no contact record at all.
type ContactSource interface {
	Get(ctx context.Context, userID string) (*domain.UserContact, error)
}

// Sender delivers one notification through one channel. Implementations bound
// their own provider calls; the dispatcher only sees the terminal SendResult.
type Sender interface {
	Channel() domain.DeliveryChannel
	Send(ctx context.Context, recipient string, n *domain.Notification) domain.SendResult
}

// Input describes one logical notification for one recipient.
type Input struct {
	UserID      string
	Type        domain.NotificationType
	TargetID    string
	Title       string
	Body        string
	Payload     map[string]any
	Priority    domain.NotificationPriority
	ExpiresAt   *time.Time
	ScheduledAt *time.Time
}

// ChannelOutcome is the terminal state of one channel within one dispatch call.
type ChannelOutcome struct {
	Status        domain.AttemptStatus
	AttemptNumber int
	Error         string
	// PriorSuccess means the channel already had a recorded success and was
	// not re-attempted.
	PriorSuccess bool
}

// Result summarizes one dispatch call per channel, never as an opaque
// pass/fail.
type Result struct {
	Notification *domain.Notification
	Created      bool
	Channels     map[domain.DeliveryChannel]ChannelOutcome
	Delivered    bool
}

// Dispatcher turns one logical event into per-channel delivery attempts.
type Dispatcher struct {
	notifications NotificationStore
	attempts      AttemptStore
	prefs         PreferenceSource
	contacts      ContactSource
	senders       map[domain.DeliveryChannel]Sender
	matrix        DefaultMatrix
	logger        zerolog.Logger
}

func NewDispatcher(
	notifications NotificationStore,
	attempts AttemptStore,
	prefs PreferenceSource,
	contacts ContactSource,
	senders []Sender,
	matrix DefaultMatrix,
	logger zerolog.Logger,
) (*Dispatcher, error) {
	if err := matrix.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default preference matrix: %w", err)
	}

	byChannel := make(map[domain.DeliveryChannel]Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}

	return &Dispatcher{
		notifications: notifications,
		attempts:      attempts,
		prefs:         prefs,
		contacts:      contacts,
		senders:       byChannel,
		matrix:        matrix,
		logger:        logger,
	}, nil
}

// ResolveChannels applies the preference cascade for one (user, type) pair.
func (d *Dispatcher) ResolveChannels(ctx context.Context, userID string, typ domain.NotificationType) (map[domain.DeliveryChannel]bool, error) {
	return ResolveChannels(ctx, d.prefs, d.matrix, userID, typ)
}

// Dispatch creates (or reuses) the notification row for the input's
// idempotency key, resolves channels fresh, and attempts every enabled channel
// that has no prior success. Each attempt outcome is recorded; one channel's
// failure never blocks its siblings. Safe to call again for retries.
func (d *Dispatcher) Dispatch(ctx context.Context, input Input) (*Result, error) {
	if _, ok := d.matrix[input.Type]; !ok {
		return nil, domain.NewValidationError(string(input.Type), "unknown notification type")
	}

	notification, created, err := d.getOrCreate(ctx, input)
	if err != nil {
		return nil, err
	}

	enabled, err := d.ResolveChannels(ctx, input.UserID, input.Type)
	if err != nil {
		return nil, err
	}

	contact, err := d.contacts.Get(ctx, input.UserID)
	if err != nil && err != domain.ErrNotFound {
		return nil, fmt.Errorf("failed to load contact info for %s: %w", input.UserID, err)
	}

	result := &Result{
		Notification: notification,
		Created:      created,
		Channels:     make(map[domain.DeliveryChannel]ChannelOutcome, len(domain.Channels())),
	}

	for _, ch := range domain.Channels() {
		outcome, err := d.dispatchChannel(ctx, notification, contact, ch, enabled[ch])
		if err != nil {
			return nil, err
		}
		result.Channels[ch] = outcome
		if outcome.Status == domain.AttemptSuccess {
			result.Delivered = true
		}
	}

	d.logger.Info().
		Str("notification_id", notification.ID).
		Str("user_id", input.UserID).
		Str("type", string(input.Type)).
		Bool("created", created).
		Bool("delivered", result.Delivered).
		Msg("dispatch completed")

	return result, nil
}

func (d *Dispatcher) getOrCreate(ctx context.Context, input Input) (*domain.Notification, bool, error) {
	existing, err := d.notifications.FindByKey(ctx, input.Type, input.TargetID, input.UserID)
	if err == nil {
		d.logger.Debug().
			Str("notification_id", existing.ID).
			Str("type", string(input.Type)).
			Str("target_id", input.TargetID).
			Msg("reusing existing notification")
		return existing, false, nil
	}
	if err != domain.ErrNotFound {
		return nil, false, fmt.Errorf("failed to look up notification: %w", err)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	// Create is insert-or-get under the unique idempotency index, so a
	// concurrent dispatch losing the race still gets the winner's row back.
	n, err := d.notifications.Create(ctx, &domain.Notification{
		ID:          uuid.New().String(),
		UserID:      input.UserID,
		Type:        input.Type,
		Title:       input.Title,
		Body:        input.Body,
		Payload:     input.Payload,
		Priority:    priority,
		TargetID:    input.TargetID,
		ExpiresAt:   input.ExpiresAt,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, true, nil
}

func (d *Dispatcher) dispatchChannel(ctx context.Context, n *domain.Notification, contact *domain.UserContact, ch domain.DeliveryChannel, enabled bool) (ChannelOutcome, error) {
	prior, err := d.attempts.HasSuccess(ctx, n.ID, ch)
	if err != nil {
		return ChannelOutcome{}, fmt.Errorf("failed to check prior attempts for %s: %w", ch, err)
	}
	if prior {
		d.logger.Debug().Str("notification_id", n.ID).Str("channel", string(ch)).Msg("channel already delivered, skipping")
		return ChannelOutcome{Status: domain.AttemptSuccess, PriorSuccess: true}, nil
	}

	if !enabled {
		return d.record(ctx, n, ch, domain.DeliveryAttempt{
			Status: domain.AttemptSkippedPreference,
		})
	}

	recipient := contact.Address(ch)
	if recipient == "" {
		return d.record(ctx, n, ch, domain.DeliveryAttempt{
			Status:       domain.AttemptSkippedMissingContact,
			ErrorMessage: fmt.Sprintf("no %s contact on file", ch),
		})
	}

	res := d.send(ctx, ch, recipient, n)
	attempt := domain.DeliveryAttempt{
		Status:           domain.AttemptFailed,
		ErrorMessage:     res.ErrorMessage,
		ProviderResponse: res.ProviderResponse,
	}
	if res.Success {
		attempt.Status = domain.AttemptSuccess
		attempt.ErrorMessage = ""
	}
	return d.record(ctx, n, ch, attempt)
}

// send invokes the channel sender, converting a panic into a failed result so
// one misbehaving provider cannot take down sibling channels.
func (d *Dispatcher) send(ctx context.Context, ch domain.DeliveryChannel, recipient string, n *domain.Notification) (res domain.SendResult) {
	sender, ok := d.senders[ch]
	if !ok {
		return domain.SendResult{ErrorMessage: fmt.Sprintf("no sender configured for channel %s", ch)}
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("notification_id", n.ID).
				Str("channel", string(ch)).
				Any("panic", r).
				Msg("sender panicked")
			res = domain.SendResult{ErrorMessage: fmt.Sprintf("sender panic: %v", r)}
		}
	}()

	return sender.Send(ctx, recipient, n)
}

func (d *Dispatcher) record(ctx context.Context, n *domain.Notification, ch domain.DeliveryChannel, attempt domain.DeliveryAttempt) (ChannelOutcome, error) {
	attempt.NotificationID = n.ID
	attempt.Channel = ch

	stored, err := d.attempts.Append(ctx, &attempt)
	if err != nil {
		return ChannelOutcome{}, fmt.Errorf("failed to record %s attempt: %w", ch, err)
	}

	d.logger.Debug().
		Str("notification_id", n.ID).
		Str("channel", string(ch)).
		Int("attempt", stored.AttemptNumber).
		Str("status", string(stored.Status)).
		Str("error", stored.ErrorMessage).
		Msg("delivery attempt recorded")

	return ChannelOutcome{
		Status:        stored.Status,
		AttemptNumber: stored.AttemptNumber,
		Error:         stored.ErrorMessage,
	}, nil
}
