package domain

import (
	"time"
)

type NotificationType string

const (
	NotifyMatchInvitation NotificationType = "match_invitation"
	NotifyMatchConfirmed  NotificationType = "match_confirmed"
	NotifyMatchCancelled  NotificationType = "match_cancelled"
	NotifyMatchReminder   NotificationType = "match_reminder"
	NotifyMatchResult     NotificationType = "match_result"
	NotifyFriendRequest   NotificationType = "friend_request"
	NotifyFriendAccepted  NotificationType = "friend_accepted"
	NotifyTeamInvitation  NotificationType = "team_invitation"
	NotifyOrgAnnouncement NotificationType = "org_announcement"
	NotifyVenueChanged    NotificationType = "venue_changed"
	NotifyReviewReceived  NotificationType = "review_received"
	NotifyReportResolved  NotificationType = "report_resolved"
	NotifySystemAlert     NotificationType = "system_alert"
)

// NotificationTypes lists every type in the closed set, in a stable order.
func NotificationTypes() []NotificationType {
	return []NotificationType{
		NotifyMatchInvitation,
		NotifyMatchConfirmed,
		NotifyMatchCancelled,
		NotifyMatchReminder,
		NotifyMatchResult,
		NotifyFriendRequest,
		NotifyFriendAccepted,
		NotifyTeamInvitation,
		NotifyOrgAnnouncement,
		NotifyVenueChanged,
		NotifyReviewReceived,
		NotifyReportResolved,
		NotifySystemAlert,
	}
}

// NotificationCategory groups types for preference UIs only; delivery logic
// never branches on it.
type NotificationCategory string

const (
	CategoryMatch        NotificationCategory = "match"
	CategorySocial       NotificationCategory = "social"
	CategorySystem       NotificationCategory = "system"
	CategoryOrganization NotificationCategory = "organization"
)

func (t NotificationType) Category() NotificationCategory {
	switch t {
	case NotifyMatchInvitation, NotifyMatchConfirmed, NotifyMatchCancelled,
		NotifyMatchReminder, NotifyMatchResult:
		return CategoryMatch
	case NotifyFriendRequest, NotifyFriendAccepted, NotifyTeamInvitation:
		return CategorySocial
	case NotifyOrgAnnouncement, NotifyVenueChanged:
		return CategoryOrganization
	default:
		return CategorySystem
	}
}

type DeliveryChannel string

const (
	ChannelEmail DeliveryChannel = "email"
	ChannelPush  DeliveryChannel = "push"
	ChannelSMS   DeliveryChannel = "sms"
)

// Channels lists the delivery channels in dispatch order.
func Channels() []DeliveryChannel {
	return []DeliveryChannel{ChannelEmail, ChannelPush, ChannelSMS}
}

// NotificationPreference is an explicit per-user override. Absence of a row
// means "use the default matrix", which is not the same as enabled=false.
type NotificationPreference struct {
	UserID    string
	Type      NotificationType
	Channel   DeliveryChannel
	Enabled   bool
	UpdatedAt time.Time
}

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is created once per logical event per recipient. The
// idempotency key (type, target_id, user_id) is enforced by a unique index.
type Notification struct {
	ID          string
	UserID      string
	Type        NotificationType
	Title       string
	Body        string
	Payload     map[string]any
	Priority    NotificationPriority
	TargetID    string
	ReadAt      *time.Time
	ExpiresAt   *time.Time
	ScheduledAt *time.Time
	CreatedAt   time.Time
}

type AttemptStatus string

const (
	AttemptPending               AttemptStatus = "pending"
	AttemptSuccess               AttemptStatus = "success"
	AttemptFailed                AttemptStatus = "failed"
	AttemptSkippedPreference     AttemptStatus = "skipped_preference"
	AttemptSkippedMissingContact AttemptStatus = "skipped_missing_contact"
)

// DeliveryAttempt is one row of the append-only delivery audit trail. A retry
// is a new row with an incremented AttemptNumber, never an update.
type DeliveryAttempt struct {
	ID               string
	NotificationID   string
	Channel          DeliveryChannel
	AttemptNumber    int
	Status           AttemptStatus
	ErrorMessage     string
	ProviderResponse string
	CreatedAt        time.Time
}

// UserContact holds the per-channel delivery addresses for one user. An empty
// field means the channel has no usable contact.
type UserContact struct {
	UserID    string
	Email     string
	Phone     string
	PushToken string
	UpdatedAt time.Time
}

// Address returns the contact address for a channel, empty when missing.
func (c *UserContact) Address(ch DeliveryChannel) string {
	if c == nil {
		return ""
	}
	switch ch {
	case ChannelEmail:
		return c.Email
	case ChannelPush:
		return c.PushToken
	case ChannelSMS:
		return c.Phone
	}
	return ""
}

// SendResult is what a channel sender reports back for one provider call.
type SendResult struct {
	Success          bool
	ProviderResponse string
	ErrorMessage     string
}
