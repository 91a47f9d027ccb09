package notify

import (
	"matchpoint/internal/domain"
)

// DefaultPreferences returns the deployment default matrix. Values are a
// product decision: push carries everything, email carries the heavier
// match-lifecycle and account-level types, SMS stays opt-in except for
// short-notice match changes.
func DefaultPreferences() DefaultMatrix {
	on := func(email, push, sms bool) map[domain.DeliveryChannel]bool {
		return map[domain.DeliveryChannel]bool{
			domain.ChannelEmail: email,
			domain.ChannelPush:  push,
			domain.ChannelSMS:   sms,
		}
	}

	return DefaultMatrix{
		domain.NotifyMatchInvitation: on(true, true, false),
		domain.NotifyMatchConfirmed:  on(true, true, false),
		domain.NotifyMatchCancelled:  on(true, true, true),
		domain.NotifyMatchReminder:   on(false, true, true),
		domain.NotifyMatchResult:     on(false, true, false),
		domain.NotifyFriendRequest:   on(false, true, false),
		domain.NotifyFriendAccepted:  on(false, true, false),
		domain.NotifyTeamInvitation:  on(true, true, false),
		domain.NotifyOrgAnnouncement: on(true, true, false),
		domain.NotifyVenueChanged:    on(true, true, true),
		domain.NotifyReviewReceived:  on(false, true, false),
		domain.NotifyReportResolved:  on(true, true, false),
		domain.NotifySystemAlert:     on(true, true, false),
	}
}
