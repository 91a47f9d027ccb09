package notify

import (
	"context"
	"fmt"

	"matchpoint/internal/domain"
)

// DefaultMatrix is the fallback preference table: for every notification type
// and channel, whether delivery is on when the user has no explicit override.
// The matrix must be total over the closed type set; a gap is a deployment
// bug, not player data variance.
type DefaultMatrix map[domain.NotificationType]map[domain.DeliveryChannel]bool

// Validate checks totality over NotificationTypes x Channels.
func (m DefaultMatrix) Validate() error {
	for _, typ := range domain.NotificationTypes() {
		row, ok := m[typ]
		if !ok {
			return fmt.Errorf("default matrix missing notification type %q", typ)
		}
		for _, ch := range domain.Channels() {
			if _, ok := row[ch]; !ok {
				return fmt.Errorf("default matrix missing channel %q for type %q", ch, typ)
			}
		}
	}
	return nil
}

// PreferenceSource looks up one explicit preference row. found=false means the
// user has no override for the triple; callers fall back to the matrix.
type PreferenceSource interface {
	Lookup(ctx context.Context, userID string, typ domain.NotificationType, ch domain.DeliveryChannel) (enabled, found bool, err error)
}

// ResolveChannels applies the preference cascade for one (user, type) pair:
// an explicit preference row wins, otherwise the default matrix. The result is
// total over all three channels. Passing a type outside the closed set is a
// caller contract violation.
func ResolveChannels(ctx context.Context, prefs PreferenceSource, matrix DefaultMatrix, userID string, typ domain.NotificationType) (map[domain.DeliveryChannel]bool, error) {
	defaults, ok := matrix[typ]
	if !ok {
		return nil, domain.NewValidationError(string(typ), "unknown notification type")
	}

	resolved := make(map[domain.DeliveryChannel]bool, len(domain.Channels()))
	for _, ch := range domain.Channels() {
		enabled, found, err := prefs.Lookup(ctx, userID, typ, ch)
		if err != nil {
			return nil, fmt.Errorf("failed to load preference %s/%s: %w", typ, ch, err)
		}
		if found {
			resolved[ch] = enabled
		} else {
			resolved[ch] = defaults[ch]
		}
	}
	return resolved, nil
}
