package notify

import (
	"context"
	"testing"

	"matchpoint/internal/domain"
)

type prefKey struct {
	userID string
	typ    domain.NotificationType
	ch     domain.DeliveryChannel
}

type fakePrefs struct {
	rows map[prefKey]bool
}

func (f *fakePrefs) Lookup(_ context.Context, userID string, typ domain.NotificationType, ch domain.DeliveryChannel) (bool, bool, error) {
	enabled, found := f.rows[prefKey{userID, typ, ch}]
	return enabled, found, nil
}

func TestDefaultPreferences_Total(t *testing.T) {
	if err := DefaultPreferences().Validate(); err != nil {
		t.Fatalf("default matrix must be total: %v", err)
	}
}

func TestDefaultMatrix_ValidateRejectsGaps(t *testing.T) {
	m := DefaultPreferences()
	delete(m[domain.NotifyMatchCancelled], domain.ChannelSMS)
	if err := m.Validate(); err == nil {
		t.Fatalf("expected validation failure for missing channel")
	}

	m = DefaultPreferences()
	delete(m, domain.NotifySystemAlert)
	if err := m.Validate(); err == nil {
		t.Fatalf("expected validation failure for missing type")
	}
}

func TestResolveChannels_TotalOverFullEnum(t *testing.T) {
	matrix := DefaultPreferences()
	prefs := &fakePrefs{rows: map[prefKey]bool{}}

	for _, typ := range domain.NotificationTypes() {
		resolved, err := ResolveChannels(context.Background(), prefs, matrix, "u1", typ)
		if err != nil {
			t.Fatalf("type %s: unexpected error: %v", typ, err)
		}
		if len(resolved) != 3 {
			t.Fatalf("type %s: expected all three channels resolved, got %d", typ, len(resolved))
		}
		for _, ch := range domain.Channels() {
			if got, want := resolved[ch], matrix[typ][ch]; got != want {
				t.Fatalf("type %s channel %s: expected default %v, got %v", typ, ch, want, got)
			}
		}
	}
}

func TestResolveChannels_ExplicitPreferenceWins(t *testing.T) {
	matrix := DefaultPreferences()
	prefs := &fakePrefs{rows: map[prefKey]bool{
		{"u1", domain.NotifyMatchCancelled, domain.ChannelSMS}: false, // default is true
		{"u1", domain.NotifyMatchResult, domain.ChannelEmail}:  true,  // default is false
	}}

	resolved, err := ResolveChannels(context.Background(), prefs, matrix, "u1", domain.NotifyMatchCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved[domain.ChannelSMS] {
		t.Fatalf("explicit disable must override default enable")
	}

	resolved, err = ResolveChannels(context.Background(), prefs, matrix, "u1", domain.NotifyMatchResult)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolved[domain.ChannelEmail] {
		t.Fatalf("explicit enable must override default disable")
	}

	// another user's override must not leak
	resolved, err = ResolveChannels(context.Background(), prefs, matrix, "u2", domain.NotifyMatchCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolved[domain.ChannelSMS] {
		t.Fatalf("user without override must get default")
	}
}

func TestResolveChannels_UnknownTypeIsValidationError(t *testing.T) {
	_, err := ResolveChannels(context.Background(), &fakePrefs{}, DefaultPreferences(), "u1", "bogus_type")
	if err == nil {
		t.Fatalf("expected error for unknown notification type")
	}
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}
