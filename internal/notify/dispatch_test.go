package notify

import (
	"context"
	"fmt"
	"testing"

	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

type fakeNotificationStore struct {
	rows    map[string]*domain.Notification // keyed by type|target|user
	creates int
}

func dedupKey(typ domain.NotificationType, targetID, userID string) string {
	return fmt.Sprintf("%s|%s|%s", typ, targetID, userID)
}

func (f *fakeNotificationStore) FindByKey(_ context.Context, typ domain.NotificationType, targetID, userID string) (*domain.Notification, error) {
	if n, ok := f.rows[dedupKey(typ, targetID, userID)]; ok {
		return n, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	key := dedupKey(n.Type, n.TargetID, n.UserID)
	if existing, ok := f.rows[key]; ok {
		return existing, nil
	}
	f.creates++
	f.rows[key] = n
	return n, nil
}

type fakeAttemptStore struct {
	attempts []*domain.DeliveryAttempt
}

func (f *fakeAttemptStore) Append(_ context.Context, a *domain.DeliveryAttempt) (*domain.DeliveryAttempt, error) {
	if a.AttemptNumber == 0 {
		count := 0
		for _, prev := range f.attempts {
			if prev.NotificationID == a.NotificationID && prev.Channel == a.Channel {
				count++
			}
		}
		a.AttemptNumber = count + 1
	}
	f.attempts = append(f.attempts, a)
	return a, nil
}

func (f *fakeAttemptStore) HasSuccess(_ context.Context, notificationID string, ch domain.DeliveryChannel) (bool, error) {
	for _, a := range f.attempts {
		if a.NotificationID == notificationID && a.Channel == ch && a.Status == domain.AttemptSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttemptStore) forChannel(ch domain.DeliveryChannel) []*domain.DeliveryAttempt {
	var out []*domain.DeliveryAttempt
	for _, a := range f.attempts {
		if a.Channel == ch {
			out = append(out, a)
		}
	}
	return out
}

type fakeContacts struct {
	contact *domain.UserContact
}

func (f *fakeContacts) Get(_ context.Context, userID string) (*domain.UserContact, error) {
	if f.contact == nil {
		return nil, domain.ErrNotFound
	}
	return f.contact, nil
}

type fakeSender struct {
	channel domain.DeliveryChannel
	result  domain.SendResult
	panics  bool
	calls   int
}

func (f *fakeSender) Channel() domain.DeliveryChannel { return f.channel }

func (f *fakeSender) Send(_ context.Context, recipient string, n *domain.Notification) domain.SendResult {
	f.calls++
	if f.panics {
		panic("provider exploded")
	}
	return f.result
}

type dispatchFixture struct {
	dispatcher    *Dispatcher
	notifications *fakeNotificationStore
	attempts      *fakeAttemptStore
	prefs         *fakePrefs
	contacts      *fakeContacts
	email         *fakeSender
	push          *fakeSender
	sms           *fakeSender
}

func newFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	f := &dispatchFixture{
		notifications: &fakeNotificationStore{rows: map[string]*domain.Notification{}},
		attempts:      &fakeAttemptStore{},
		prefs:         &fakePrefs{rows: map[prefKey]bool{}},
		contacts: &fakeContacts{contact: &domain.UserContact{
			UserID:    "u1",
			Email:     "u1@example.com",
			Phone:     "+15550100",
			PushToken: "device-token",
		}},
		email: &fakeSender{channel: domain.ChannelEmail, result: domain.SendResult{Success: true, ProviderResponse: "ok"}},
		push:  &fakeSender{channel: domain.ChannelPush, result: domain.SendResult{Success: true, ProviderResponse: "ok"}},
		sms:   &fakeSender{channel: domain.ChannelSMS, result: domain.SendResult{Success: true, ProviderResponse: "ok"}},
	}

	dispatcher, err := NewDispatcher(
		f.notifications, f.attempts, f.prefs, f.contacts,
		[]Sender{f.email, f.push, f.sms},
		DefaultPreferences(), zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("failed to build dispatcher: %v", err)
	}
	f.dispatcher = dispatcher
	return f
}

func matchCancelledInput() Input {
	return Input{
		UserID:   "u1",
		Type:     domain.NotifyMatchCancelled, // default matrix enables all three channels
		TargetID: "match-42",
		Title:    "Match cancelled",
		Body:     "Sunday pickup at Riverside was cancelled",
	}
}

func TestDispatch_AllChannelsAttempted(t *testing.T) {
	f := newFixture(t)

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if !result.Created || !result.Delivered {
		t.Fatalf("expected created and delivered, got %+v", result)
	}
	for _, ch := range domain.Channels() {
		outcome := result.Channels[ch]
		if outcome.Status != domain.AttemptSuccess {
			t.Fatalf("channel %s: expected success, got %s", ch, outcome.Status)
		}
		if outcome.AttemptNumber != 1 {
			t.Fatalf("channel %s: expected attempt 1, got %d", ch, outcome.AttemptNumber)
		}
	}
	if len(f.attempts.attempts) != 3 {
		t.Fatalf("expected 3 attempt rows, got %d", len(f.attempts.attempts))
	}
}

func TestDispatch_ExplicitDisableRecordsSkip(t *testing.T) {
	f := newFixture(t)
	f.prefs.rows[prefKey{"u1", domain.NotifyMatchCancelled, domain.ChannelSMS}] = false

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if result.Channels[domain.ChannelEmail].Status != domain.AttemptSuccess {
		t.Fatalf("expected email attempt")
	}
	if result.Channels[domain.ChannelPush].Status != domain.AttemptSuccess {
		t.Fatalf("expected push attempt")
	}
	if result.Channels[domain.ChannelSMS].Status != domain.AttemptSkippedPreference {
		t.Fatalf("expected sms skipped by preference, got %s", result.Channels[domain.ChannelSMS].Status)
	}
	if f.sms.calls != 0 {
		t.Fatalf("sms sender must not be invoked for a disabled channel")
	}

	// the skip is audited, not silent
	smsAttempts := f.attempts.forChannel(domain.ChannelSMS)
	if len(smsAttempts) != 1 || smsAttempts[0].Status != domain.AttemptSkippedPreference {
		t.Fatalf("expected one skipped_preference row for sms, got %+v", smsAttempts)
	}
}

func TestDispatch_Idempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}
	second, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("second dispatch failed: %v", err)
	}

	if f.notifications.creates != 1 {
		t.Fatalf("expected exactly one notification row, got %d creates", f.notifications.creates)
	}
	if second.Created {
		t.Fatalf("second dispatch must reuse the existing notification")
	}
	if first.Notification.ID != second.Notification.ID {
		t.Fatalf("dispatches returned different notifications")
	}

	// successful channels are not re-attempted
	for _, ch := range domain.Channels() {
		if got := len(f.attempts.forChannel(ch)); got != 1 {
			t.Fatalf("channel %s: expected 1 attempt row after re-dispatch, got %d", ch, got)
		}
		if !second.Channels[ch].PriorSuccess {
			t.Fatalf("channel %s: expected prior-success skip on re-dispatch", ch)
		}
	}
	if f.email.calls != 1 || f.push.calls != 1 || f.sms.calls != 1 {
		t.Fatalf("senders must be invoked once per channel total")
	}
}

func TestDispatch_ChannelIsolation(t *testing.T) {
	f := newFixture(t)
	f.sms.panics = true

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if result.Channels[domain.ChannelEmail].Status != domain.AttemptSuccess {
		t.Fatalf("email must succeed despite sms panic")
	}
	if result.Channels[domain.ChannelPush].Status != domain.AttemptSuccess {
		t.Fatalf("push must succeed despite sms panic")
	}
	if result.Channels[domain.ChannelSMS].Status != domain.AttemptFailed {
		t.Fatalf("sms panic must record a failed attempt, got %s", result.Channels[domain.ChannelSMS].Status)
	}
	if !result.Delivered {
		t.Fatalf("overall result must report the surviving deliveries")
	}
}

func TestDispatch_RetryIncrementsAttemptNumber(t *testing.T) {
	f := newFixture(t)
	f.push.result = domain.SendResult{ErrorMessage: "provider timeout"}

	if _, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput()); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}

	// provider recovers before the retry
	f.push.result = domain.SendResult{Success: true, ProviderResponse: "ok"}

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("retry dispatch failed: %v", err)
	}

	outcome := result.Channels[domain.ChannelPush]
	if outcome.Status != domain.AttemptSuccess {
		t.Fatalf("expected retry success, got %s", outcome.Status)
	}
	if outcome.AttemptNumber != 2 {
		t.Fatalf("expected attempt number 2 on retry, got %d", outcome.AttemptNumber)
	}

	pushAttempts := f.attempts.forChannel(domain.ChannelPush)
	if len(pushAttempts) != 2 {
		t.Fatalf("expected 2 push attempt rows, got %d", len(pushAttempts))
	}
	if pushAttempts[0].Status != domain.AttemptFailed || pushAttempts[1].Status != domain.AttemptSuccess {
		t.Fatalf("expected failed then success, got %s then %s", pushAttempts[0].Status, pushAttempts[1].Status)
	}
}

func TestDispatch_MissingContactSkipsChannel(t *testing.T) {
	f := newFixture(t)
	f.contacts.contact.Phone = ""

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if result.Channels[domain.ChannelSMS].Status != domain.AttemptSkippedMissingContact {
		t.Fatalf("expected skipped_missing_contact, got %s", result.Channels[domain.ChannelSMS].Status)
	}
	if f.sms.calls != 0 {
		t.Fatalf("sender must not be called without a recipient address")
	}
	if result.Channels[domain.ChannelEmail].Status != domain.AttemptSuccess {
		t.Fatalf("email must still be attempted")
	}
}

func TestDispatch_NoContactRecordSkipsAllSends(t *testing.T) {
	f := newFixture(t)
	f.contacts.contact = nil

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	for _, ch := range domain.Channels() {
		if result.Channels[ch].Status != domain.AttemptSkippedMissingContact {
			t.Fatalf("channel %s: expected skipped_missing_contact, got %s", ch, result.Channels[ch].Status)
		}
	}
	if result.Delivered {
		t.Fatalf("nothing was delivered")
	}
}

func TestDispatch_UnknownTypeIsValidationError(t *testing.T) {
	f := newFixture(t)

	input := matchCancelledInput()
	input.Type = "bogus_type"

	_, err := f.dispatcher.Dispatch(context.Background(), input)
	if err == nil {
		t.Fatalf("expected error for unknown notification type")
	}
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if f.notifications.creates != 0 {
		t.Fatalf("nothing may persist for an invalid dispatch")
	}
}

func TestDispatch_PreferenceReResolvedOnRetry(t *testing.T) {
	f := newFixture(t)
	f.sms.result = domain.SendResult{ErrorMessage: "network error"}

	if _, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput()); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}

	// user disables sms between the failure and the retry
	f.prefs.rows[prefKey{"u1", domain.NotifyMatchCancelled, domain.ChannelSMS}] = false

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("retry dispatch failed: %v", err)
	}

	if result.Channels[domain.ChannelSMS].Status != domain.AttemptSkippedPreference {
		t.Fatalf("retry must honor the fresh preference, got %s", result.Channels[domain.ChannelSMS].Status)
	}
	if f.sms.calls != 1 {
		t.Fatalf("sms sender must not run after the user disabled the channel")
	}
}

func TestDispatch_SenderErrorIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.email.result = domain.SendResult{ErrorMessage: "mailbox unavailable", ProviderResponse: `{"code":550}`}

	result, err := f.dispatcher.Dispatch(context.Background(), matchCancelledInput())
	if err != nil {
		t.Fatalf("dispatch must not fail for a sender failure: %v", err)
	}

	outcome := result.Channels[domain.ChannelEmail]
	if outcome.Status != domain.AttemptFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}
	if outcome.Error != "mailbox unavailable" {
		t.Fatalf("expected sender error message recorded, got %q", outcome.Error)
	}

	emailAttempts := f.attempts.forChannel(domain.ChannelEmail)
	if len(emailAttempts) != 1 || emailAttempts[0].ProviderResponse != `{"code":550}` {
		t.Fatalf("provider response must be recorded on the attempt row")
	}
}

func TestNewDispatcher_RejectsGappyMatrix(t *testing.T) {
	matrix := DefaultPreferences()
	delete(matrix, domain.NotifySystemAlert)

	_, err := NewDispatcher(
		&fakeNotificationStore{rows: map[string]*domain.Notification{}},
		&fakeAttemptStore{}, &fakePrefs{}, &fakeContacts{},
		nil, matrix, zerolog.Nop(),
	)
	if err == nil {
		t.Fatalf("expected constructor to reject an incomplete matrix")
	}
}
