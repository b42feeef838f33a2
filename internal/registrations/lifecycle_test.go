package registrations

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-festival/backend/internal/models"
)

type fakeEvents struct {
	events map[uuid.UUID]*models.Event
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	return f.events[id], nil
}

type fakeEvidence struct {
	fail    bool
	uploads int
	deleted []string
}

func (f *fakeEvidence) StoreEvidence(_ context.Context, eventID, filename, _ string, _ io.Reader, _ int64) (string, string, error) {
	if f.fail {
		return "", "", errors.New("bucket unavailable")
	}
	f.uploads++
	key := "evidence/" + eventID + "/" + filename
	return key, "https://bucket.s3.test/" + key, nil
}

func (f *fakeEvidence) DeleteEvidence(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type notification struct {
	kind   string
	email  string
	regID  uuid.UUID
	reason string
}

// recordingNotifier records calls. failDelivery simulates a broken relay; per
// the dispatcher contract that must stay invisible to the caller.
type recordingNotifier struct {
	failDelivery bool
	sent         []notification
}

func (n *recordingNotifier) NotifySubmitted(_ context.Context, c Contact, _ uuid.UUID, _ string, id uuid.UUID) {
	if n.failDelivery {
		return
	}
	n.sent = append(n.sent, notification{kind: "submitted", email: c.Email, regID: id})
}

func (n *recordingNotifier) NotifyVerified(_ context.Context, c Contact, _ uuid.UUID, _ string, id uuid.UUID) {
	if n.failDelivery {
		return
	}
	n.sent = append(n.sent, notification{kind: "verified", email: c.Email, regID: id})
}

func (n *recordingNotifier) NotifyRejected(_ context.Context, c Contact, _ uuid.UUID, _ string, id uuid.UUID, reason string) {
	if n.failDelivery {
		return
	}
	n.sent = append(n.sent, notification{kind: "rejected", email: c.Email, regID: id, reason: reason})
}

type fixture struct {
	store    *memStore
	events   *fakeEvents
	evidence *fakeEvidence
	notifier *recordingNotifier
	ctl      *Controller
	eventID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	eventID := uuid.New()
	f := &fixture{
		store: newMemStore(),
		events: &fakeEvents{events: map[uuid.UUID]*models.Event{
			eventID: {ID: eventID, Title: "Main Stage Night", FeeCents: 20000},
		}},
		evidence: &fakeEvidence{},
		notifier: &recordingNotifier{},
		eventID:  eventID,
	}
	f.ctl = NewController(f.store, f.events, f.evidence, f.notifier, nil)
	return f
}

func (f *fixture) submitInput() SubmitInput {
	return SubmitInput{
		EventID:       f.eventID,
		FullName:      "Asha Rao",
		Email:         "asha@example.com",
		Mobile:        "9876543210",
		TransactionID: "TXN-ABC-123",
		Evidence: EvidenceFile{
			Filename:    "receipt.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader([]byte("png-bytes")),
			Size:        9,
		},
	}
}

func (f *fixture) submit(t *testing.T, caller Caller) *models.Registration {
	t.Helper()
	reg, err := f.ctl.Submit(context.Background(), caller, f.submitInput())
	require.NoError(t, err)
	return reg
}

func participant() Caller {
	return Caller{UserID: uuid.New(), Role: models.RoleParticipant}
}

func staff() Caller {
	return Caller{UserID: uuid.New(), Role: models.RoleStaff}
}

func TestSubmitCreatesPendingActiveRegistration(t *testing.T) {
	f := newFixture(t)
	user := participant()

	reg := f.submit(t, user)

	assert.Equal(t, models.PaymentPending, reg.PaymentStatus)
	assert.True(t, reg.IsActive)
	assert.False(t, reg.PaymentIsVerified())
	assert.Equal(t, models.StatePendingVerification, reg.State())
	assert.Equal(t, user.UserID, reg.UserID)
	assert.NotEmpty(t, reg.EvidenceRef)
	assert.Equal(t, "TXN-ABC-123", reg.TransactionID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "submitted", f.notifier.sent[0].kind)
	assert.Equal(t, "asha@example.com", f.notifier.sent[0].email)
}

func TestSubmitUnknownEvent(t *testing.T) {
	f := newFixture(t)
	in := f.submitInput()
	in.EventID = uuid.New()

	_, err := f.ctl.Submit(context.Background(), participant(), in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitRejectsSecondActiveClaim(t *testing.T) {
	f := newFixture(t)
	user := participant()
	f.submit(t, user)

	in := f.submitInput()
	in.TransactionID = "TXN-OTHER"
	in.Evidence.Reader = bytes.NewReader([]byte("again"))
	_, err := f.ctl.Submit(context.Background(), user, in)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, f.store.activeClaims(user.UserID, f.eventID))
}

func TestSubmitConflictDeletesUploadedEvidence(t *testing.T) {
	f := newFixture(t)
	user := participant()
	first := f.submit(t, user)

	in := f.submitInput()
	in.Evidence.Reader = bytes.NewReader([]byte("again"))
	_, err := f.ctl.Submit(context.Background(), user, in)
	require.ErrorIs(t, err, ErrConflict)

	// the losing submit's upload is removed, the winner's object stays
	assert.Equal(t, 2, f.evidence.uploads)
	require.Len(t, f.evidence.deleted, 1)
	kept, err := f.store.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.EvidenceRef, kept.EvidenceRef)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"missing name", func(in *SubmitInput) { in.FullName = "  " }},
		{"malformed email", func(in *SubmitInput) { in.Email = "not-an-email" }},
		{"missing transaction id", func(in *SubmitInput) { in.TransactionID = "" }},
		{"missing evidence", func(in *SubmitInput) { in.Evidence = EvidenceFile{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := f.submitInput()
			tc.mutate(&in)
			_, err := f.ctl.Submit(context.Background(), participant(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	// no rows and no uploads happened
	assert.Equal(t, 0, f.evidence.uploads)
}

func TestSubmitAbortsWhenUploadFails(t *testing.T) {
	f := newFixture(t)
	f.evidence.fail = true
	user := participant()

	_, err := f.ctl.Submit(context.Background(), user, f.submitInput())
	assert.ErrorIs(t, err, ErrUpload)
	assert.Equal(t, 0, f.store.activeClaims(user.UserID, f.eventID))
	assert.Empty(t, f.notifier.sent)
}

func TestSubmitSucceedsWhenNotificationDeliveryFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.failDelivery = true

	reg, err := f.ctl.Submit(context.Background(), participant(), f.submitInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingVerification, reg.State())
}

func TestVerifyApprove(t *testing.T) {
	f := newFixture(t)
	reg := f.submit(t, participant())

	verified, err := f.ctl.Verify(context.Background(), staff(), reg.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentVerified, verified.PaymentStatus)
	assert.True(t, verified.IsActive)
	assert.True(t, verified.PaymentIsVerified())
	assert.Equal(t, models.StateVerified, verified.State())

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, "verified", last.kind)
	assert.Equal(t, reg.ID, last.regID)
}

func TestVerifyRejectDeactivatesAtomically(t *testing.T) {
	f := newFixture(t)
	user := participant()
	reg := f.submit(t, user)

	rejected, err := f.ctl.Verify(context.Background(), staff(), reg.ID, false, "screenshot is blurry")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, rejected.PaymentStatus)
	assert.False(t, rejected.IsActive, "rejected implies inactive")
	assert.False(t, rejected.PaymentIsVerified())
	assert.Equal(t, "screenshot is blurry", rejected.RejectionReason)
	assert.Equal(t, models.StateRejected, rejected.State())

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, "rejected", last.kind)
	assert.Equal(t, "screenshot is blurry", last.reason)
}

func TestVerifyTwiceFails(t *testing.T) {
	f := newFixture(t)
	reg := f.submit(t, participant())

	_, err := f.ctl.Verify(context.Background(), staff(), reg.ID, true, "")
	require.NoError(t, err)
	_, err = f.ctl.Verify(context.Background(), staff(), reg.ID, true, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerifyOnWithdrawnFails(t *testing.T) {
	f := newFixture(t)
	user := participant()
	reg := f.submit(t, user)
	require.NoError(t, f.ctl.Withdraw(context.Background(), user, user.UserID, f.eventID))

	_, err := f.ctl.Verify(context.Background(), staff(), reg.ID, true, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerifyUnknownRegistration(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctl.Verify(context.Background(), staff(), uuid.New(), true, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithdrawKeepsPaymentStatus(t *testing.T) {
	f := newFixture(t)
	user := participant()
	reg := f.submit(t, user)
	_, err := f.ctl.Verify(context.Background(), staff(), reg.ID, true, "")
	require.NoError(t, err)

	require.NoError(t, f.ctl.Withdraw(context.Background(), user, user.UserID, f.eventID))

	got, err := f.store.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, models.PaymentVerified, got.PaymentStatus, "withdraw leaves payment status untouched")
	assert.Equal(t, models.StateWithdrawn, got.State())
}

func TestWithdrawIsIdempotentViaNotFound(t *testing.T) {
	f := newFixture(t)
	user := participant()
	f.submit(t, user)

	require.NoError(t, f.ctl.Withdraw(context.Background(), user, user.UserID, f.eventID))
	err := f.ctl.Withdraw(context.Background(), user, user.UserID, f.eventID)
	assert.ErrorIs(t, err, ErrNotFound, "second withdraw means already withdrawn")
}

func TestReactivateResetsTrust(t *testing.T) {
	f := newFixture(t)
	user := participant()
	reg := f.submit(t, user)
	_, err := f.ctl.Verify(context.Background(), staff(), reg.ID, true, "")
	require.NoError(t, err)
	require.NoError(t, f.ctl.Withdraw(context.Background(), user, user.UserID, f.eventID))

	restored, err := f.ctl.Reactivate(context.Background(), staff(), reg.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)
	assert.Equal(t, models.PaymentPending, restored.PaymentStatus, "reactivation discards prior verification")
	assert.False(t, restored.PaymentIsVerified())
	assert.Equal(t, models.StatePendingVerification, restored.State())
}

func TestReactivateActiveFails(t *testing.T) {
	f := newFixture(t)
	reg := f.submit(t, participant())

	_, err := f.ctl.Reactivate(context.Background(), staff(), reg.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReactivateRejectedFails(t *testing.T) {
	f := newFixture(t)
	reg := f.submit(t, participant())
	_, err := f.ctl.Verify(context.Background(), staff(), reg.ID, false, "wrong amount")
	require.NoError(t, err)

	_, err = f.ctl.Reactivate(context.Background(), staff(), reg.ID)
	assert.ErrorIs(t, err, ErrInvalidState, "rejection is terminal")
}

func TestRejectionDoesNotBlockResubmission(t *testing.T) {
	f := newFixture(t)
	user := participant()
	first := f.submit(t, user)
	rejected, err := f.ctl.Verify(context.Background(), staff(), first.ID, false, "blurry")
	require.NoError(t, err)

	in := f.submitInput()
	in.TransactionID = "TXN-RETRY"
	in.Evidence.Reader = bytes.NewReader([]byte("better-shot"))
	second, err := f.ctl.Submit(context.Background(), user, in)
	require.NoError(t, err)

	assert.NotEqual(t, rejected.ID, second.ID)
	assert.Equal(t, models.StatePendingVerification, second.State())

	// the rejected row is untouched
	got, err := f.store.GetByID(context.Background(), rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, got.PaymentStatus)
	assert.False(t, got.IsActive)

	assert.Equal(t, 1, f.store.activeClaims(user.UserID, f.eventID))
}

func TestActiveClaimUniquenessAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	user := participant()

	// submit → reject → submit → verify → withdraw → reactivate: the pair
	// never holds more than one live claim at any step.
	reg := f.submit(t, user)
	assert.Equal(t, 1, f.store.activeClaims(user.UserID, f.eventID))

	_, err := f.ctl.Verify(context.Background(), staff(), reg.ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.activeClaims(user.UserID, f.eventID))

	second := f.submit(t, user)
	assert.Equal(t, 1, f.store.activeClaims(user.UserID, f.eventID))

	_, err = f.ctl.Verify(context.Background(), staff(), second.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.activeClaims(user.UserID, f.eventID))

	require.NoError(t, f.ctl.Withdraw(context.Background(), user, user.UserID, f.eventID))
	assert.Equal(t, 0, f.store.activeClaims(user.UserID, f.eventID))

	_, err = f.ctl.Reactivate(context.Background(), staff(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.activeClaims(user.UserID, f.eventID))
}
