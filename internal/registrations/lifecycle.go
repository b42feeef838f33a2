package registrations

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-festival/backend/internal/models"
)

// Caller identifies who is invoking a lifecycle operation. Passed explicitly so
// the controller never reads ambient session state.
type Caller struct {
	UserID uuid.UUID
	Role   models.Role
}

// Contact is the registrant contact snapshot handed to the notifier.
type Contact struct {
	Name   string
	Email  string
	Mobile string
}

// EventLookup resolves events owned by the events collaborator.
// A nil event with nil error means the event does not exist.
type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// EvidenceStore persists payment screenshots and returns a storage key and URL.
// DeleteEvidence removes an object left orphaned when the registration row was
// never written.
type EvidenceStore interface {
	StoreEvidence(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (key, url string, err error)
	DeleteEvidence(ctx context.Context, key string) error
}

// Notifier fires best-effort lifecycle emails. Implementations must never
// return delivery failures into the lifecycle path; they log and move on.
type Notifier interface {
	NotifySubmitted(ctx context.Context, contact Contact, eventID uuid.UUID, eventTitle string, registrationID uuid.UUID)
	NotifyVerified(ctx context.Context, contact Contact, eventID uuid.UUID, eventTitle string, registrationID uuid.UUID)
	NotifyRejected(ctx context.Context, contact Contact, eventID uuid.UUID, eventTitle string, registrationID uuid.UUID, reason string)
}

// EvidenceFile is an uploaded payment screenshot.
type EvidenceFile struct {
	Filename    string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// SubmitInput carries everything needed to create a registration.
type SubmitInput struct {
	EventID       uuid.UUID
	FullName      string
	Email         string
	Mobile        string
	TransactionID string
	Evidence      EvidenceFile
}

// Controller applies the registration state machine. All user and staff
// transitions funnel through here so the invariants are enforced in one place.
type Controller struct {
	store    Store
	events   EventLookup
	evidence EvidenceStore
	notifier Notifier
	logger   *zap.Logger
}

// NewController creates a lifecycle controller.
func NewController(store Store, events EventLookup, evidence EvidenceStore, notifier Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{store: store, events: events, evidence: evidence, notifier: notifier, logger: logger}
}

func validateSubmit(in SubmitInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: malformed email address", ErrValidation)
	}
	if strings.TrimSpace(in.TransactionID) == "" {
		return fmt.Errorf("%w: transaction id is required", ErrValidation)
	}
	if in.Evidence.Reader == nil || in.Evidence.Size <= 0 {
		return fmt.Errorf("%w: payment screenshot is required", ErrValidation)
	}
	return nil
}

// Submit creates a new pending active registration for (caller, event).
//
// The evidence upload must complete before the row is written; an upload
// failure aborts the whole submit. A prior rejected registration for the same
// pair does not block a new submit.
func (ctl *Controller) Submit(ctx context.Context, caller Caller, in SubmitInput) (*models.Registration, error) {
	if err := validateSubmit(in); err != nil {
		return nil, err
	}

	event, err := ctl.events.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("lookup event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, in.EventID)
	}

	ref, url, err := ctl.evidence.StoreEvidence(ctx, in.EventID.String(),
		in.Evidence.Filename, in.Evidence.ContentType, in.Evidence.Reader, in.Evidence.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	reg := &models.Registration{
		UserID:           caller.UserID,
		EventID:          in.EventID,
		PaymentStatus:    models.PaymentPending,
		IsActive:         true,
		TransactionID:    strings.TrimSpace(in.TransactionID),
		EvidenceRef:      ref,
		EvidenceURL:      url,
		RegistrantName:   strings.TrimSpace(in.FullName),
		RegistrantEmail:  in.Email,
		RegistrantMobile: strings.TrimSpace(in.Mobile),
	}
	if err := ctl.store.Create(ctx, reg); err != nil {
		// The upload already happened; drop the object so a failed submit
		// (typically a duplicate-claim conflict) leaves nothing behind.
		if delErr := ctl.evidence.DeleteEvidence(ctx, ref); delErr != nil {
			ctl.logger.Warn("evidence cleanup failed",
				zap.String("evidence_ref", ref),
				zap.Error(delErr))
		}
		return nil, err
	}

	ctl.logger.Info("registration submitted",
		zap.String("registration_id", reg.ID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("event_id", in.EventID.String()))
	ctl.notifier.NotifySubmitted(ctx, contactOf(reg), reg.EventID, event.Title, reg.ID)
	return reg, nil
}

// Verify approves or rejects a pending registration. Only meaningful on a live
// pending claim; any other state is ErrInvalidState. Rejection deactivates the
// row in the same atomic update.
func (ctl *Controller) Verify(ctx context.Context, caller Caller, id uuid.UUID, approved bool, reason string) (*models.Registration, error) {
	current, err := ctl.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.State() != models.StatePendingVerification {
		return nil, fmt.Errorf("%w: registration is %s", ErrInvalidState, current.State())
	}

	var reg *models.Registration
	if approved {
		reg, err = ctl.store.MarkVerified(ctx, id)
	} else {
		reg, err = ctl.store.MarkRejected(ctx, id, reason)
	}
	if err != nil {
		return nil, err
	}

	event, evErr := ctl.events.GetByID(ctx, reg.EventID)
	title := ""
	if evErr == nil && event != nil {
		title = event.Title
	}
	ctl.logger.Info("registration reviewed",
		zap.String("registration_id", id.String()),
		zap.Bool("approved", approved),
		zap.String("reviewed_by", caller.UserID.String()))
	if approved {
		ctl.notifier.NotifyVerified(ctx, contactOf(reg), reg.EventID, title, reg.ID)
	} else {
		ctl.notifier.NotifyRejected(ctx, contactOf(reg), reg.EventID, title, reg.ID, reason)
	}
	return reg, nil
}

// Withdraw deactivates the caller's active claim on an event. Payment status is
// retained for audit and reactivation. A second withdraw finds no active row
// and returns ErrNotFound, which callers treat as "already withdrawn".
func (ctl *Controller) Withdraw(ctx context.Context, caller Caller, userID, eventID uuid.UUID) error {
	if err := ctl.store.Deactivate(ctx, userID, eventID); err != nil {
		return err
	}
	ctl.logger.Info("registration withdrawn",
		zap.String("user_id", userID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("withdrawn_by", caller.UserID.String()))
	return nil
}

// Reactivate restores a withdrawn registration to pending review. The payment
// status resets to PENDING even if it was VERIFIED before the withdrawal, so
// staff re-review every reactivated claim.
func (ctl *Controller) Reactivate(ctx context.Context, caller Caller, id uuid.UUID) (*models.Registration, error) {
	current, err := ctl.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.State() != models.StateWithdrawn {
		return nil, fmt.Errorf("%w: registration is %s", ErrInvalidState, current.State())
	}
	reg, err := ctl.store.Reactivate(ctx, id)
	if err != nil {
		return nil, err
	}
	ctl.logger.Info("registration reactivated",
		zap.String("registration_id", id.String()),
		zap.String("reactivated_by", caller.UserID.String()))
	return reg, nil
}

func contactOf(reg *models.Registration) Contact {
	return Contact{Name: reg.RegistrantName, Email: reg.RegistrantEmail, Mobile: reg.RegistrantMobile}
}
