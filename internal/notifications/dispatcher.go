package notifications

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-festival/backend/internal/emaillogs"
	"github.com/aura-festival/backend/internal/models"
	"github.com/aura-festival/backend/internal/registrations"
	"github.com/aura-festival/backend/pkg/queue"
)

// Dispatcher fires lifecycle notification emails. Delivery is best effort and
// asynchronous: each notification becomes a pending email_log row plus a Redis
// job; the worker sends it. A failure at any point is logged and swallowed so a
// flaky mail relay can never make a lifecycle transition appear to fail.
type Dispatcher struct {
	queue  *queue.Queue
	logs   *emaillogs.Repository
	logger *zap.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(q *queue.Queue, logs *emaillogs.Repository, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: q, logs: logs, logger: logger}
}

var _ registrations.Notifier = (*Dispatcher)(nil)

// NotifySubmitted fires the submission confirmation email.
func (d *Dispatcher) NotifySubmitted(ctx context.Context, contact registrations.Contact, eventID uuid.UUID, eventTitle string, registrationID uuid.UUID) {
	subject, body := submittedMessage(contact.Name, eventTitle, registrationID)
	d.dispatch(ctx, models.EmailTypeSubmitted, contact, eventID, registrationID, subject, body)
}

// NotifyVerified fires the payment verified email.
func (d *Dispatcher) NotifyVerified(ctx context.Context, contact registrations.Contact, eventID uuid.UUID, eventTitle string, registrationID uuid.UUID) {
	subject, body := verifiedMessage(contact.Name, eventTitle, registrationID)
	d.dispatch(ctx, models.EmailTypeVerified, contact, eventID, registrationID, subject, body)
}

// NotifyRejected fires the payment rejected email including the reason.
func (d *Dispatcher) NotifyRejected(ctx context.Context, contact registrations.Contact, eventID uuid.UUID, eventTitle string, registrationID uuid.UUID, reason string) {
	subject, body := rejectedMessage(contact.Name, eventTitle, registrationID, reason)
	d.dispatch(ctx, models.EmailTypeRejected, contact, eventID, registrationID, subject, body)
}

func (d *Dispatcher) dispatch(ctx context.Context, emailType string, contact registrations.Contact, eventID, registrationID uuid.UUID, subject, body string) {
	el := &models.EmailLog{
		EventID:        &eventID,
		RegistrationID: &registrationID,
		EmailType:      emailType,
		RecipientEmail: contact.Email,
		Subject:        subject,
	}
	if err := d.logs.Create(ctx, el, body); err != nil {
		d.logger.Warn("email log create failed",
			zap.Error(err),
			zap.String("email_type", emailType),
			zap.String("registration_id", registrationID.String()))
		return
	}
	err := d.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      emailType,
		EventID:        eventID,
		RegistrationID: registrationID,
		EmailLogID:     el.ID,
		RecipientName:  contact.Name,
		RecipientEmail: contact.Email,
		Subject:        subject,
		Body:           body,
	})
	if err != nil {
		d.logger.Warn("notification enqueue failed",
			zap.Error(err),
			zap.String("email_type", emailType),
			zap.String("registration_id", registrationID.String()))
		if mErr := d.logs.MarkFailed(ctx, el.ID, err.Error()); mErr != nil {
			d.logger.Warn("email log update failed", zap.Error(mErr))
		}
	}
}
