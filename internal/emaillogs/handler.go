package emaillogs

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-festival/backend/pkg/queue"
	"github.com/aura-festival/backend/pkg/response"
)

// Handler exposes notification audit endpoints for staff.
type Handler struct {
	repo   *Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, queue: q, logger: logger}
}

// ListByEvent handles GET /events/:id/emails.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list email logs")
		return
	}
	response.OK(c, gin.H{"emails": list, "total": len(list)})
}

// Resend handles POST /events/:id/emails/:logId/resend. Re-enqueues the stored
// message against the same log row.
func (h *Handler) Resend(c *gin.Context) {
	logID, err := uuid.Parse(c.Param("logId"))
	if err != nil {
		response.BadRequest(c, "invalid email log id")
		return
	}
	el, body, err := h.repo.GetByID(c.Request.Context(), logID)
	if err != nil {
		response.Internal(c, "failed to load email log")
		return
	}
	if el == nil {
		response.NotFound(c, "email log not found")
		return
	}

	payload := queue.EmailPayload{
		EmailType:      el.EmailType,
		EmailLogID:     el.ID,
		RecipientEmail: el.RecipientEmail,
		Subject:        el.Subject,
		Body:           body,
	}
	if el.EventID != nil {
		payload.EventID = *el.EventID
	}
	if el.RegistrationID != nil {
		payload.RegistrationID = *el.RegistrationID
	}
	if err := h.queue.EnqueueEmail(c.Request.Context(), payload); err != nil {
		h.logger.Error("resend enqueue failed", zap.Error(err), zap.String("email_log_id", logID.String()))
		response.Internal(c, "failed to enqueue email")
		return
	}
	response.OK(c, gin.H{"resent": true})
}
