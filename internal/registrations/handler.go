package registrations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-festival/backend/internal/middleware"
	"github.com/aura-festival/backend/internal/models"
	"github.com/aura-festival/backend/pkg/response"
	"github.com/aura-festival/backend/pkg/storage"
)

// EvidencePresigner issues short-lived download URLs for stored screenshots.
type EvidencePresigner interface {
	PresignEvidenceURL(ctx context.Context, key string) (string, error)
}

// VerifyRequest is the body for PATCH /registrations/:id/verify.
type VerifyRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Handler handles registration lifecycle and review HTTP endpoints.
type Handler struct {
	controller *Controller
	review     *ReviewService
	presigner  EvidencePresigner
	logger     *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(controller *Controller, review *ReviewService, presigner EvidencePresigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{controller: controller, review: review, presigner: presigner, logger: logger}
}

func callerFrom(c *gin.Context) Caller {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := c.MustGet(middleware.ContextUserRole).(models.Role)
	return Caller{UserID: userID, Role: role}
}

// respondError maps the lifecycle error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error, invalidStateStatus func(*gin.Context, string)) {
	switch {
	case errors.Is(err, ErrConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidState):
		invalidStateStatus(c, err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUpload):
		response.BadRequest(c, err.Error())
	default:
		response.Internal(c, "operation failed")
	}
}

// Register handles POST /events/:id/register. Multipart form: full_name, email,
// mobile, transaction_id and a screenshot file named "screenshot".
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	file, header, err := c.Request.FormFile("screenshot")
	if err != nil {
		response.BadRequest(c, "payment screenshot is required")
		return
	}
	defer file.Close()
	if header.Size > storage.MaxEvidenceFileSize {
		response.BadRequest(c, "payment screenshot exceeds the size limit")
		return
	}

	in := SubmitInput{
		EventID:       eventID,
		FullName:      c.PostForm("full_name"),
		Email:         c.PostForm("email"),
		Mobile:        c.PostForm("mobile"),
		TransactionID: c.PostForm("transaction_id"),
		Evidence: EvidenceFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
			Size:        header.Size,
		},
	}

	reg, err := h.controller.Submit(c.Request.Context(), callerFrom(c), in)
	if err != nil {
		h.logger.Warn("submit failed", zap.Error(err), zap.String("event_id", eventID.String()))
		respondError(c, err, response.Conflict)
		return
	}
	response.Created(c, reg)
}

// Verify handles PATCH /registrations/:id/verify (staff).
func (h *Handler) Verify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.controller.Verify(c.Request.Context(), callerFrom(c), id, req.Approved, req.Reason)
	if err != nil {
		respondError(c, err, response.Conflict)
		return
	}
	response.OK(c, reg)
}

// Withdraw handles DELETE /events/:id/registration. Participants withdraw their
// own claim; staff may withdraw for someone else via ?user_id=.
func (h *Handler) Withdraw(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	caller := callerFrom(c)
	userID := caller.UserID
	if q := c.Query("user_id"); q != "" {
		if caller.Role != models.RoleAdmin && caller.Role != models.RoleStaff {
			response.Forbidden(c, "cannot withdraw another user's registration")
			return
		}
		userID, err = uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid user_id")
			return
		}
	}
	if err := h.controller.Withdraw(c.Request.Context(), caller, userID, eventID); err != nil {
		respondError(c, err, response.Conflict)
		return
	}
	response.OK(c, gin.H{"withdrawn": true})
}

// Reactivate handles PATCH /registrations/:id/reactivate (staff).
func (h *Handler) Reactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.controller.Reactivate(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		respondError(c, err, response.BadRequest)
		return
	}
	response.OK(c, reg)
}

// ListQueue returns one review queue. queue must be a known Queue name.
func (h *Handler) ListQueue(queue Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := h.review.List(c.Request.Context(), queue, c.Query("search"))
		if err != nil {
			respondError(c, err, response.BadRequest)
			return
		}
		response.OK(c, page)
	}
}

// ByEvent handles GET /events/:id/registrations (staff roster view).
func (h *Handler) ByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	roster, err := h.review.ByEvent(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err, response.BadRequest)
		return
	}
	response.OK(c, roster)
}

// EvidenceURL handles GET /registrations/:id/evidence-url (staff). Returns a
// pre-signed download URL for the stored screenshot.
func (h *Handler) EvidenceURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.controller.store.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, response.BadRequest)
		return
	}
	if reg.EvidenceRef == "" {
		response.NotFound(c, "registration has no stored evidence")
		return
	}
	url, err := h.presigner.PresignEvidenceURL(c.Request.Context(), reg.EvidenceRef)
	if err != nil {
		h.logger.Error("presign evidence failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "failed to generate evidence url")
		return
	}
	response.OK(c, gin.H{"url": url})
}
