package registrations

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-festival/backend/internal/models"
)

// Queue names the review queues staff triage from.
type Queue string

const (
	QueuePending   Queue = "pending"
	QueueVerified  Queue = "verified"
	QueueRejected  Queue = "rejected"
	QueueWithdrawn Queue = "withdrawn"
)

// QueuePage is an ordered point-in-time snapshot of one review queue.
type QueuePage struct {
	Registrations []models.Registration `json:"registrations"`
	Total         int                   `json:"total"`
}

// EventRoster is the active non-rejected roster of one event.
type EventRoster struct {
	EventID           uuid.UUID             `json:"event_id"`
	Registrations     []models.Registration `json:"registrations"`
	RegistrationCount int                   `json:"registration_count"`
}

// ReviewService provides read-side projections for staff triage. It never
// mutates state; transitions re-validate their preconditions, so a snapshot
// going stale between query and staff action is harmless.
type ReviewService struct {
	store Store
}

// NewReviewService creates a review query service.
func NewReviewService(store Store) *ReviewService {
	return &ReviewService{store: store}
}

// List returns one review queue, filtered by a case-insensitive substring
// match on registrant name, email or mobile when search is non-empty.
func (s *ReviewService) List(ctx context.Context, queue Queue, search string) (*QueuePage, error) {
	var (
		regs []models.Registration
		err  error
	)
	switch queue {
	case QueuePending:
		regs, err = s.store.ListPending(ctx, search)
	case QueueVerified:
		regs, err = s.store.ListVerified(ctx, search)
	case QueueRejected:
		regs, err = s.store.ListRejected(ctx, search)
	case QueueWithdrawn:
		regs, err = s.store.ListWithdrawn(ctx, search)
	default:
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &QueuePage{Registrations: regs, Total: len(regs)}, nil
}

// ByEvent returns the active non-rejected registrations for one event,
// annotated with the event's registration count for capacity views.
func (s *ReviewService) ByEvent(ctx context.Context, eventID uuid.UUID) (*EventRoster, error) {
	regs, err := s.store.ListActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &EventRoster{EventID: eventID, Registrations: regs, RegistrationCount: count}, nil
}
