package registrations

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-festival/backend/internal/models"
)

// memStore is an in-memory Store with the same transition semantics as the
// PostgreSQL repository, used to exercise the controller and review service.
type memStore struct {
	mu   sync.Mutex
	regs map[uuid.UUID]*models.Registration
}

func newMemStore() *memStore {
	return &memStore{regs: make(map[uuid.UUID]*models.Registration)}
}

func (m *memStore) Create(_ context.Context, reg *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.UserID == reg.UserID && r.EventID == reg.EventID && r.IsActive && r.PaymentStatus != models.PaymentRejected {
			return ErrConflict
		}
	}
	reg.ID = uuid.New()
	reg.CreatedAt = time.Now()
	reg.UpdatedAt = reg.CreatedAt
	cp := *reg
	m.regs[reg.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) MarkVerified(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok || r.PaymentStatus != models.PaymentPending || !r.IsActive {
		return nil, ErrInvalidState
	}
	r.PaymentStatus = models.PaymentVerified
	r.RejectionReason = ""
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *memStore) MarkRejected(_ context.Context, id uuid.UUID, reason string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok || r.PaymentStatus != models.PaymentPending || !r.IsActive {
		return nil, ErrInvalidState
	}
	r.PaymentStatus = models.PaymentRejected
	r.IsActive = false
	r.RejectionReason = reason
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *memStore) Deactivate(_ context.Context, userID, eventID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.UserID == userID && r.EventID == eventID && r.IsActive && r.PaymentStatus != models.PaymentRejected {
			r.IsActive = false
			r.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) Reactivate(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok || r.IsActive || r.PaymentStatus == models.PaymentRejected {
		return nil, ErrInvalidState
	}
	r.IsActive = true
	r.PaymentStatus = models.PaymentPending
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func matchesSearch(r *models.Registration, search string) bool {
	if search == "" {
		return true
	}
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(r.RegistrantName), s) ||
		strings.Contains(strings.ToLower(r.RegistrantEmail), s) ||
		strings.Contains(strings.ToLower(r.RegistrantMobile), s)
}

func (m *memStore) list(search string, keep func(*models.Registration) bool) []models.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registration
	for _, r := range m.regs {
		if keep(r) && matchesSearch(r, search) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListPending(_ context.Context, search string) ([]models.Registration, error) {
	return m.list(search, func(r *models.Registration) bool {
		return r.PaymentStatus == models.PaymentPending && r.IsActive && r.EvidenceRef != ""
	}), nil
}

func (m *memStore) ListVerified(_ context.Context, search string) ([]models.Registration, error) {
	return m.list(search, func(r *models.Registration) bool {
		return r.PaymentStatus == models.PaymentVerified && r.IsActive
	}), nil
}

func (m *memStore) ListRejected(_ context.Context, search string) ([]models.Registration, error) {
	return m.list(search, func(r *models.Registration) bool {
		return r.PaymentStatus == models.PaymentRejected
	}), nil
}

func (m *memStore) ListWithdrawn(_ context.Context, search string) ([]models.Registration, error) {
	return m.list(search, func(r *models.Registration) bool {
		return !r.IsActive && r.PaymentStatus != models.PaymentRejected
	}), nil
}

func (m *memStore) ListActiveByEvent(_ context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	return m.list("", func(r *models.Registration) bool {
		return r.EventID == eventID && r.IsActive && r.PaymentStatus != models.PaymentRejected
	}), nil
}

func (m *memStore) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	regs, _ := m.ListActiveByEvent(ctx, eventID)
	return len(regs), nil
}

// activeClaims counts live non-rejected rows for one (user, event) pair.
func (m *memStore) activeClaims(userID, eventID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.regs {
		if r.UserID == userID && r.EventID == eventID && r.IsActive && r.PaymentStatus != models.PaymentRejected {
			n++
		}
	}
	return n
}
