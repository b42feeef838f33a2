package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-festival/backend/internal/models"
)

// Store is the durable record of registration attempts. Mutations are
// conditional single-row updates: the WHERE clause re-checks the state
// precondition so concurrent transitions on the same row cannot interleave.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	MarkRejected(ctx context.Context, id uuid.UUID, reason string) (*models.Registration, error)
	Deactivate(ctx context.Context, userID, eventID uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) (*models.Registration, error)

	ListPending(ctx context.Context, search string) ([]models.Registration, error)
	ListVerified(ctx context.Context, search string) ([]models.Registration, error)
	ListRejected(ctx context.Context, search string) ([]models.Registration, error)
	ListWithdrawn(ctx context.Context, search string) ([]models.Registration, error)
	ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

const regColumns = `id, user_id, event_id, payment_status, is_active, transaction_id,
	COALESCE(evidence_ref,''), COALESCE(evidence_url,''), COALESCE(rejection_reason,''),
	registrant_name, registrant_email, COALESCE(registrant_mobile,''), created_at, updated_at`

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.PaymentStatus, &reg.IsActive,
		&reg.TransactionID, &reg.EvidenceRef, &reg.EvidenceURL, &reg.RejectionReason,
		&reg.RegistrantName, &reg.RegistrantEmail, &reg.RegistrantMobile, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create inserts a new pending active registration. The partial unique index
// uniq_active_claim rejects a second active non-rejected row for the same
// (user_id, event_id), which surfaces here as ErrConflict.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations
		(id, user_id, event_id, payment_status, is_active, transaction_id, evidence_ref, evidence_url,
		 registrant_name, registrant_email, registrant_mobile)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, reg.UserID, reg.EventID, reg.PaymentStatus, reg.IsActive,
		reg.TransactionID, reg.EvidenceRef, reg.EvidenceURL,
		reg.RegistrantName, reg.RegistrantEmail, reg.RegistrantMobile).
		Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// MarkVerified approves a pending active registration. The WHERE clause re-checks
// the precondition, so a concurrent transition makes this report ErrInvalidState.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `UPDATE registrations
		SET payment_status = 'VERIFIED', rejection_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'PENDING' AND is_active
		RETURNING ` + regColumns
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	return reg, nil
}

// MarkRejected rejects a pending active registration. Rejection and deactivation
// happen in one statement; no intermediate state is observable.
func (r *Repository) MarkRejected(ctx context.Context, id uuid.UUID, reason string) (*models.Registration, error) {
	const q = `UPDATE registrations
		SET payment_status = 'REJECTED', is_active = FALSE, rejection_reason = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'PENDING' AND is_active
		RETURNING ` + regColumns
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("mark rejected: %w", err)
	}
	return reg, nil
}

// Deactivate withdraws the active claim for (userID, eventID). Payment status is
// left untouched. ErrNotFound when no active row exists.
func (r *Repository) Deactivate(ctx context.Context, userID, eventID uuid.UUID) error {
	const q = `UPDATE registrations SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND event_id = $2 AND is_active AND payment_status <> 'REJECTED'`
	tag, err := r.pool.Exec(ctx, q, userID, eventID)
	if err != nil {
		return fmt.Errorf("deactivate registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Reactivate restores a withdrawn non-rejected registration to pending review.
// The status reset forces staff to re-verify the evidence.
func (r *Repository) Reactivate(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `UPDATE registrations
		SET is_active = TRUE, payment_status = 'PENDING', updated_at = NOW()
		WHERE id = $1 AND NOT is_active AND payment_status <> 'REJECTED'
		RETURNING ` + regColumns
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("reactivate registration: %w", err)
	}
	return reg, nil
}

// searchClause appends a case-insensitive contact-field filter when search is non-empty.
func searchClause(base string, search string, args []interface{}) (string, []interface{}) {
	if search == "" {
		return base, args
	}
	n := len(args) + 1
	cond := fmt.Sprintf(` AND (registrant_name ILIKE $%d OR registrant_email ILIKE $%d OR registrant_mobile ILIKE $%d)`, n, n, n)
	return base + cond, append(args, "%"+search+"%")
}

func (r *Repository) list(ctx context.Context, where, search string, args ...interface{}) ([]models.Registration, error) {
	q := `SELECT ` + regColumns + ` FROM registrations WHERE ` + where
	q, args = searchClause(q, search, args)
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	var out []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

// ListPending returns active pending registrations that carry evidence.
func (r *Repository) ListPending(ctx context.Context, search string) ([]models.Registration, error) {
	return r.list(ctx, `payment_status = 'PENDING' AND is_active AND evidence_ref IS NOT NULL`, search)
}

// ListVerified returns active verified registrations.
func (r *Repository) ListVerified(ctx context.Context, search string) ([]models.Registration, error) {
	return r.list(ctx, `payment_status = 'VERIFIED' AND is_active`, search)
}

// ListRejected returns rejected registrations.
func (r *Repository) ListRejected(ctx context.Context, search string) ([]models.Registration, error) {
	return r.list(ctx, `payment_status = 'REJECTED'`, search)
}

// ListWithdrawn returns inactive non-rejected registrations.
func (r *Repository) ListWithdrawn(ctx context.Context, search string) ([]models.Registration, error) {
	return r.list(ctx, `NOT is_active AND payment_status <> 'REJECTED'`, search)
}

// ListActiveByEvent returns the non-rejected active roster for one event.
func (r *Repository) ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	return r.list(ctx, `event_id = $1 AND is_active AND payment_status <> 'REJECTED'`, "", eventID)
}

// CountActiveByEvent returns the number of active non-rejected registrations for an event.
func (r *Repository) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND is_active AND payment_status <> 'REJECTED'`,
		eventID).Scan(&n)
	return n, err
}
