package emaillogs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-festival/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending email log row and fills in its ID.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog, body string) error {
	const q = `INSERT INTO email_logs (id, event_id, registration_id, email_type, recipient_email, subject, body, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, el.EventID, el.RegistrationID, el.EmailType, el.RecipientEmail, el.Subject, body).
		Scan(&el.ID, &el.CreatedAt)
}

// GetByID returns an email log with its stored body, or (nil, "", nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, string, error) {
	const q = `SELECT id, event_id, registration_id, email_type, recipient_email, COALESCE(subject,''),
		COALESCE(body,''), status, sent_at, COALESCE(error_message,''), created_at
		FROM email_logs WHERE id = $1`
	var el models.EmailLog
	var body string
	err := r.pool.QueryRow(ctx, q, id).Scan(&el.ID, &el.EventID, &el.RegistrationID, &el.EmailType,
		&el.RecipientEmail, &el.Subject, &body, &el.Status, &el.SentAt, &el.ErrorMessage, &el.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &el, body, nil
}

// MarkSent records successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE email_logs SET status = 'sent', sent_at = NOW(), error_message = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// MarkFailed records a delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE email_logs SET status = 'failed', error_message = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, errMsg)
	return err
}

// ListByEvent returns email logs for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, event_id, registration_id, email_type, recipient_email, COALESCE(subject,''),
		status, sent_at, COALESCE(error_message,''), created_at
		FROM email_logs
		WHERE event_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.EventID, &el.RegistrationID, &el.EmailType, &el.RecipientEmail,
			&el.Subject, &el.Status, &el.SentAt, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
