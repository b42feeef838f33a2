package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-festival/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, venue, starts_at, ends_at, fee_cents, currency, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Venue, e.StartsAt, e.EndsAt, e.FeeCents, e.Currency, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID, or (nil, nil) when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, title, description, COALESCE(venue,''), starts_at, ends_at, fee_cents, currency, created_by, created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.StartsAt, &e.EndsAt,
		&e.FeeCents, &e.Currency, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// List returns all events, soonest first.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, COALESCE(venue,''), starts_at, ends_at, fee_cents, currency, created_by, created_at, updated_at
		FROM events ORDER BY starts_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.StartsAt, &e.EndsAt,
			&e.FeeCents, &e.Currency, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update updates event fields (title, description, venue, schedule, fee).
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, venue string, startsAt, endsAt *time.Time, feeCents *int) error {
	const q = `UPDATE events SET title = COALESCE(NULLIF($1,''), title), description = $2,
		venue = COALESCE(NULLIF($3,''), venue),
		starts_at = COALESCE($4, starts_at), ends_at = COALESCE($5, ends_at),
		fee_cents = COALESCE($6, fee_cents), updated_at = NOW()
		WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, title, description, venue, startsAt, endsAt, feeCents, id)
	return err
}
