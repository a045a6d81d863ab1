package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
)

var (
	ErrNotFound        = apperr.NotFound("reservation not found")
	ErrServiceNotFound = apperr.NotFound("service not found")
	// ErrStatusChanged is returned when a conditional transition matched no
	// row because another request moved the reservation first.
	ErrStatusChanged = apperr.Conflict("reservation status changed, reload and retry")
)

const reservationColumns = `
	r.id::text, r.service_id::text, r.customer_id::text, r.provider_id::text,
	r.date, r.status, r.price::float8, r.created_at, r.updated_at`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanReservation(row pgx.Row, extra ...any) (Reservation, error) {
	var r Reservation
	var status string
	dest := append([]any{
		&r.ID, &r.ServiceID, &r.CustomerID, &r.ProviderID,
		&r.Date, &status, &r.Price, &r.CreatedAt, &r.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Reservation{}, err
	}
	r.Status = Status(status)
	return r, nil
}

// BookableService loads an active service. Archived services cannot be
// booked and are reported as missing.
func (s *Store) BookableService(ctx context.Context, id string) (ServiceRef, error) {
	var ref ServiceRef
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, provider_id::text, title, price::float8
		FROM services WHERE id = $1 AND status = 'active'`, id,
	).Scan(&ref.ID, &ref.ProviderID, &ref.Title, &ref.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceRef{}, ErrServiceNotFound
		}
		return ServiceRef{}, apperr.Internal("failed to fetch service", err)
	}
	return ref, nil
}

func (s *Store) Create(ctx context.Context, r Reservation) (Reservation, error) {
	r.ID = uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO reservations AS r (id, service_id, customer_id, provider_id, date, status, price)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING`+reservationColumns,
		r.ID, r.ServiceID, r.CustomerID, r.ProviderID, r.Date, r.Price,
	)
	created, err := scanReservation(row)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Reservation{}, ErrServiceNotFound
		}
		return Reservation{}, apperr.Internal("failed to create reservation", err)
	}
	return created, nil
}

func (s *Store) Get(ctx context.Context, id string) (Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx,
		`SELECT`+reservationColumns+` FROM reservations r WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrNotFound
		}
		return Reservation{}, apperr.Internal("failed to fetch reservation", err)
	}
	return r, nil
}

// DeletePending removes the reservation only while it is still pending.
func (s *Store) DeletePending(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reservations WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return apperr.Internal("failed to cancel reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

// SetStatus moves a reservation from one status to another. The update is
// conditional on the current status so racing transitions cannot both win.
func (s *Store) SetStatus(ctx context.Context, id string, from, to Status) (Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx, `
		UPDATE reservations AS r SET status = $3, updated_at = NOW()
		WHERE r.id = $1 AND r.status = $2
		RETURNING`+reservationColumns,
		id, string(from), string(to),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrStatusChanged
		}
		return Reservation{}, apperr.Internal("failed to update reservation status", err)
	}
	return r, nil
}

// Complete marks an accepted reservation completed and credits the
// provider's stats in the same transaction.
func (s *Store) Complete(ctx context.Context, id string) (Reservation, error) {
	var done Reservation
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		r, err := scanReservation(tx.QueryRow(ctx, `
			UPDATE reservations AS r SET status = 'completed', updated_at = NOW()
			WHERE r.id = $1 AND r.status = 'accepted'
			RETURNING`+reservationColumns, id))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users
			SET jobs_completed = jobs_completed + 1, total_earnings = total_earnings + $2
			WHERE id = $1`,
			r.ProviderID, r.Price,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO provider_stats (user_id, jobs_completed, total_earnings)
			VALUES ($1, 1, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET jobs_completed = provider_stats.jobs_completed + 1,
			    total_earnings = provider_stats.total_earnings + EXCLUDED.total_earnings,
			    updated_at = NOW()`,
			r.ProviderID, r.Price,
		); err != nil {
			return err
		}

		done = r
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrStatusChanged
		}
		return Reservation{}, apperr.Internal("failed to complete reservation", err)
	}
	return done, nil
}

func (s *Store) UpdateDate(ctx context.Context, id string, date time.Time) (Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx, `
		UPDATE reservations AS r SET date = $2, updated_at = NOW()
		WHERE r.id = $1 AND r.status IN ('pending', 'accepted')
		RETURNING`+reservationColumns,
		id, date,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrStatusChanged
		}
		return Reservation{}, apperr.Internal("failed to reschedule reservation", err)
	}
	return r, nil
}

// ListForProvider returns the provider's bookings with the customer as
// counterpart, newest first.
func (s *Store) ListForProvider(ctx context.Context, providerID string) ([]View, error) {
	return s.listViews(ctx, `r.customer_id`, `r.provider_id = $1`, providerID)
}

// ListForCustomer returns the customer's bookings with the provider as
// counterpart, newest first.
func (s *Store) ListForCustomer(ctx context.Context, customerID string) ([]View, error) {
	return s.listViews(ctx, `r.provider_id`, `r.customer_id = $1`, customerID)
}

func (s *Store) listViews(ctx context.Context, counterpart, where string, arg string) ([]View, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+reservationColumns+`,
		       s.title, s.photo_url, u.id::text, u.name, u.email, u.phone, u.city
		FROM reservations r
		JOIN services s ON s.id = r.service_id
		JOIN users u ON u.id = `+counterpart+`
		WHERE `+where+`
		ORDER BY r.created_at DESC`, arg)
	if err != nil {
		return nil, apperr.Internal("failed to fetch bookings", err)
	}
	defer rows.Close()

	out := []View{}
	for rows.Next() {
		var v View
		r, err := scanReservation(rows,
			&v.ServiceTitle, &v.ServicePhotoURL,
			&v.Counterpart.ID, &v.Counterpart.Name, &v.Counterpart.Email, &v.Counterpart.Phone, &v.Counterpart.City,
		)
		if err != nil {
			return nil, apperr.Internal("failed to parse booking", err)
		}
		v.Reservation = r
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to fetch bookings", err)
	}
	return out, nil
}
