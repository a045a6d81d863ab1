package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Submit writes the review for (customer, reservation) and recomputes the
// provider's rating in one transaction. An existing review has its rating and
// comment replaced. created reports whether a new row was inserted.
func (s *Store) Submit(ctx context.Context, rv Review) (Review, bool, float64, error) {
	var (
		created bool
		rating  float64
	)
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockStats(ctx, tx, rv.ProviderID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO reviews (id, reservation_id, customer_id, provider_id, service_id, rating, comment)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (customer_id, reservation_id) DO UPDATE
			SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
			RETURNING id::text, created_at, updated_at, (xmax = 0)`,
			uuid.NewString(), rv.ReservationID, rv.CustomerID, rv.ProviderID, rv.ServiceID, rv.Rating, rv.Comment,
		).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt, &created)
		if err != nil {
			return err
		}
		rating, err = recompute(ctx, tx, rv.ProviderID)
		return err
	})
	if err != nil {
		return Review{}, false, 0, apperr.Internal("failed to save review", err)
	}
	return rv, created, rating, nil
}

// Recompute rewrites the provider's rating from its reviews.
func (s *Store) Recompute(ctx context.Context, providerID string) (float64, error) {
	var rating float64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockStats(ctx, tx, providerID); err != nil {
			return err
		}
		var err error
		rating, err = recompute(ctx, tx, providerID)
		return err
	})
	if err != nil {
		return 0, apperr.Internal("failed to recompute rating", err)
	}
	return rating, nil
}

// lockStats holds the provider_stats row for the rest of tx so concurrent
// writers for the same provider serialize.
func lockStats(ctx context.Context, tx pgx.Tx, providerID string) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO provider_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, providerID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `SELECT 1 FROM provider_stats WHERE user_id = $1 FOR UPDATE`, providerID)
	return err
}

func recompute(ctx context.Context, tx pgx.Tx, providerID string) (float64, error) {
	rows, err := tx.Query(ctx, `
		SELECT id::text, service_id::text, rating, created_at, updated_at
		FROM reviews WHERE provider_id = $1`, providerID)
	if err != nil {
		return 0, err
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Review, error) {
		var rv Review
		err := row.Scan(&rv.ID, &rv.ServiceID, &rv.Rating, &rv.CreatedAt, &rv.UpdatedAt)
		return rv, err
	})
	if err != nil {
		return 0, err
	}

	rating := LatestPerServiceMean(reviews)
	if _, err := tx.Exec(ctx,
		`UPDATE provider_stats SET average_rating = $2, updated_at = NOW() WHERE user_id = $1`,
		providerID, rating); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET rating = $2 WHERE id = $1`, providerID, rating); err != nil {
		return 0, err
	}
	return rating, nil
}

// ListForProvider returns the provider's reviews with the customer's name and
// the service title, newest first.
func (s *Store) ListForProvider(ctx context.Context, providerID string) ([]Review, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id::text, r.reservation_id::text, r.customer_id::text, r.provider_id::text, r.service_id::text,
		       r.rating, r.comment, r.created_at, r.updated_at, c.name, s.title
		FROM reviews r
		JOIN users c ON c.id = r.customer_id
		JOIN services s ON s.id = r.service_id
		WHERE r.provider_id = $1
		ORDER BY r.created_at DESC`, providerID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch reviews", err)
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var rv Review
		if err := rows.Scan(
			&rv.ID, &rv.ReservationID, &rv.CustomerID, &rv.ProviderID, &rv.ServiceID,
			&rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt, &rv.CustomerName, &rv.ServiceTitle,
		); err != nil {
			return nil, apperr.Internal("failed to parse review", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to fetch reviews", err)
	}
	return out, nil
}
