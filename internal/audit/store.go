package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/review"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Snapshots reads every provider with its stored counters, the totals of its
// completed reservations and all of its reviews.
func (s *Store) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id::text, u.name,
		       u.jobs_completed, u.total_earnings::float8, u.rating,
		       COALESCE(ps.jobs_completed, 0), COALESCE(ps.total_earnings, 0)::float8, COALESCE(ps.average_rating, 0),
		       COUNT(r.id)::int, COALESCE(SUM(r.price), 0)::float8
		FROM users u
		LEFT JOIN provider_stats ps ON ps.user_id = u.id
		LEFT JOIN reservations r ON r.provider_id = u.id AND r.status = 'completed'
		WHERE u.role = 'provider'
		GROUP BY u.id, ps.jobs_completed, ps.total_earnings, ps.average_rating
		ORDER BY u.created_at`)
	if err != nil {
		return nil, apperr.Internal("failed to read provider stats", err)
	}
	snapshots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var sn Snapshot
		err := row.Scan(&sn.ProviderID, &sn.Name,
			&sn.Account.Jobs, &sn.Account.Earnings, &sn.Account.Rating,
			&sn.Stats.Jobs, &sn.Stats.Earnings, &sn.Stats.Rating,
			&sn.Completed, &sn.Earned)
		return sn, err
	})
	if err != nil {
		return nil, apperr.Internal("failed to read provider stats", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT r.id::text, r.provider_id::text, r.service_id::text, r.rating, r.created_at, r.updated_at
		FROM reviews r JOIN users u ON u.id = r.provider_id
		WHERE u.role = 'provider'`)
	if err != nil {
		return nil, apperr.Internal("failed to read reviews", err)
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (review.Review, error) {
		var rv review.Review
		err := row.Scan(&rv.ID, &rv.ProviderID, &rv.ServiceID, &rv.Rating, &rv.CreatedAt, &rv.UpdatedAt)
		return rv, err
	})
	if err != nil {
		return nil, apperr.Internal("failed to read reviews", err)
	}

	byProvider := make(map[string][]review.Review)
	for _, rv := range reviews {
		byProvider[rv.ProviderID] = append(byProvider[rv.ProviderID], rv)
	}
	for i := range snapshots {
		snapshots[i].Reviews = byProvider[snapshots[i].ProviderID]
	}
	return snapshots, nil
}
