package admin

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/booking"
)

type PlatformStats struct {
	UsersByRole      map[string]int `json:"usersByRole"`
	BlockedUsers     int            `json:"blockedUsers"`
	BookingsByStatus map[string]int `json:"bookingsByStatus"`
	Services         int            `json:"services"`
	ActiveServices   int            `json:"activeServices"`
	Reviews          int            `json:"reviews"`
	TotalEarnings    float64        `json:"totalEarnings"`
}

func (s *Store) countBy(ctx context.Context, sql string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	type pair struct {
		Key   string
		Count int
	}
	pairs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[pair])
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		out[p.Key] = p.Count
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (PlatformStats, error) {
	var st PlatformStats
	var err error

	st.UsersByRole, err = s.countBy(ctx, `SELECT role, COUNT(*)::int FROM users GROUP BY role`)
	if err != nil {
		return st, apperr.Internal("could not count users", err)
	}
	st.BookingsByStatus, err = s.countBy(ctx, `SELECT status, COUNT(*)::int FROM reservations GROUP BY status`)
	if err != nil {
		return st, apperr.Internal("could not count bookings", err)
	}
	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*)::int FROM users WHERE is_blocked),
			(SELECT COUNT(*)::int FROM services),
			(SELECT COUNT(*)::int FROM services WHERE status = 'active'),
			(SELECT COUNT(*)::int FROM reviews),
			(SELECT COALESCE(SUM(total_earnings), 0)::float8 FROM provider_stats)`,
	).Scan(&st.BlockedUsers, &st.Services, &st.ActiveServices, &st.Reviews, &st.TotalEarnings)
	if err != nil {
		return st, apperr.Internal("could not compute stats", err)
	}
	return st, nil
}

// Stats fills in zero counts for every role and status so the dashboard
// always sees the full set of keys.
func (c *Console) Stats(ctx context.Context) (PlatformStats, error) {
	st, err := c.repo.Stats(ctx)
	if err != nil {
		return st, err
	}
	if st.UsersByRole == nil {
		st.UsersByRole = map[string]int{}
	}
	if st.BookingsByStatus == nil {
		st.BookingsByStatus = map[string]int{}
	}
	for _, r := range []account.Role{account.RoleCustomer, account.RoleProvider, account.RoleAdmin} {
		if _, ok := st.UsersByRole[string(r)]; !ok {
			st.UsersByRole[string(r)] = 0
		}
	}
	for _, s := range []booking.Status{booking.StatusPending, booking.StatusAccepted, booking.StatusRejected, booking.StatusCompleted} {
		if _, ok := st.BookingsByStatus[string(s)]; !ok {
			st.BookingsByStatus[string(s)] = 0
		}
	}
	return st, nil
}

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	st, err := h.console.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}
