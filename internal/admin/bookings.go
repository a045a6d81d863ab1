package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type BookingRow struct {
	ID           string    `json:"id"`
	ServiceID    string    `json:"serviceId"`
	ServiceTitle string    `json:"serviceTitle"`
	CustomerID   string    `json:"customerId"`
	CustomerName string    `json:"customerName"`
	ProviderID   string    `json:"providerId"`
	ProviderName string    `json:"providerName"`
	Date         time.Time `json:"date"`
	Status       string    `json:"status"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s *Store) ListBookings(ctx context.Context) ([]BookingRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id::text, r.service_id::text, s.title, r.customer_id::text, cu.name,
		       r.provider_id::text, pr.name, r.date, r.status, r.price::float8, r.created_at, r.updated_at
		FROM reservations r
		JOIN services s ON s.id = r.service_id
		JOIN users cu ON cu.id = r.customer_id
		JOIN users pr ON pr.id = r.provider_id
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, apperr.Internal("could not fetch bookings", err)
	}
	defer rows.Close()

	items := []BookingRow{}
	for rows.Next() {
		var b BookingRow
		if err := rows.Scan(&b.ID, &b.ServiceID, &b.ServiceTitle, &b.CustomerID, &b.CustomerName,
			&b.ProviderID, &b.ProviderName, &b.Date, &b.Status, &b.Price, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, apperr.Internal("failed to read booking record", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("could not fetch bookings", err)
	}
	return items, nil
}

func (c *Console) Bookings(ctx context.Context) ([]BookingRow, error) {
	return c.repo.ListBookings(ctx)
}

// GET /admin/bookings
func (h *Handler) ListBookings(c echo.Context) error {
	items, err := h.console.Bookings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
