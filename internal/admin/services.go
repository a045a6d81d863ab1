package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// ServiceRow is a service as the admin sees it, archived ones included.
type ServiceRow struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"providerId"`
	ProviderName string    `json:"providerName"`
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Store) ListServices(ctx context.Context) ([]ServiceRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id::text, s.provider_id::text, u.name, s.category_id::text, c.name,
		       s.title, s.price::float8, s.status, s.created_at
		FROM services s
		JOIN users u ON u.id = s.provider_id
		JOIN categories c ON c.id = s.category_id
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, apperr.Internal("could not fetch services", err)
	}
	defer rows.Close()

	items := []ServiceRow{}
	for rows.Next() {
		var r ServiceRow
		if err := rows.Scan(&r.ID, &r.ProviderID, &r.ProviderName, &r.CategoryID, &r.CategoryName,
			&r.Title, &r.Price, &r.Status, &r.CreatedAt); err != nil {
			return nil, apperr.Internal("failed to read service record", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("could not fetch services", err)
	}
	return items, nil
}

func (c *Console) Services(ctx context.Context) ([]ServiceRow, error) {
	return c.repo.ListServices(ctx)
}

// GET /admin/services
func (h *Handler) ListServices(c echo.Context) error {
	items, err := h.console.Services(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
