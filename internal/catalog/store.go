package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
)

var (
	ErrCategoryNotFound = apperr.NotFound("category not found")
	ErrCategoryExists   = apperr.Conflict("category already exists")
	ErrCategoryInUse    = apperr.Conflict("category is used by existing services")
	ErrServiceNotFound  = apperr.NotFound("service not found")
)

const selectService = `
	SELECT s.id::text, s.provider_id::text, s.category_id::text, s.title, s.description, s.price::float8,
	       s.photo_url, s.status, s.created_at, s.updated_at, c.name, u.name, u.rating
	FROM services s
	JOIN categories c ON c.id = s.category_id
	JOIN users u ON u.id = s.provider_id`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// =========================
// Categories
// =========================

func (s *Store) CreateCategory(ctx context.Context, name string) (Category, error) {
	c := Category{ID: uuid.NewString(), Name: name}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (id, name) VALUES ($1, $2) RETURNING created_at`, c.ID, name,
	).Scan(&c.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Category{}, ErrCategoryExists
		}
		return Category{}, apperr.Internal("failed to create category", err)
	}
	return c, nil
}

// DeleteCategory refuses to delete a category that services still reference.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return apperr.Internal("failed to delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, apperr.Internal("failed to list categories", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, apperr.Internal("failed to parse category", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CategoryExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperr.Internal("failed to check category", err)
	}
	return exists, nil
}

// =========================
// Services
// =========================

func scanService(row pgx.Row) (Service, error) {
	var svc Service
	var status string
	err := row.Scan(
		&svc.ID, &svc.ProviderID, &svc.CategoryID, &svc.Title, &svc.Description, &svc.Price,
		&svc.PhotoURL, &status, &svc.CreatedAt, &svc.UpdatedAt, &svc.CategoryName, &svc.ProviderName, &svc.ProviderRating,
	)
	svc.Status = ServiceStatus(status)
	return svc, err
}

func (s *Store) CreateService(ctx context.Context, svc Service) (Service, error) {
	svc.ID = uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO services (id, provider_id, category_id, title, description, price, photo_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')`,
		svc.ID, svc.ProviderID, svc.CategoryID, svc.Title, svc.Description, svc.Price, svc.PhotoURL,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Service{}, ErrCategoryNotFound
		}
		return Service{}, apperr.Internal("could not create service", err)
	}
	return s.GetService(ctx, svc.ID)
}

func (s *Store) GetService(ctx context.Context, id string) (Service, error) {
	svc, err := scanService(s.pool.QueryRow(ctx, selectService+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, ErrServiceNotFound
		}
		return Service{}, apperr.Internal("failed to load service", err)
	}
	return svc, nil
}

func (s *Store) UpdateService(ctx context.Context, svc Service) (Service, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE services
		SET category_id = $2, title = $3, description = $4, price = $5, photo_url = $6, updated_at = NOW()
		WHERE id = $1`,
		svc.ID, svc.CategoryID, svc.Title, svc.Description, svc.Price, svc.PhotoURL,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Service{}, ErrCategoryNotFound
		}
		return Service{}, apperr.Internal("could not update service", err)
	}
	if tag.RowsAffected() == 0 {
		return Service{}, ErrServiceNotFound
	}
	return s.GetService(ctx, svc.ID)
}

func (s *Store) ArchiveService(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE services SET status = 'archived', updated_at = NOW() WHERE id = $1 AND status <> 'archived'`, id)
	if err != nil {
		return apperr.Internal("could not archive service", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// ListServices runs a discovery query built from f.
func (s *Store) ListServices(ctx context.Context, f Filter) ([]Service, error) {
	f.normalize()

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeArchived {
		where = append(where, "s.status = 'active'")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, fmt.Sprintf("(s.title ILIKE %s OR s.description ILIKE %s)", p, p))
	}
	if f.CategoryID != "" {
		where = append(where, "s.category_id = "+arg(f.CategoryID))
	}
	if f.ProviderID != "" {
		where = append(where, "s.provider_id = "+arg(f.ProviderID))
	}
	if f.MinPrice != nil {
		where = append(where, "s.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "s.price <= "+arg(*f.MaxPrice))
	}

	query := selectService
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY "
	switch f.Sort {
	case "price_asc":
		query += "s.price ASC, s.created_at DESC"
	case "price_desc":
		query += "s.price DESC, s.created_at DESC"
	case "rating":
		query += "u.rating DESC, s.created_at DESC"
	default:
		query += "s.created_at DESC"
	}
	query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(f.Limit), arg(f.Offset))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("could not fetch services", err)
	}
	defer rows.Close()

	out := []Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, apperr.Internal("failed to parse service record", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("could not fetch services", err)
	}
	return out, nil
}
