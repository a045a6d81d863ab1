package catalog

import (
	"context"
	"strings"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Repository interface {
	CreateCategory(ctx context.Context, name string) (Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]Category, error)
	CategoryExists(ctx context.Context, id string) (bool, error)

	CreateService(ctx context.Context, svc Service) (Service, error)
	GetService(ctx context.Context, id string) (Service, error)
	UpdateService(ctx context.Context, svc Service) (Service, error)
	ArchiveService(ctx context.Context, id string) error
	ListServices(ctx context.Context, f Filter) ([]Service, error)
}

type Catalog struct {
	repo Repository
}

func New(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

func (c *Catalog) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, apperr.BadRequest("category name is required")
	}
	if len(name) > 100 {
		return Category{}, apperr.BadRequest("category name too long (max 100 chars)")
	}
	return c.repo.CreateCategory(ctx, name)
}

func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	if err := apperr.CheckID(id, "category"); err != nil {
		return err
	}
	return c.repo.DeleteCategory(ctx, id)
}

func (c *Catalog) Categories(ctx context.Context) ([]Category, error) {
	return c.repo.ListCategories(ctx)
}

// CreateService lists a new service owned by the calling provider.
func (c *Catalog) CreateService(ctx context.Context, p account.Principal, in ServiceInput) (Service, error) {
	if p.Role != account.RoleProvider {
		return Service{}, apperr.Forbidden("only providers can create services")
	}
	svc, err := c.validate(ctx, in)
	if err != nil {
		return Service{}, err
	}
	svc.ProviderID = p.ID
	return c.repo.CreateService(ctx, svc)
}

// UpdateService edits a service; only its owner may do so.
func (c *Catalog) UpdateService(ctx context.Context, p account.Principal, id string, in ServiceInput) (Service, error) {
	existing, err := c.owned(ctx, p, id)
	if err != nil {
		return Service{}, err
	}
	if existing.Status == StatusArchived {
		return Service{}, apperr.Conflict("service is archived")
	}
	svc, err := c.validate(ctx, in)
	if err != nil {
		return Service{}, err
	}
	svc.ID = existing.ID
	svc.ProviderID = existing.ProviderID
	return c.repo.UpdateService(ctx, svc)
}

// ArchiveService hides a service from discovery and booking. Existing
// reservations and reviews keep pointing at it.
func (c *Catalog) ArchiveService(ctx context.Context, p account.Principal, id string) error {
	existing, err := c.owned(ctx, p, id)
	if err != nil {
		return err
	}
	if existing.Status == StatusArchived {
		return nil
	}
	return c.repo.ArchiveService(ctx, id)
}

func (c *Catalog) Service(ctx context.Context, id string) (Service, error) {
	if err := apperr.CheckID(id, "service"); err != nil {
		return Service{}, err
	}
	svc, err := c.repo.GetService(ctx, id)
	if err != nil {
		return Service{}, err
	}
	if svc.Status == StatusArchived {
		return Service{}, ErrServiceNotFound
	}
	return svc, nil
}

func (c *Catalog) Services(ctx context.Context, f Filter) ([]Service, error) {
	if f.CategoryID != "" {
		if err := apperr.CheckID(f.CategoryID, "category"); err != nil {
			return nil, err
		}
	}
	if f.ProviderID != "" {
		if err := apperr.CheckID(f.ProviderID, "provider"); err != nil {
			return nil, err
		}
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, apperr.BadRequest("min_price cannot exceed max_price")
	}
	f.IncludeArchived = false
	return c.repo.ListServices(ctx, f)
}

// ProviderServices lists the caller's own services, archived ones included.
func (c *Catalog) ProviderServices(ctx context.Context, p account.Principal, f Filter) ([]Service, error) {
	f.ProviderID = p.ID
	f.IncludeArchived = true
	return c.repo.ListServices(ctx, f)
}

func (c *Catalog) owned(ctx context.Context, p account.Principal, id string) (Service, error) {
	if err := apperr.CheckID(id, "service"); err != nil {
		return Service{}, err
	}
	svc, err := c.repo.GetService(ctx, id)
	if err != nil {
		return Service{}, err
	}
	if svc.ProviderID != p.ID {
		return Service{}, apperr.Forbidden("you do not own this service")
	}
	return svc, nil
}

// maxPrice is the largest value a NUMERIC(12,2) price column holds.
const maxPrice = 9999999999.99

func (c *Catalog) validate(ctx context.Context, in ServiceInput) (Service, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Service{}, apperr.BadRequest("title is required")
	}
	if in.Price < 0 {
		return Service{}, apperr.BadRequest("price cannot be negative")
	}
	if in.Price > maxPrice {
		return Service{}, apperr.BadRequest("price too large (max 9999999999.99)")
	}
	if err := apperr.CheckID(in.CategoryID, "category"); err != nil {
		return Service{}, err
	}
	exists, err := c.repo.CategoryExists(ctx, in.CategoryID)
	if err != nil {
		return Service{}, err
	}
	if !exists {
		return Service{}, ErrCategoryNotFound
	}
	return Service{
		CategoryID:  in.CategoryID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		PhotoURL:    strings.TrimSpace(in.PhotoURL),
		Status:      StatusActive,
	}, nil
}
