package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.catalog.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}

// CreateCategory handles POST /admin/categories.
func (h *Handler) CreateCategory(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	cat, err := h.catalog.CreateCategory(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

// DeleteCategory handles DELETE /admin/categories/:id.
func (h *Handler) DeleteCategory(c echo.Context) error {
	if err := h.catalog.DeleteCategory(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "category deleted"})
}

// CreateService handles POST /services.
func (h *Handler) CreateService(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	req := new(ServiceInput)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	svc, err := h.catalog.CreateService(c.Request().Context(), p, *req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, svc)
}

// UpdateService handles PUT /services/:id.
func (h *Handler) UpdateService(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	req := new(ServiceInput)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	svc, err := h.catalog.UpdateService(c.Request().Context(), p, c.Param("id"), *req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

// DeleteService handles DELETE /services/:id by archiving the listing.
func (h *Handler) DeleteService(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	if err := h.catalog.ArchiveService(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "service deleted"})
}

// GetService handles GET /services/:id.
func (h *Handler) GetService(c echo.Context) error {
	svc, err := h.catalog.Service(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

// ListServices handles public discovery at GET /services.
func (h *Handler) ListServices(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	services, err := h.catalog.Services(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"services": services, "limit": f.Limit, "offset": f.Offset})
}

// MyServices handles GET /services/me.
func (h *Handler) MyServices(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	services, err := h.catalog.ProviderServices(c.Request().Context(), p, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"services": services})
}

func filterFromQuery(c echo.Context) (Filter, error) {
	f := Filter{
		Query:      c.QueryParam("q"),
		CategoryID: c.QueryParam("category"),
		ProviderID: c.QueryParam("provider"),
		Sort:       c.QueryParam("sort"),
	}
	var err error
	if f.MinPrice, err = floatParam(c, "min_price"); err != nil {
		return Filter{}, err
	}
	if f.MaxPrice, err = floatParam(c, "max_price"); err != nil {
		return Filter{}, err
	}
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= maxLimit {
			f.Limit = v
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			f.Offset = v
		}
	}
	f.normalize()
	return f, nil
}

func floatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperr.BadRequest("invalid " + name)
	}
	return &v, nil
}
