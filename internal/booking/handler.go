package booking

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// =========================
// Create - customer books a service
// =========================
func (h *Handler) Create(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	req := new(CreateInput)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	r, err := h.engine.Create(c.Request().Context(), p, *req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

// =========================
// Cancel - customer cancels a pending booking
// =========================
func (h *Handler) Cancel(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	if err := h.engine.Cancel(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation cancelled"})
}

// =========================
// Accept / Reject - provider decision
// =========================
func (h *Handler) Accept(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	r, err := h.engine.Accept(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Reject(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	r, err := h.engine.Reject(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// =========================
// Complete - customer marks an accepted booking done
// =========================
func (h *Handler) Complete(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	var req struct {
		CustomerID string `json:"customerId" validate:"omitempty,uuid"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.engine.Complete(c.Request().Context(), p, c.Param("id"), req.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// =========================
// UpdateDate - provider reschedules
// =========================
func (h *Handler) UpdateDate(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	var req struct {
		Date time.Time `json:"date"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid date")
	}
	r, err := h.engine.UpdateDate(c.Request().Context(), p, c.Param("id"), req.Date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// Get handles GET /bookings/:id.
func (h *Handler) Get(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	r, err := h.engine.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// =========================
// List - GET /bookings?providerId= | ?customerId=
// =========================
func (h *Handler) List(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	providerID := c.QueryParam("providerId")
	customerID := c.QueryParam("customerId")
	if providerID == "" && customerID == "" {
		switch p.Role {
		case account.RoleProvider:
			providerID = p.ID
		case account.RoleCustomer:
			customerID = p.ID
		default:
			return apperr.BadRequest("providerId or customerId is required")
		}
	}

	var views []View
	if providerID != "" {
		views, err = h.engine.ListForProvider(ctx, p, providerID)
	} else {
		views, err = h.engine.ListForCustomer(ctx, p, customerID)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// Customers handles GET /bookings/customers.
func (h *Handler) Customers(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	groups, err := h.engine.CustomersForProvider(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groups)
}
