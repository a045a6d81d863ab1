package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Me returns the authenticated account.
func (h *Handler) Me(c echo.Context) error {
	p, err := PrincipalFrom(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Me(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// UpdateProfile handles PATCH /me/profile.
func (h *Handler) UpdateProfile(c echo.Context) error {
	p, err := PrincipalFrom(c)
	if err != nil {
		return err
	}
	var req ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	a, err := h.svc.UpdateProfile(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// PublicProfile handles GET /users/:id/profile.
func (h *Handler) PublicProfile(c echo.Context) error {
	profile, err := h.svc.Public(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
