package admin

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// Users lists every customer and provider, newest first.
func (c *Console) Users(ctx context.Context) ([]account.Account, error) {
	return c.accounts.List(ctx)
}

// Providers lists providers with their stats.
func (c *Console) Providers(ctx context.Context) ([]account.Account, error) {
	return c.accounts.List(ctx, account.RoleProvider)
}

// SetBlocked blocks or unblocks a non-admin account.
func (c *Console) SetBlocked(ctx context.Context, id string, blocked bool) (account.Account, error) {
	if err := apperr.CheckID(id, "user"); err != nil {
		return nil, err
	}
	target, err := c.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Info().Role == account.RoleAdmin {
		return nil, apperr.Forbidden("admins cannot be blocked")
	}
	a, err := c.accounts.SetBlocked(ctx, id, blocked)
	if err != nil {
		return nil, err
	}
	log.Printf("[admin] user %s blocked=%v", id, blocked)
	return a, nil
}

// GET /admin/users
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.console.Users(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GET /admin/providers
func (h *Handler) ListProviders(c echo.Context) error {
	providers, err := h.console.Providers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, providers)
}

// POST /admin/users/:id/block
func (h *Handler) BlockUser(c echo.Context) error {
	return h.setBlocked(c, true)
}

// POST /admin/users/:id/unblock
func (h *Handler) UnblockUser(c echo.Context) error {
	return h.setBlocked(c, false)
}

func (h *Handler) setBlocked(c echo.Context, blocked bool) error {
	a, err := h.console.SetBlocked(c.Request().Context(), c.Param("id"), blocked)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}
