package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// AdminGuard ensures only admin users can access admin routes
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get(account.ContextRole).(string)
		if !ok || account.Role(role) != account.RoleAdmin {
			return apperr.Forbidden("admin access only")
		}
		return next(c)
	}
}
