package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles(account.RoleProvider))
func RequireRoles(roles ...account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(account.ContextRole).(string)
			if role == "" {
				return apperr.Forbidden("role missing")
			}

			for _, r := range roles {
				if account.Role(role) == r {
					return next(c)
				}
			}
			return apperr.Forbidden("access denied")
		}
	}
}
