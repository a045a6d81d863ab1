package account

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// Context keys set by the JWT middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// PrincipalFrom reads the authenticated caller from the echo context.
func PrincipalFrom(c echo.Context) (Principal, error) {
	userID, ok := c.Get(ContextUserID).(string)
	if !ok || userID == "" {
		return Principal{}, apperr.Unauthorized("unauthorized")
	}
	role, _ := c.Get(ContextRole).(string)
	return Principal{ID: userID, Role: Role(role)}, nil
}

// SetPrincipal stores p on the echo context.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(ContextUserID, p.ID)
	c.Set(ContextRole, string(p.Role))
}
