package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// TokenParser verifies an access token.
type TokenParser interface {
	Parse(token string) (account.Principal, error)
}

// JWT authenticates requests with a Bearer token and stores the principal
// under the "user_id" and "role" context keys. Websocket upgrades may pass
// the token as ?token= since browsers cannot set headers on them.
func JWT(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				raw = strings.TrimSpace(c.QueryParam("token"))
			}
			if raw == "" {
				return apperr.Unauthorized("missing authorization")
			}

			p, err := tokens.Parse(raw)
			if err != nil {
				return apperr.Unauthorized("invalid or expired token")
			}
			account.SetPrincipal(c, p)
			return next(c)
		}
	}
}

// AccountStatus reports whether an account has been blocked.
type AccountStatus interface {
	Blocked(ctx context.Context, id string) (bool, error)
}

// ActiveAccount rejects tokens whose account was blocked or removed after the
// token was issued. It runs after JWT.
func ActiveAccount(status AccountStatus) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := account.PrincipalFrom(c)
			if err != nil {
				return err
			}
			blocked, err := status.Blocked(c.Request().Context(), p.ID)
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					return apperr.Unauthorized("account no longer exists")
				}
				return err
			}
			if blocked {
				return apperr.Forbidden("account blocked")
			}
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
