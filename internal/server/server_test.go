package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/admin"
	"github.com/sudo-init-do/servicehub/internal/alerts"
	"github.com/sudo-init-do/servicehub/internal/auth"
	"github.com/sudo-init-do/servicehub/internal/booking"
	"github.com/sudo-init-do/servicehub/internal/catalog"
	"github.com/sudo-init-do/servicehub/internal/chat"
	"github.com/sudo-init-do/servicehub/internal/review"
	"github.com/sudo-init-do/servicehub/internal/storage"
)

type staticTokens map[string]account.Principal

func (s staticTokens) Parse(token string) (account.Principal, error) {
	p, ok := s[token]
	if !ok {
		return account.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

type staticStatus map[string]bool

func (s staticStatus) Blocked(_ context.Context, id string) (bool, error) {
	return s[id], nil
}

// newTestEcho mounts the real route table over handlers whose backends are
// never reached: every request here is settled by middleware.
func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	hub := chat.NewHub()
	h := Handlers{
		Auth:          auth.NewHandler(auth.NewService(nil, auth.NewTokens("secret", 0, 0), nil, "")),
		Accounts:      account.NewHandler(account.NewService(nil)),
		Catalog:       catalog.NewHandler(catalog.New(nil)),
		Bookings:      booking.NewHandler(booking.New(nil, nil)),
		Reviews:       review.NewHandler(review.New(nil, nil)),
		Chat:          chat.NewHandler(chat.NewRelay(nil, nil, hub), hub),
		Notifications: alerts.NewInboxHandler(nil),
		Uploads:       storage.NewHandler(nil),
		Admin:         admin.NewHandler(admin.New(nil, nil)),
	}
	tokens := staticTokens{
		"customer": {ID: "5b2c1d0e-3f4a-4b5c-8d6e-7f8091a2b3c4", Role: account.RoleCustomer},
		"admin":    {ID: "0d9c8b7a-6f5e-4d3c-8b2a-1f0e9d8c7b6a", Role: account.RoleAdmin},
		"blocked":  {ID: "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b", Role: account.RoleCustomer},
	}
	status := staticStatus{"9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b": true}
	e := NewEcho()
	Register(e, h, tokens, status, func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	return e
}

func TestRouteGuards(t *testing.T) {
	e := newTestEcho(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"me without token", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"me with bad token", http.MethodGet, "/me", "forged", http.StatusUnauthorized},
		{"bookings without token", http.MethodPost, "/bookings", "", http.StatusUnauthorized},
		{"ws without token", http.MethodGet, "/ws", "", http.StatusUnauthorized},
		{"my services as customer", http.MethodGet, "/services/me", "customer", http.StatusForbidden},
		{"booking customers as customer", http.MethodGet, "/bookings/customers", "customer", http.StatusForbidden},
		{"admin stats as customer", http.MethodGet, "/admin/stats", "customer", http.StatusForbidden},
		{"admin without token", http.MethodGet, "/admin/users", "", http.StatusUnauthorized},
		{"admin category as customer", http.MethodPost, "/admin/categories", "customer", http.StatusForbidden},
		{"bookings as blocked account", http.MethodPost, "/bookings", "blocked", http.StatusForbidden},
		{"reviews as blocked account", http.MethodPost, "/reviews", "blocked", http.StatusForbidden},
		{"ws as blocked account", http.MethodGet, "/ws", "blocked", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("got %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	e := newTestEcho(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("missing request id")
	}
}
