package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/admin"
	"github.com/sudo-init-do/servicehub/internal/alerts"
	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/auth"
	"github.com/sudo-init-do/servicehub/internal/booking"
	"github.com/sudo-init-do/servicehub/internal/catalog"
	"github.com/sudo-init-do/servicehub/internal/chat"
	mware "github.com/sudo-init-do/servicehub/internal/middleware"
	"github.com/sudo-init-do/servicehub/internal/review"
	"github.com/sudo-init-do/servicehub/internal/storage"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Auth          *auth.Handler
	Accounts      *account.Handler
	Catalog       *catalog.Handler
	Bookings      *booking.Handler
	Reviews       *review.Handler
	Chat          *chat.Handler
	Notifications *alerts.InboxHandler
	Uploads       *storage.Handler
	Admin         *admin.Handler
}

// NewEcho returns an echo instance with the shared validator, error handler
// and middleware stack.
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = mware.NewValidator()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	return e
}

// Register mounts every route. Authenticated routes also check status so
// blocked accounts lose access before their tokens expire. ready backs
// GET /ready.
func Register(e *echo.Echo, h Handlers, tokens mware.TokenParser, status mware.AccountStatus, ready echo.HandlerFunc) {
	// Health and readiness
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", ready)

	// Public auth routes with per-IP rate limiting
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
	authGroup.POST("/reset-password", h.Auth.ResetPassword)

	// Public discovery
	e.GET("/categories", h.Catalog.ListCategories)
	e.GET("/services", h.Catalog.ListServices)
	e.GET("/users/:id/profile", h.Accounts.PublicProfile)
	e.GET("/reviews", h.Reviews.List)
	e.GET("/images/:key", h.Uploads.Serve)

	// Protected routes
	jwt := mware.JWT(tokens)
	active := mware.ActiveAccount(status)
	e.GET("/services/:id", h.Catalog.GetService)
	e.GET("/services/me", h.Catalog.MyServices, jwt, active, mware.RequireRoles(account.RoleProvider))

	api := e.Group("")
	api.Use(jwt, active)

	api.GET("/me", h.Accounts.Me)
	api.PATCH("/me/profile", h.Accounts.UpdateProfile)
	api.PUT("/me/password", h.Auth.ChangePassword)
	api.POST("/uploads", h.Uploads.Upload, middleware.BodyLimit("6M"))

	api.POST("/services", h.Catalog.CreateService)
	api.PUT("/services/:id", h.Catalog.UpdateService)
	api.DELETE("/services/:id", h.Catalog.DeleteService)

	api.POST("/bookings", h.Bookings.Create)
	api.GET("/bookings", h.Bookings.List)
	api.GET("/bookings/customers", h.Bookings.Customers, mware.RequireRoles(account.RoleProvider))
	api.GET("/bookings/:id", h.Bookings.Get)
	api.DELETE("/bookings/:id", h.Bookings.Cancel)
	api.PUT("/bookings/:id/accept", h.Bookings.Accept)
	api.PUT("/bookings/:id/reject", h.Bookings.Reject)
	api.PATCH("/bookings/:id/complete", h.Bookings.Complete)
	api.PATCH("/bookings/:id/date", h.Bookings.UpdateDate)

	api.POST("/reviews", h.Reviews.Submit)

	api.GET("/chat/:userId/:otherUserId", h.Chat.History)
	api.GET("/ws", h.Chat.ServeWS)

	api.GET("/notifications", h.Notifications.List)
	api.POST("/notifications/:id/read", h.Notifications.MarkRead)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(jwt, active)
	adminGroup.Use(mware.AdminGuard)
	adminGroup.GET("/users", h.Admin.ListUsers)
	adminGroup.GET("/providers", h.Admin.ListProviders)
	adminGroup.GET("/services", h.Admin.ListServices)
	adminGroup.GET("/bookings", h.Admin.ListBookings)
	adminGroup.GET("/stats", h.Admin.Stats)
	adminGroup.POST("/users/:id/block", h.Admin.BlockUser)
	adminGroup.POST("/users/:id/unblock", h.Admin.UnblockUser)
	adminGroup.POST("/categories", h.Catalog.CreateCategory)
	adminGroup.DELETE("/categories/:id", h.Catalog.DeleteCategory)
}
