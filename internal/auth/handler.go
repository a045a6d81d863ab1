package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// ===== Register =====
func (h *Handler) Register(c echo.Context) error {
	var req RegisterInput
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	session, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	session, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// ===== Password reset =====
func (h *Handler) ForgotPassword(c echo.Context) error {
	req := new(ForgotPasswordRequest)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the email is registered, a reset link has been sent"})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	req := new(ResetPasswordRequest)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *Handler) ChangePassword(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	req := new(ChangePasswordRequest)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if err := h.svc.ChangePassword(c.Request().Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
