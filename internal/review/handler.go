package review

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Handler struct {
	agg *Aggregator
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg}
}

// Submit handles POST /reviews. A new review answers 201, an edit 200.
func (h *Handler) Submit(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	req := new(SubmitInput)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	rv, created, err := h.agg.Submit(c.Request().Context(), p, *req)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, rv)
}

// List handles GET /reviews?providerId=.
func (h *Handler) List(c echo.Context) error {
	reviews, err := h.agg.ListForProvider(c.Request().Context(), c.QueryParam("providerId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reviews)
}
