package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("booking: %w", Conflict("reservation is not pending"))

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("missing"), KindNotFound},
		{"forbidden", Forbidden("nope"), KindForbidden},
		{"wrapped conflict", wrapped, KindConflict},
		{"bad request", BadRequest("rating required"), KindBadRequest},
		{"plain error", errors.New("boom"), KindInternal},
		{"internal", Internal("failed", errors.New("db down")), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to load", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected internal error to unwrap to its cause")
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", NotFound("reservation not found"), http.StatusNotFound, "reservation not found"},
		{"conflict", Conflict("already completed"), http.StatusConflict, "already completed"},
		{"forbidden", Forbidden("not your booking"), http.StatusForbidden, "not your booking"},
		{"internal hides cause", Internal("failed to save", errors.New("pq: secret detail")), http.StatusInternalServerError, "internal server error"},
		{"echo http error", echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), http.StatusTooManyRequests, "rate limit exceeded"},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			HTTPErrorHandler(tc.err, c)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tc.wantBody {
				t.Fatalf("error = %q, want %q", body["error"], tc.wantBody)
			}
		})
	}
}
