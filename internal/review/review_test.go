package review

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/booking"
	"github.com/sudo-init-do/servicehub/internal/middleware"
)

type memReviews struct {
	mu           sync.Mutex
	clock        time.Time
	rows         []Review
	ratings      map[string]float64
	recomputeErr error
}

func newMemReviews() *memReviews {
	return &memReviews{
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ratings: map[string]float64{},
	}
}

func (m *memReviews) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

// Submit stages the write on a copy and commits it only when the rating
// recompute succeeds.
func (m *memReviews) Submit(_ context.Context, rv Review) (Review, bool, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	rows := append([]Review(nil), m.rows...)
	created := true
	for i, existing := range rows {
		if existing.CustomerID == rv.CustomerID && existing.ReservationID == rv.ReservationID {
			existing.Rating = rv.Rating
			existing.Comment = rv.Comment
			existing.UpdatedAt = now
			rows[i] = existing
			rv, created = existing, false
			break
		}
	}
	if created {
		rv.ID = uuid.NewString()
		rv.CreatedAt = now
		rv.UpdatedAt = now
		rows = append(rows, rv)
	}

	if m.recomputeErr != nil {
		return Review{}, false, 0, apperr.Internal("failed to save review", m.recomputeErr)
	}
	rating := LatestPerServiceMean(forProvider(rows, rv.ProviderID))
	m.rows = rows
	m.ratings[rv.ProviderID] = rating
	return rv, created, rating, nil
}

func forProvider(rows []Review, providerID string) []Review {
	var out []Review
	for _, rv := range rows {
		if rv.ProviderID == providerID {
			out = append(out, rv)
		}
	}
	return out
}

func (m *memReviews) Recompute(_ context.Context, providerID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings[providerID] = LatestPerServiceMean(forProvider(m.rows, providerID))
	return m.ratings[providerID], nil
}

func (m *memReviews) ListForProvider(_ context.Context, providerID string) ([]Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Review{}
	for _, rv := range m.rows {
		if rv.ProviderID == providerID {
			out = append(out, rv)
		}
	}
	return out, nil
}

type memReservations map[string]booking.Reservation

func (m memReservations) Get(_ context.Context, id string) (booking.Reservation, error) {
	r, ok := m[id]
	if !ok {
		return booking.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

func (m memReservations) add(customerID, providerID, serviceID string, status booking.Status) booking.Reservation {
	r := booking.Reservation{
		ID:         uuid.NewString(),
		ServiceID:  serviceID,
		CustomerID: customerID,
		ProviderID: providerID,
		Status:     status,
	}
	m[r.ID] = r
	return r
}

var (
	customer   = account.Principal{ID: "5b2c1d0e-3f4a-4b5c-8d6e-7f8091a2b3c4", Role: account.RoleCustomer}
	other      = account.Principal{ID: "1c9e8d7f-6a5b-4c3d-9e2f-1a0b9c8d7e6f", Role: account.RoleCustomer}
	providerID = "7a0d4c1e-52b8-4f0e-8f0d-3c0a9b7e6d21"
	serviceA   = "a1a1a1a1-0000-4000-8000-000000000001"
	serviceB   = "b2b2b2b2-0000-4000-8000-000000000002"
)

func TestLatestPerServiceMean(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	cases := []struct {
		name    string
		reviews []Review
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []Review{{ID: "1", ServiceID: "s1", Rating: 4, CreatedAt: at(0)}}, 4},
		{
			"latest per service wins",
			[]Review{
				{ID: "1", ServiceID: "s1", Rating: 1, CreatedAt: at(0)},
				{ID: "2", ServiceID: "s1", Rating: 5, CreatedAt: at(5)},
				{ID: "3", ServiceID: "s2", Rating: 2, CreatedAt: at(1)},
			},
			3.5,
		},
		{
			"created tie broken by update time",
			[]Review{
				{ID: "1", ServiceID: "s1", Rating: 2, CreatedAt: at(0), UpdatedAt: at(9)},
				{ID: "2", ServiceID: "s1", Rating: 4, CreatedAt: at(0), UpdatedAt: at(3)},
			},
			2,
		},
		{
			"full tie broken by id",
			[]Review{
				{ID: "b", ServiceID: "s1", Rating: 5, CreatedAt: at(0), UpdatedAt: at(0)},
				{ID: "a", ServiceID: "s1", Rating: 1, CreatedAt: at(0), UpdatedAt: at(0)},
			},
			5,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LatestPerServiceMean(tc.reviews); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResubmissionUpdatesInPlaceAndRecomputes(t *testing.T) {
	reviews := newMemReviews()
	reservations := memReservations{}
	agg := New(reviews, reservations)
	ctx := context.Background()
	r := reservations.add(customer.ID, providerID, serviceA, booking.StatusCompleted)

	first, created, err := agg.Submit(ctx, customer, SubmitInput{ReservationID: r.ID, Rating: 5, Comment: "great"})
	if err != nil || !created {
		t.Fatalf("first submit: created=%v err=%v", created, err)
	}
	if reviews.ratings[providerID] != 5 {
		t.Fatalf("rating = %v, want 5", reviews.ratings[providerID])
	}

	second, created, err := agg.Submit(ctx, customer, SubmitInput{ReservationID: r.ID, Rating: 3, CustomerID: customer.ID})
	if err != nil || created {
		t.Fatalf("resubmit: created=%v err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmit created a new review %s != %s", second.ID, first.ID)
	}
	if len(reviews.rows) != 1 {
		t.Fatalf("got %d reviews, want 1", len(reviews.rows))
	}
	if reviews.ratings[providerID] != 3 {
		t.Fatalf("rating = %v, want 3", reviews.ratings[providerID])
	}
}

func TestFailedRecomputeLeavesNoReview(t *testing.T) {
	reviews := newMemReviews()
	reservations := memReservations{}
	agg := New(reviews, reservations)
	ctx := context.Background()
	r := reservations.add(customer.ID, providerID, serviceA, booking.StatusCompleted)

	reviews.recomputeErr = errors.New("conn reset")
	if _, _, err := agg.Submit(ctx, customer, SubmitInput{ReservationID: r.ID, Rating: 4}); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(reviews.rows) != 0 {
		t.Fatalf("failed submit left %d reviews", len(reviews.rows))
	}
	if _, ok := reviews.ratings[providerID]; ok {
		t.Fatal("failed submit changed the rating")
	}

	reviews.recomputeErr = nil
	_, created, err := agg.Submit(ctx, customer, SubmitInput{ReservationID: r.ID, Rating: 4})
	if err != nil || !created {
		t.Fatalf("retry: created=%v err=%v", created, err)
	}
	if reviews.ratings[providerID] != 4 {
		t.Fatalf("rating = %v, want 4", reviews.ratings[providerID])
	}
}

func TestRatingAcrossServices(t *testing.T) {
	reviews := newMemReviews()
	reservations := memReservations{}
	agg := New(reviews, reservations)
	ctx := context.Background()

	submit := func(p account.Principal, service string, rating int) {
		t.Helper()
		r := reservations.add(p.ID, providerID, service, booking.StatusCompleted)
		if _, _, err := agg.Submit(ctx, p, SubmitInput{ReservationID: r.ID, Rating: rating}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	submit(customer, serviceA, 4)
	submit(customer, serviceB, 2)
	if got := reviews.ratings[providerID]; got != 3 {
		t.Fatalf("rating = %v, want 3", got)
	}
	submit(other, serviceA, 5)
	if got := reviews.ratings[providerID]; got != 3.5 {
		t.Fatalf("rating = %v, want 3.5", got)
	}
}

func TestSubmitRejections(t *testing.T) {
	reviews := newMemReviews()
	reservations := memReservations{}
	agg := New(reviews, reservations)
	ctx := context.Background()

	pending := reservations.add(customer.ID, providerID, serviceA, booking.StatusPending)
	accepted := reservations.add(customer.ID, providerID, serviceA, booking.StatusAccepted)
	done := reservations.add(customer.ID, providerID, serviceA, booking.StatusCompleted)

	cases := []struct {
		name string
		p    account.Principal
		in   SubmitInput
		want apperr.Kind
	}{
		{"missing reservation id", customer, SubmitInput{Rating: 4}, apperr.KindBadRequest},
		{"rating too low", customer, SubmitInput{ReservationID: done.ID, Rating: 0}, apperr.KindBadRequest},
		{"rating too high", customer, SubmitInput{ReservationID: done.ID, Rating: 6}, apperr.KindBadRequest},
		{"comment too long", customer, SubmitInput{ReservationID: done.ID, Rating: 4, Comment: strings.Repeat("x", 1001)}, apperr.KindBadRequest},
		{"body customer mismatch", customer, SubmitInput{ReservationID: done.ID, Rating: 4, CustomerID: other.ID}, apperr.KindForbidden},
		{"unknown reservation", customer, SubmitInput{ReservationID: uuid.NewString(), Rating: 4}, apperr.KindNotFound},
		{"not the reservation's customer", other, SubmitInput{ReservationID: done.ID, Rating: 4}, apperr.KindForbidden},
		{"pending reservation", customer, SubmitInput{ReservationID: pending.ID, Rating: 4}, apperr.KindConflict},
		{"accepted reservation", customer, SubmitInput{ReservationID: accepted.ID, Rating: 4}, apperr.KindConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := agg.Submit(ctx, tc.p, tc.in); !apperr.Is(err, tc.want) {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}
	if len(reviews.rows) != 0 {
		t.Fatalf("rejected submissions wrote %d reviews", len(reviews.rows))
	}
	if _, ok := reviews.ratings[providerID]; ok {
		t.Fatal("rejected submissions recomputed the rating")
	}
}

func TestSubmitHandlerStatusCodes(t *testing.T) {
	reviews := newMemReviews()
	reservations := memReservations{}
	agg := New(reviews, reservations)
	r := reservations.add(customer.ID, providerID, serviceA, booking.StatusCompleted)
	h := NewHandler(agg)

	e := echo.New()
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.POST("/reviews", h.Submit, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account.SetPrincipal(c, customer)
			return next(c)
		}
	})
	e.GET("/reviews", h.List)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(`{"reservationId": "` + r.ID + `", "rating": 9}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if code := post(`{"reservationId": "` + r.ID + `", "rating": 5}`); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if code := post(`{"reservationId": "` + r.ID + `", "rating": 3}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/reviews?providerId="+providerID, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"rating":3`) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/reviews", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without providerId, got %d", rec.Code)
	}
}
