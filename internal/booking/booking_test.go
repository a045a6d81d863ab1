package booking

import (
	"context"
	"encoding/json"
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
	"github.com/sudo-init-do/servicehub/internal/middleware"
)

type stats struct {
	jobs     int
	earnings float64
}

type memRepo struct {
	mu           sync.Mutex
	services     map[string]ServiceRef
	archived     map[string]bool
	reservations map[string]Reservation
	stats        map[string]stats
}

func newMemRepo() *memRepo {
	return &memRepo{
		services:     map[string]ServiceRef{},
		archived:     map[string]bool{},
		reservations: map[string]Reservation{},
		stats:        map[string]stats{},
	}
}

func (m *memRepo) addService(providerID string, price float64) ServiceRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := ServiceRef{ID: uuid.NewString(), ProviderID: providerID, Title: "Fix leaks", Price: price}
	m.services[ref.ID] = ref
	return ref
}

func (m *memRepo) BookableService(_ context.Context, id string) (ServiceRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.services[id]
	if !ok || m.archived[id] {
		return ServiceRef{}, ErrServiceNotFound
	}
	return ref, nil
}

func (m *memRepo) Create(_ context.Context, r Reservation) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.Status = StatusPending
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.reservations[r.ID] = r
	return r, nil
}

func (m *memRepo) Get(_ context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (m *memRepo) DeletePending(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != StatusPending {
		return ErrStatusChanged
	}
	delete(m.reservations, id)
	return nil
}

func (m *memRepo) SetStatus(_ context.Context, id string, from, to Status) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != from {
		return Reservation{}, ErrStatusChanged
	}
	r.Status = to
	m.reservations[id] = r
	return r, nil
}

func (m *memRepo) Complete(_ context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != StatusAccepted {
		return Reservation{}, ErrStatusChanged
	}
	r.Status = StatusCompleted
	m.reservations[id] = r
	s := m.stats[r.ProviderID]
	s.jobs++
	s.earnings += r.Price
	m.stats[r.ProviderID] = s
	return r, nil
}

func (m *memRepo) UpdateDate(_ context.Context, id string, date time.Time) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status.Terminal() {
		return Reservation{}, ErrStatusChanged
	}
	r.Date = date
	m.reservations[id] = r
	return r, nil
}

func (m *memRepo) ListForProvider(_ context.Context, providerID string) ([]View, error) {
	return m.list(func(r Reservation) (bool, string) { return r.ProviderID == providerID, r.CustomerID })
}

func (m *memRepo) ListForCustomer(_ context.Context, customerID string) ([]View, error) {
	return m.list(func(r Reservation) (bool, string) { return r.CustomerID == customerID, r.ProviderID })
}

func (m *memRepo) list(match func(Reservation) (bool, string)) ([]View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []View{}
	for _, r := range m.reservations {
		if ok, other := match(r); ok {
			out = append(out, View{Reservation: r, Counterpart: Party{ID: other}})
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) BookingCreated(_ context.Context, r Reservation) {
	n.record("created")
}
func (n *recordingNotifier) BookingDecided(_ context.Context, r Reservation) {
	n.record(string(r.Status))
}
func (n *recordingNotifier) BookingCompleted(_ context.Context, r Reservation) {
	n.record("completed")
}

var (
	customer = account.Principal{ID: "5b2c1d0e-3f4a-4b5c-8d6e-7f8091a2b3c4", Role: account.RoleCustomer}
	other    = account.Principal{ID: "1c9e8d7f-6a5b-4c3d-9e2f-1a0b9c8d7e6f", Role: account.RoleCustomer}
	provider = account.Principal{ID: "7a0d4c1e-52b8-4f0e-8f0d-3c0a9b7e6d21", Role: account.RoleProvider}
	rival    = account.Principal{ID: "0e6f3b8a-9c1d-4e2f-a7b6-5d4c3b2a1f00", Role: account.RoleProvider}
	admin    = account.Principal{ID: "3d2c1b0a-9f8e-4d7c-b6a5-4f3e2d1c0b9a", Role: account.RoleAdmin}
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *memRepo, *recordingNotifier) {
	t.Helper()
	repo := newMemRepo()
	n := &recordingNotifier{}
	e := New(repo, n)
	e.now = func() time.Time { return fixedNow }
	return e, repo, n
}

func book(t *testing.T, e *Engine, svc ServiceRef) Reservation {
	t.Helper()
	r, err := e.Create(context.Background(), customer, CreateInput{ServiceID: svc.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusCompleted, true},
		{StatusAccepted, StatusRejected, false},
		{StatusRejected, StatusAccepted, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestLifecycleUpdatesProviderStatsOnce(t *testing.T) {
	e, repo, n := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 100)

	r := book(t, e, svc)
	if r.Status != StatusPending || r.ProviderID != provider.ID || r.Price != 100 {
		t.Fatalf("unexpected reservation %+v", r)
	}
	if !r.Date.Equal(fixedNow.Add(DefaultLeadTime)) {
		t.Fatalf("default date = %v", r.Date)
	}

	r, err := e.Accept(ctx, provider, r.ID)
	if err != nil || r.Status != StatusAccepted {
		t.Fatalf("Accept: %+v %v", r, err)
	}

	r, err = e.Complete(ctx, customer, r.ID, customer.ID)
	if err != nil || r.Status != StatusCompleted {
		t.Fatalf("Complete: %+v %v", r, err)
	}

	if _, err := e.Complete(ctx, customer, r.ID, ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second complete: expected conflict, got %v", err)
	}

	got := repo.stats[provider.ID]
	if got.jobs != 1 || got.earnings != 100 {
		t.Fatalf("stats = %+v, want 1 job and 100 earned", got)
	}
	if strings.Join(n.events, ",") != "created,accepted,completed" {
		t.Fatalf("notifications = %v", n.events)
	}
}

func TestCreateRules(t *testing.T) {
	e, repo, _ := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 40)
	archived := repo.addService(provider.ID, 40)
	repo.archived[archived.ID] = true
	past := fixedNow.Add(-time.Hour)

	cases := []struct {
		name string
		p    account.Principal
		in   CreateInput
		want apperr.Kind
	}{
		{"provider cannot book", rival, CreateInput{ServiceID: svc.ID}, apperr.KindForbidden},
		{"customer id mismatch", customer, CreateInput{ServiceID: svc.ID, CustomerID: other.ID}, apperr.KindForbidden},
		{"missing service id", customer, CreateInput{}, apperr.KindBadRequest},
		{"unknown service", customer, CreateInput{ServiceID: uuid.NewString()}, apperr.KindNotFound},
		{"archived service", customer, CreateInput{ServiceID: archived.ID}, apperr.KindNotFound},
		{"date in the past", customer, CreateInput{ServiceID: svc.ID, Date: &past}, apperr.KindBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.Create(ctx, tc.p, tc.in); !apperr.Is(err, tc.want) {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}

	when := fixedNow.Add(48 * time.Hour)
	r, err := e.Create(ctx, customer, CreateInput{ServiceID: svc.ID, CustomerID: customer.ID, Date: &when})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !r.Date.Equal(when) {
		t.Fatalf("date = %v, want %v", r.Date, when)
	}
}

func TestCancel(t *testing.T) {
	e, repo, _ := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 10)

	r := book(t, e, svc)
	if err := e.Cancel(ctx, other, r.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("cancel by stranger: expected forbidden, got %v", err)
	}
	if err := e.Cancel(ctx, customer, r.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := e.Cancel(ctx, customer, r.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second cancel: expected not found, got %v", err)
	}

	accepted := book(t, e, svc)
	if _, err := e.Accept(ctx, provider, accepted.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := e.Cancel(ctx, customer, accepted.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("cancel accepted: expected conflict, got %v", err)
	}
}

func TestProviderDecision(t *testing.T) {
	e, repo, _ := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 10)
	r := book(t, e, svc)

	if _, err := e.Accept(ctx, rival, r.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("accept by other provider: expected forbidden, got %v", err)
	}
	if _, err := e.Reject(ctx, customer, r.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("reject by customer: expected forbidden, got %v", err)
	}
	if _, err := e.Accept(ctx, provider, uuid.NewString()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("accept missing: expected not found, got %v", err)
	}

	rejected, err := e.Reject(ctx, provider, r.ID)
	if err != nil || rejected.Status != StatusRejected {
		t.Fatalf("Reject: %+v %v", rejected, err)
	}
	if _, err := e.Accept(ctx, provider, r.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("accept rejected: expected conflict, got %v", err)
	}
	if _, err := e.Complete(ctx, customer, r.ID, ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("complete rejected: expected conflict, got %v", err)
	}
}

func TestCompleteRequiresMatchingCustomer(t *testing.T) {
	e, repo, _ := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 25)
	r := book(t, e, svc)

	if _, err := e.Complete(ctx, customer, r.ID, ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("complete pending: expected conflict, got %v", err)
	}
	if _, err := e.Accept(ctx, provider, r.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := e.Complete(ctx, other, r.ID, ""); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("complete by other: expected forbidden, got %v", err)
	}
	if _, err := e.Complete(ctx, customer, r.ID, other.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("complete with mismatched body id: expected forbidden, got %v", err)
	}
	if _, err := e.Complete(ctx, provider, r.ID, ""); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("complete by provider: expected forbidden, got %v", err)
	}
	if s := repo.stats[provider.ID]; s.jobs != 0 {
		t.Fatalf("stats changed by failed completes: %+v", s)
	}
}

func TestConcurrentCompleteCountsOnce(t *testing.T) {
	e, repo, _ := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 60)
	r := book(t, e, svc)
	if _, err := e.Accept(ctx, provider, r.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Complete(ctx, customer, r.ID, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d completes succeeded, want 1", succeeded)
	}
	if s := repo.stats[provider.ID]; s.jobs != 1 || s.earnings != 60 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestUpdateDate(t *testing.T) {
	e, repo, _ := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 10)
	r := book(t, e, svc)
	later := fixedNow.Add(72 * time.Hour)

	if _, err := e.UpdateDate(ctx, customer, r.ID, later); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := e.UpdateDate(ctx, provider, r.ID, fixedNow.Add(-time.Minute)); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	moved, err := e.UpdateDate(ctx, provider, r.ID, later)
	if err != nil || !moved.Date.Equal(later) {
		t.Fatalf("UpdateDate: %+v %v", moved, err)
	}
	if _, err := e.Reject(ctx, provider, r.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := e.UpdateDate(ctx, provider, r.ID, later); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on rejected, got %v", err)
	}
}

func TestListingsAreScoped(t *testing.T) {
	e, repo, _ := newEngine(t)
	ctx := context.Background()
	svc := repo.addService(provider.ID, 10)
	book(t, e, svc)
	book(t, e, svc)
	if _, err := e.Create(ctx, other, CreateInput{ServiceID: svc.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := e.ListForProvider(ctx, rival, provider.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := e.ListForCustomer(ctx, other, customer.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	all, err := e.ListForProvider(ctx, admin, provider.ID)
	if err != nil || len(all) != 3 {
		t.Fatalf("admin list: %d %v", len(all), err)
	}
	mine, err := e.ListForCustomer(ctx, customer, customer.ID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("customer list: %d %v", len(mine), err)
	}

	groups, err := e.CustomersForProvider(ctx, provider)
	if err != nil {
		t.Fatalf("CustomersForProvider: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d customer groups, want 2", len(groups))
	}
	for _, g := range groups {
		want := 1
		if g.Customer.ID == customer.ID {
			want = 2
		}
		if len(g.Bookings) != want {
			t.Fatalf("customer %s has %d bookings, want %d", g.Customer.ID, len(g.Bookings), want)
		}
	}
}

func TestHandlers(t *testing.T) {
	engine, repo, _ := newEngine(t)
	svc := repo.addService(provider.ID, 80)
	h := NewHandler(engine)

	e := echo.New()
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	as := func(p account.Principal) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				account.SetPrincipal(c, p)
				return next(c)
			}
		}
	}
	e.POST("/bookings", h.Create, as(customer))
	e.PUT("/bookings/:id/accept", h.Accept, as(provider))
	e.PATCH("/bookings/:id/complete", h.Complete, as(customer))
	e.GET("/bookings", h.List, as(customer))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodPost, "/bookings", `{"serviceId": "nope"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}

	rec := do(http.MethodPost, "/bookings", `{"serviceId": "`+svc.ID+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Reservation
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusPending || created.CustomerID != customer.ID {
		t.Fatalf("unexpected body %+v", created)
	}

	if rec := do(http.MethodPatch, "/bookings/"+created.ID+"/complete", `{}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 completing pending, got %d", rec.Code)
	}
	if rec := do(http.MethodPut, "/bookings/"+created.ID+"/accept", ``); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on accept, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPatch, "/bookings/"+created.ID+"/complete", `{"customerId": "`+other.ID+`"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = do(http.MethodPatch, "/bookings/"+created.ID+"/complete", `{"customerId": "`+customer.ID+`"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"completed"`) {
		t.Fatalf("expected completed reservation, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodGet, "/bookings", "")
	var views []View
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil || len(views) != 1 {
		t.Fatalf("list: %d %v %s", len(views), err, rec.Body.String())
	}
}
