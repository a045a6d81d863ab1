package booking

import (
	"context"
	"time"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Repository interface {
	BookableService(ctx context.Context, id string) (ServiceRef, error)
	Create(ctx context.Context, r Reservation) (Reservation, error)
	Get(ctx context.Context, id string) (Reservation, error)
	DeletePending(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, from, to Status) (Reservation, error)
	Complete(ctx context.Context, id string) (Reservation, error)
	UpdateDate(ctx context.Context, id string, date time.Time) (Reservation, error)
	ListForProvider(ctx context.Context, providerID string) ([]View, error)
	ListForCustomer(ctx context.Context, customerID string) ([]View, error)
}

// Notifier is told about lifecycle events. Implementations are best effort
// and must not block the request for long.
type Notifier interface {
	BookingCreated(ctx context.Context, r Reservation)
	BookingDecided(ctx context.Context, r Reservation)
	BookingCompleted(ctx context.Context, r Reservation)
}

type nopNotifier struct{}

func (nopNotifier) BookingCreated(context.Context, Reservation)   {}
func (nopNotifier) BookingDecided(context.Context, Reservation)   {}
func (nopNotifier) BookingCompleted(context.Context, Reservation) {}

// Engine owns the reservation lifecycle.
type Engine struct {
	repo   Repository
	notify Notifier
	now    func() time.Time
}

func New(repo Repository, notify Notifier) *Engine {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Engine{repo: repo, notify: notify, now: time.Now}
}

// Create books a service for the calling customer. The service's provider
// and price are frozen onto the reservation.
func (e *Engine) Create(ctx context.Context, p account.Principal, in CreateInput) (Reservation, error) {
	if p.Role != account.RoleCustomer {
		return Reservation{}, apperr.Forbidden("only customers can book services")
	}
	if in.CustomerID != "" && in.CustomerID != p.ID {
		return Reservation{}, apperr.Forbidden("cannot book on behalf of another customer")
	}
	if err := apperr.CheckID(in.ServiceID, "service"); err != nil {
		return Reservation{}, err
	}

	now := e.now()
	date := now.Add(DefaultLeadTime)
	if in.Date != nil {
		if in.Date.Before(now) {
			return Reservation{}, apperr.BadRequest("date cannot be in the past")
		}
		date = *in.Date
	}

	svc, err := e.repo.BookableService(ctx, in.ServiceID)
	if err != nil {
		return Reservation{}, err
	}
	if svc.ProviderID == p.ID {
		return Reservation{}, apperr.BadRequest("you cannot book your own service")
	}

	r, err := e.repo.Create(ctx, Reservation{
		ServiceID:  svc.ID,
		CustomerID: p.ID,
		ProviderID: svc.ProviderID,
		Date:       date.UTC(),
		Status:     StatusPending,
		Price:      svc.Price,
	})
	if err != nil {
		return Reservation{}, err
	}
	e.notify.BookingCreated(ctx, r)
	return r, nil
}

// Cancel deletes a reservation. Only its customer may cancel and only while
// it is pending.
func (e *Engine) Cancel(ctx context.Context, p account.Principal, id string) error {
	r, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	if r.CustomerID != p.ID {
		return apperr.Forbidden("only the customer who booked can cancel")
	}
	if r.Status != StatusPending {
		return apperr.Conflict("only pending reservations can be cancelled")
	}
	return e.repo.DeletePending(ctx, id)
}

func (e *Engine) Accept(ctx context.Context, p account.Principal, id string) (Reservation, error) {
	return e.decide(ctx, p, id, StatusAccepted)
}

func (e *Engine) Reject(ctx context.Context, p account.Principal, id string) (Reservation, error) {
	return e.decide(ctx, p, id, StatusRejected)
}

func (e *Engine) decide(ctx context.Context, p account.Principal, id string, to Status) (Reservation, error) {
	r, err := e.load(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if r.ProviderID != p.ID {
		return Reservation{}, apperr.Forbidden("only the provider of this booking can decide on it")
	}
	if !CanTransition(r.Status, to) {
		return Reservation{}, apperr.Conflict("reservation is " + string(r.Status) + ", not pending")
	}
	updated, err := e.repo.SetStatus(ctx, id, r.Status, to)
	if err != nil {
		return Reservation{}, err
	}
	e.notify.BookingDecided(ctx, updated)
	return updated, nil
}

// Complete marks an accepted reservation done and credits the provider.
// customerID is optional; when set it must match the caller and the
// reservation.
func (e *Engine) Complete(ctx context.Context, p account.Principal, id, customerID string) (Reservation, error) {
	r, err := e.load(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if customerID != "" && customerID != r.CustomerID {
		return Reservation{}, apperr.Forbidden("customer does not match reservation")
	}
	if p.ID != r.CustomerID {
		return Reservation{}, apperr.Forbidden("only the customer who booked can complete")
	}
	switch {
	case r.Status == StatusCompleted:
		return Reservation{}, apperr.Conflict("reservation already completed")
	case !CanTransition(r.Status, StatusCompleted):
		return Reservation{}, apperr.Conflict("reservation must be accepted before completion")
	}

	done, err := e.repo.Complete(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	e.notify.BookingCompleted(ctx, done)
	return done, nil
}

// UpdateDate reschedules a pending or accepted reservation. Only the
// provider may reschedule.
func (e *Engine) UpdateDate(ctx context.Context, p account.Principal, id string, date time.Time) (Reservation, error) {
	if date.IsZero() {
		return Reservation{}, apperr.BadRequest("date is required")
	}
	if date.Before(e.now()) {
		return Reservation{}, apperr.BadRequest("date cannot be in the past")
	}
	r, err := e.load(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if r.ProviderID != p.ID {
		return Reservation{}, apperr.Forbidden("only the provider of this booking can reschedule it")
	}
	if r.Status.Terminal() {
		return Reservation{}, apperr.Conflict("reservation is " + string(r.Status))
	}
	return e.repo.UpdateDate(ctx, id, date.UTC())
}

// ListForProvider lists a provider's bookings for the provider or an admin.
func (e *Engine) ListForProvider(ctx context.Context, p account.Principal, providerID string) ([]View, error) {
	if err := apperr.CheckID(providerID, "provider"); err != nil {
		return nil, err
	}
	if p.ID != providerID && !p.IsAdmin() {
		return nil, apperr.Forbidden("cannot view another provider's bookings")
	}
	return e.repo.ListForProvider(ctx, providerID)
}

// ListForCustomer lists a customer's bookings for the customer or an admin.
func (e *Engine) ListForCustomer(ctx context.Context, p account.Principal, customerID string) ([]View, error) {
	if err := apperr.CheckID(customerID, "customer"); err != nil {
		return nil, err
	}
	if p.ID != customerID && !p.IsAdmin() {
		return nil, apperr.Forbidden("cannot view another customer's bookings")
	}
	return e.repo.ListForCustomer(ctx, customerID)
}

// CustomersForProvider groups the caller's bookings by customer, in order
// of each customer's most recent booking.
func (e *Engine) CustomersForProvider(ctx context.Context, p account.Principal) ([]CustomerBookings, error) {
	if p.Role != account.RoleProvider {
		return nil, apperr.Forbidden("only providers have customers")
	}
	views, err := e.repo.ListForProvider(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	out := []CustomerBookings{}
	index := map[string]int{}
	for _, v := range views {
		i, ok := index[v.Counterpart.ID]
		if !ok {
			i = len(out)
			index[v.Counterpart.ID] = i
			out = append(out, CustomerBookings{Customer: v.Counterpart})
		}
		out[i].Bookings = append(out[i].Bookings, v)
	}
	return out, nil
}

// Get returns a reservation to one of its parties or an admin.
func (e *Engine) Get(ctx context.Context, p account.Principal, id string) (Reservation, error) {
	r, err := e.load(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if p.ID != r.CustomerID && p.ID != r.ProviderID && !p.IsAdmin() {
		return Reservation{}, apperr.Forbidden("not your reservation")
	}
	return r, nil
}

func (e *Engine) load(ctx context.Context, id string) (Reservation, error) {
	if err := apperr.CheckID(id, "reservation"); err != nil {
		return Reservation{}, err
	}
	return e.repo.Get(ctx, id)
}
