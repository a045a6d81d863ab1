package booking

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// CanTransition reports whether a reservation may move from one status to
// another. Cancellation is not a transition: it deletes a pending row.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusRejected
	case StatusAccepted:
		return to == StatusCompleted
	}
	return false
}

// DefaultLeadTime is added to the booking time when no date is requested.
const DefaultLeadTime = 7 * 24 * time.Hour

// Reservation is a customer's booking of one service. ProviderID is copied
// from the service when the reservation is created and never rewritten.
type Reservation struct {
	ID         string    `json:"id"`
	ServiceID  string    `json:"serviceId"`
	CustomerID string    `json:"customerId"`
	ProviderID string    `json:"providerId"`
	Date       time.Time `json:"date"`
	Status     Status    `json:"status"`
	Price      float64   `json:"price"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ServiceRef is the part of a catalog service a booking needs.
type ServiceRef struct {
	ID         string
	ProviderID string
	Title      string
	Price      float64
}

type CreateInput struct {
	ServiceID  string     `json:"serviceId" validate:"required,uuid"`
	CustomerID string     `json:"customerId" validate:"omitempty,uuid"`
	Date       *time.Time `json:"date"`
}

// Party is the counterpart of a booking as shown in listings.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	City  string `json:"city"`
}

// View is a reservation joined with its service and counterpart.
type View struct {
	Reservation
	ServiceTitle    string `json:"serviceTitle"`
	ServicePhotoURL string `json:"servicePhotoUrl"`
	Counterpart     Party  `json:"counterpart"`
}

// CustomerBookings groups a provider's bookings by customer.
type CustomerBookings struct {
	Customer Party  `json:"customer"`
	Bookings []View `json:"bookings"`
}
