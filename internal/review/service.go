package review

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/booking"
)

type Repository interface {
	// Submit saves the review and recomputes its provider's rating
	// atomically. Nothing is written when either step fails.
	Submit(ctx context.Context, rv Review) (Review, bool, float64, error)
	Recompute(ctx context.Context, providerID string) (float64, error)
	ListForProvider(ctx context.Context, providerID string) ([]Review, error)
}

// Reservations looks up the reservation a review is attached to.
type Reservations interface {
	Get(ctx context.Context, id string) (booking.Reservation, error)
}

// Aggregator records reviews and keeps provider ratings in step with them.
type Aggregator struct {
	reviews      Repository
	reservations Reservations
}

func New(reviews Repository, reservations Reservations) *Aggregator {
	return &Aggregator{reviews: reviews, reservations: reservations}
}

// Submit creates or edits the caller's review of a completed reservation and
// recomputes the provider's rating. created is false when an existing review
// was edited.
func (a *Aggregator) Submit(ctx context.Context, p account.Principal, in SubmitInput) (Review, bool, error) {
	customerID := in.CustomerID
	if customerID == "" {
		customerID = p.ID
	}
	if in.ReservationID == "" {
		return Review{}, false, apperr.BadRequest("reservationId is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return Review{}, false, apperr.BadRequest("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return Review{}, false, apperr.BadRequest("comment too long (max 1000 chars)")
	}
	if customerID != p.ID {
		return Review{}, false, apperr.Forbidden("cannot review on behalf of another customer")
	}
	if err := apperr.CheckID(in.ReservationID, "reservation"); err != nil {
		return Review{}, false, err
	}

	r, err := a.reservations.Get(ctx, in.ReservationID)
	if err != nil {
		return Review{}, false, err
	}
	if r.CustomerID != customerID {
		return Review{}, false, apperr.Forbidden("only the customer who booked can review")
	}
	if r.Status != booking.StatusCompleted {
		return Review{}, false, apperr.Conflict("only completed reservations can be reviewed")
	}

	rv, created, _, err := a.reviews.Submit(ctx, Review{
		ReservationID: r.ID,
		CustomerID:    r.CustomerID,
		ProviderID:    r.ProviderID,
		ServiceID:     r.ServiceID,
		Rating:        in.Rating,
		Comment:       comment,
	})
	if err != nil {
		return Review{}, false, err
	}
	return rv, created, nil
}

// Recompute rewrites one provider's rating from its reviews.
func (a *Aggregator) Recompute(ctx context.Context, providerID string) (float64, error) {
	if err := apperr.CheckID(providerID, "provider"); err != nil {
		return 0, err
	}
	rating, err := a.reviews.Recompute(ctx, providerID)
	if err != nil {
		return 0, err
	}
	log.Printf("[review] provider %s rating recomputed to %.2f", providerID, rating)
	return rating, nil
}

func (a *Aggregator) ListForProvider(ctx context.Context, providerID string) ([]Review, error) {
	if err := apperr.CheckID(providerID, "provider"); err != nil {
		return nil, err
	}
	return a.reviews.ListForProvider(ctx, providerID)
}
