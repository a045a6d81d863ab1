package review

import "time"

type Review struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservationId"`
	CustomerID    string    `json:"customerId"`
	ProviderID    string    `json:"providerId"`
	ServiceID     string    `json:"serviceId"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	CustomerName  string    `json:"customerName,omitempty"`
	ServiceTitle  string    `json:"serviceTitle,omitempty"`
}

// SubmitInput is the body of POST /reviews. CustomerID defaults to the
// caller.
type SubmitInput struct {
	ReservationID string `json:"reservationId" validate:"required,uuid"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=1000"`
	CustomerID    string `json:"customerId" validate:"omitempty,uuid"`
}

const maxCommentLen = 1000

// LatestPerServiceMean averages the most recent review of each service.
// The latest review is the one created last, ties broken by update time and
// then by id. No reviews yields 0.
func LatestPerServiceMean(reviews []Review) float64 {
	latest := make(map[string]Review, len(reviews))
	for _, rv := range reviews {
		cur, ok := latest[rv.ServiceID]
		if !ok || newer(rv, cur) {
			latest[rv.ServiceID] = rv
		}
	}
	if len(latest) == 0 {
		return 0
	}

	sum := 0
	for _, rv := range latest {
		sum += rv.Rating
	}
	return float64(sum) / float64(len(latest))
}

func newer(a, b Review) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}
