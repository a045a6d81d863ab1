package catalog

import "time"

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type ServiceStatus string

const (
	StatusActive   ServiceStatus = "active"
	StatusArchived ServiceStatus = "archived"
)

type Service struct {
	ID             string        `json:"id"`
	ProviderID     string        `json:"providerId"`
	CategoryID     string        `json:"categoryId"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Price          float64       `json:"price"`
	PhotoURL       string        `json:"photoUrl"`
	Status         ServiceStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	CategoryName   string        `json:"categoryName,omitempty"`
	ProviderName   string        `json:"providerName,omitempty"`
	ProviderRating float64       `json:"providerRating"`
}

// ServiceInput is the body of service create and update requests.
type ServiceInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price" validate:"min=0"`
	PhotoURL    string  `json:"photoUrl" validate:"max=500"`
	CategoryID  string  `json:"categoryId" validate:"required,uuid"`
}

// Filter narrows service discovery.
type Filter struct {
	Query           string
	CategoryID      string
	ProviderID      string
	MinPrice        *float64
	MaxPrice        *float64
	Sort            string
	Limit           int
	Offset          int
	IncludeArchived bool
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func (f *Filter) normalize() {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
