package account

import (
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Identity holds the fields every account variant shares.
type Identity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Bio          string    `json:"bio"`
	Skills       []string  `json:"skills"`
	PhotoURL     string    `json:"photoUrl"`
	City         string    `json:"city"`
	Phone        string    `json:"phone"`
	IsBlocked    bool      `json:"isBlocked"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProviderStats are written only by booking completion and the review
// aggregator.
type ProviderStats struct {
	JobsCompleted int     `json:"jobsCompleted"`
	Rating        float64 `json:"rating"`
	TotalEarnings float64 `json:"totalEarnings"`
}

// Account is one of Customer, Provider or Admin.
type Account interface {
	Info() Identity
	sealed()
}

type Customer struct {
	Identity
}

type Provider struct {
	Identity
	ProviderStats
}

type Admin struct {
	Identity
}

func (a Customer) Info() Identity { return a.Identity }
func (a Provider) Info() Identity { return a.Identity }
func (a Admin) Info() Identity    { return a.Identity }

func (Customer) sealed() {}
func (Provider) sealed() {}
func (Admin) sealed()    {}

// FromIdentity builds the variant matching id.Role. stats is only kept for
// providers.
func FromIdentity(id Identity, stats ProviderStats) Account {
	if id.Skills == nil {
		id.Skills = []string{}
	}
	switch id.Role {
	case RoleProvider:
		return Provider{Identity: id, ProviderStats: stats}
	case RoleAdmin:
		return Admin{Identity: id}
	default:
		return Customer{Identity: id}
	}
}

// PublicProfile is the view of an account shown to other users.
type PublicProfile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Role      Role           `json:"role"`
	Bio       string         `json:"bio"`
	Skills    []string       `json:"skills"`
	PhotoURL  string         `json:"photoUrl"`
	City      string         `json:"city"`
	Stats     *ProviderStats `json:"stats,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func ToPublic(a Account) PublicProfile {
	id := a.Info()
	p := PublicProfile{
		ID:        id.ID,
		Name:      id.Name,
		Role:      id.Role,
		Bio:       id.Bio,
		Skills:    id.Skills,
		PhotoURL:  id.PhotoURL,
		City:      id.City,
		CreatedAt: id.CreatedAt,
	}
	if prov, ok := a.(Provider); ok {
		stats := prov.ProviderStats
		p.Stats = &stats
	}
	return p
}

// NewAccount is the input for creating an account.
type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	City         string
	Phone        string
}

// ProfileUpdate carries a partial profile edit; nil fields are unchanged.
type ProfileUpdate struct {
	Name     *string   `json:"name"`
	Bio      *string   `json:"bio"`
	Skills   *[]string `json:"skills"`
	PhotoURL *string   `json:"photoUrl"`
	City     *string   `json:"city"`
	Phone    *string   `json:"phone"`
}
