package admin

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/account"
)

// Accounts is the slice of the account store the console needs.
type Accounts interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	List(ctx context.Context, roles ...account.Role) ([]account.Account, error)
	SetBlocked(ctx context.Context, id string, blocked bool) (account.Account, error)
}

// Repository holds the platform-wide read queries.
type Repository interface {
	ListServices(ctx context.Context) ([]ServiceRow, error)
	ListBookings(ctx context.Context) ([]BookingRow, error)
	Stats(ctx context.Context) (PlatformStats, error)
}

// Console backs the /admin routes. Every method assumes the caller already
// passed the admin guard.
type Console struct {
	accounts Accounts
	repo     Repository
}

func New(accounts Accounts, repo Repository) *Console {
	return &Console{accounts: accounts, repo: repo}
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type Handler struct {
	console *Console
}

func NewHandler(console *Console) *Handler {
	return &Handler{console: console}
}
