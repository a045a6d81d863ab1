package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
)

var (
	ErrNotFound   = apperr.NotFound("account not found")
	ErrEmailTaken = apperr.Conflict("email already registered")
	ErrPhoneTaken = apperr.Conflict("phone number already registered")
)

const selectAccount = `
	SELECT id::text, name, email, password_hash, role, bio, skills, photo_url, city, phone,
	       is_blocked, created_at, jobs_completed, rating, total_earnings::float8
	FROM users`

// Store persists accounts in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanAccount(row pgx.Row) (Account, error) {
	var id Identity
	var stats ProviderStats
	var role string
	err := row.Scan(
		&id.ID, &id.Name, &id.Email, &id.PasswordHash, &role, &id.Bio, &id.Skills, &id.PhotoURL,
		&id.City, &id.Phone, &id.IsBlocked, &id.CreatedAt,
		&stats.JobsCompleted, &stats.Rating, &stats.TotalEarnings,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	id.Role = Role(role)
	return FromIdentity(id, stats), nil
}

// Create inserts the account. Providers also get their stats record.
func (s *Store) Create(ctx context.Context, in NewAccount) (Account, error) {
	id := uuid.NewString()
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, role, city, phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, in.Name, strings.ToLower(in.Email), in.PasswordHash, string(in.Role), in.City, in.Phone,
		)
		if err != nil {
			return err
		}
		if in.Role == RoleProvider {
			if _, err := tx.Exec(ctx, `INSERT INTO provider_stats (user_id) VALUES ($1)`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			if strings.Contains(db.ConstraintName(err), "phone") {
				return nil, ErrPhoneTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, apperr.Internal("failed to create account", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) GetByID(ctx context.Context, id string) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	a, err := scanAccount(s.pool.QueryRow(ctx, selectAccount+` WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, apperr.Internal("failed to load account", err)
	}
	return a, err
}

func (s *Store) GetByEmail(ctx context.Context, email string) (Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, selectAccount+` WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, apperr.Internal("failed to load account", err)
	}
	return a, err
}

// UpdateProfile applies the non-nil fields of u.
func (s *Store) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (Account, error) {
	var skills []string
	if u.Skills != nil {
		skills = *u.Skills
		if skills == nil {
			skills = []string{}
		}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET
			name      = COALESCE($2, name),
			bio       = COALESCE($3, bio),
			skills    = COALESCE($4, skills),
			photo_url = COALESCE($5, photo_url),
			city      = COALESCE($6, city),
			phone     = COALESCE($7, phone),
			updated_at = NOW()
		WHERE id = $1`,
		id, u.Name, u.Bio, skills, u.PhotoURL, u.City, u.Phone,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrPhoneTaken
		}
		return nil, apperr.Internal("failed to update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return apperr.Internal("failed to update password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetBlocked(ctx context.Context, id string, blocked bool) (Account, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_blocked = $2, updated_at = NOW() WHERE id = $1`, id, blocked)
	if err != nil {
		return nil, apperr.Internal("failed to update account", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) Blocked(ctx context.Context, id string) (bool, error) {
	var blocked bool
	err := s.pool.QueryRow(ctx, `SELECT is_blocked FROM users WHERE id = $1`, id).Scan(&blocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, apperr.Internal("failed to fetch account", err)
	}
	return blocked, nil
}

// List returns accounts of the given roles, newest first. No roles means
// every non-admin account.
func (s *Store) List(ctx context.Context, roles ...Role) ([]Account, error) {
	if len(roles) == 0 {
		roles = []Role{RoleCustomer, RoleProvider}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	rows, err := s.pool.Query(ctx, selectAccount+` WHERE role = ANY($1) ORDER BY created_at DESC`, names)
	if err != nil {
		return nil, apperr.Internal("failed to list accounts", err)
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, apperr.Internal("failed to parse account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list accounts", err)
	}
	return out, nil
}
