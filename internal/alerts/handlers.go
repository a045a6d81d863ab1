package alerts

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// Notification is one in-app inbox item.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Reference string     `json:"reference"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}

var ErrNotificationNotFound = apperr.NotFound("not found or already read")

type InboxStore struct {
	pool *pgxpool.Pool
}

func NewInboxStore(pool *pgxpool.Pool) *InboxStore {
	return &InboxStore{pool: pool}
}

func (s *InboxStore) Create(ctx context.Context, n Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, reference)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), n.UserID, n.Type, n.Title, n.Body, n.Reference,
	)
	return err
}

// List returns the user's notifications, newest first.
func (s *InboxStore) List(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, type, title, body, reference, created_at, read_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, apperr.Internal("failed to load notifications", err)
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		n := Notification{UserID: userID}
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, apperr.Internal("failed to parse notification", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to load notifications", err)
	}
	return items, nil
}

func (s *InboxStore) MarkRead(ctx context.Context, userID, id string) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, id, userID,
	)
	if err != nil {
		return apperr.Internal("failed to update", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// InboxRepository is the read side of the inbox used by the HTTP handlers.
type InboxRepository interface {
	List(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type InboxHandler struct {
	repo InboxRepository
}

func NewInboxHandler(repo InboxRepository) *InboxHandler {
	return &InboxHandler{repo: repo}
}

// List handles GET /notifications.
func (h *InboxHandler) List(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	items, err := h.repo.List(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkRead handles POST /notifications/:id/read.
func (h *InboxHandler) MarkRead(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := apperr.CheckID(id, "notification"); err != nil {
		return err
	}
	if err := h.repo.MarkRead(c.Request().Context(), p.ID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
