package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
)

var ErrReceiverNotFound = apperr.NotFound("receiver not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Save appends a message. The timestamp is assigned by the database.
func (s *Store) Save(ctx context.Context, m Message) (Message, error) {
	m.ID = uuid.NewString()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (id, sender, receiver, message)
		VALUES ($1, $2, $3, $4)
		RETURNING timestamp`,
		m.ID, m.Sender, m.Receiver, m.Message,
	).Scan(&m.Timestamp)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Message{}, ErrReceiverNotFound
		}
		return Message{}, apperr.Internal("failed to save message", err)
	}
	return m, nil
}

// History returns every message between a and b in either direction,
// oldest first.
func (s *Store) History(ctx context.Context, a, b string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, sender::text, receiver::text, message, timestamp
		FROM chat_messages
		WHERE (sender = $1 AND receiver = $2) OR (sender = $2 AND receiver = $1)
		ORDER BY timestamp ASC, id ASC`, a, b)
	if err != nil {
		return nil, apperr.Internal("failed to fetch messages", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Message, &m.Timestamp); err != nil {
			return nil, apperr.Internal("failed to parse message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to fetch messages", err)
	}
	return out, nil
}
