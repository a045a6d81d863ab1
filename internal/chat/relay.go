package chat

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/mq"
)

// BusChannel carries persisted messages to every replica's hub.
const BusChannel = "chat.messages"

type Repository interface {
	Save(ctx context.Context, m Message) (Message, error)
	History(ctx context.Context, a, b string) ([]Message, error)
}

// Relay stores messages and pushes them to the receiver's room. Delivery is
// at most once; history is the durable record.
type Relay struct {
	store Repository
	bus   mq.Backend
	hub   *Hub

	retryMin time.Duration
	retryMax time.Duration
}

func NewRelay(store Repository, bus mq.Backend, hub *Hub) *Relay {
	return &Relay{store: store, bus: bus, hub: hub, retryMin: time.Second, retryMax: 30 * time.Second}
}

// Send persists the message and then publishes it for live delivery. A
// failed write means nothing is pushed. A failed publish is only logged
// because the message is already in history.
func (r *Relay) Send(ctx context.Context, p account.Principal, sender, receiver, text string) (Message, error) {
	if sender != p.ID {
		return Message{}, apperr.Forbidden("cannot send as another account")
	}
	if strings.TrimSpace(text) == "" {
		return Message{}, apperr.BadRequest("message is required")
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return Message{}, apperr.BadRequest("message too long (max 2000 chars)")
	}
	if err := apperr.CheckID(receiver, "receiver"); err != nil {
		return Message{}, err
	}
	if receiver == sender {
		return Message{}, apperr.BadRequest("cannot message yourself")
	}

	msg, err := r.store.Save(ctx, Message{Sender: sender, Receiver: receiver, Message: text})
	if err != nil {
		return Message{}, err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[chat] encode message %s: %v", msg.ID, err)
		return msg, nil
	}
	if _, err := r.bus.Publish(ctx, BusChannel, data, map[string]string{"receiver": receiver}); err != nil {
		log.Printf("[chat] publish message %s: %v", msg.ID, err)
	}
	return msg, nil
}

// History returns the conversation between a and b to either party or an
// admin.
func (r *Relay) History(ctx context.Context, p account.Principal, a, b string) ([]Message, error) {
	if err := apperr.CheckID(a, "user"); err != nil {
		return nil, err
	}
	if err := apperr.CheckID(b, "user"); err != nil {
		return nil, err
	}
	if p.ID != a && p.ID != b && !p.IsAdmin() {
		return nil, apperr.Forbidden("not a participant in this conversation")
	}
	return r.store.History(ctx, a, b)
}

// Run subscribes to the bus and delivers each message into the local hub
// until ctx is cancelled. A subscription that ends early is retried with
// exponential backoff.
func (r *Relay) Run(ctx context.Context) {
	backoff := r.retryMin
	for {
		started := time.Now()
		err := r.bus.Subscribe(ctx, BusChannel, r.deliver)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > r.retryMax {
			backoff = r.retryMin
		}
		log.Printf("[chat][ERROR] bus subscription ended: %v, retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, r.retryMax)
	}
}

func (r *Relay) deliver(_ context.Context, m mq.Message) error {
	var msg Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		log.Printf("[chat] dropping undecodable bus message %s: %v", m.ID, err)
		return nil
	}
	payload, err := encodeEvent(EventReceiveMessage, msg)
	if err != nil {
		return nil
	}
	r.hub.Deliver(msg.Receiver, payload)
	return nil
}
