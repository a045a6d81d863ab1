package mq

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("mq: backend closed")

// Local delivers messages to subscribers in the same process. It is the
// default for single-replica deployments and for tests.
type Local struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Message
	nextID int
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[int]chan Message)}
}

func (l *Local) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return "", ErrClosed
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	for _, ch := range l.subs[channel] {
		select {
		case ch <- msg:
		default:
			log.Printf("[mq] local subscriber on %s is full, dropping %s", channel, msg.ID)
		}
	}
	return msg.ID, nil
}

// Subscribe blocks, handing messages to handler until ctx is done or the
// backend is closed.
func (l *Local) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := make(chan Message, 256)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	id := l.nextID
	l.nextID++
	if l.subs[channel] == nil {
		l.subs[channel] = make(map[int]chan Message)
	}
	l.subs[channel][id] = ch
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if subs, ok := l.subs[channel]; ok {
			delete(subs, id)
		}
		l.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrClosed
			}
			if err := handler(ctx, msg); err != nil {
				log.Printf("[mq] handler for %s failed: %v", channel, err)
			}
		}
	}
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for channel, subs := range l.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(l.subs, channel)
	}
	return nil
}

// Subscribers reports how many subscriptions are active on channel.
func (l *Local) Subscribers(channel string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[channel])
}
