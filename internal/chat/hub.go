package chat

import (
	"log"
	"sync"
)

// Hub tracks which connections sit in which account room. A connection joins
// the room of its own account and receives every message addressed to it.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
	}
}

// Join puts c into accountID's room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, accountID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[accountID] == nil {
		h.rooms[accountID] = make(map[*Client]struct{})
	}
	h.rooms[accountID][c] = struct{}{}

	if h.members[c] == nil {
		h.members[c] = make(map[string]struct{})
	}
	h.members[c][accountID] = struct{}{}
}

// Leave removes c from every room it joined.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
}

func (h *Hub) leaveLocked(c *Client) {
	for accountID := range h.members[c] {
		room := h.rooms[accountID]
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, accountID)
		}
	}
	delete(h.members, c)
}

// Deliver pushes payload to every connection in accountID's room and returns
// how many accepted it. It never blocks: a connection whose buffer is full is
// dropped as a slow consumer. An empty room is not an error.
func (h *Hub) Deliver(accountID string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.rooms[accountID] {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		log.Printf("[chat] dropping slow connection of %s", c.principal.ID)
		h.leaveLocked(c)
		c.shutdown()
	}
	return delivered
}

// Online reports whether any connection is in accountID's room.
func (h *Hub) Online(accountID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[accountID]) > 0
}
