package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	sendBufferSize = 32
)

// Client is one websocket connection of an authenticated account.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	relay     *Relay
	principal account.Principal

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, hub *Hub, relay *Relay, p account.Principal) *Client {
	return &Client{
		conn:      conn,
		hub:       hub,
		relay:     relay,
		principal: p,
		send:      make(chan []byte, sendBufferSize),
	}
}

// enqueue queues payload without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown closes the send buffer; the write pump then closes the socket.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) emit(event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("[chat] encode %s: %v", event, err)
		return
	}
	c.enqueue(payload)
}

func (c *Client) emitError(err error) {
	data := errorData{Kind: apperr.KindOf(err).String(), Message: "internal error"}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
		data.Message = appErr.Message
	} else {
		log.Printf("[chat] event from %s failed: %v", c.principal.ID, err)
	}
	c.emit(EventError, data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump dispatches client events until the connection drops or misses a
// pong for pongWait.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Leave(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[chat] read from %s: %v", c.principal.ID, err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.emitError(apperr.BadRequest("malformed event"))
			continue
		}
		c.handle(ctx, ev)
	}
}

func (c *Client) handle(ctx context.Context, ev Event) {
	switch ev.Event {
	case EventJoinRoom:
		var data joinRoomData
		if err := json.Unmarshal(ev.Data, &data); err != nil || data.AccountID == "" {
			c.emitError(apperr.BadRequest("accountId is required"))
			return
		}
		if data.AccountID != c.principal.ID {
			c.emitError(apperr.Forbidden("cannot join another account's room"))
			return
		}
		c.hub.Join(c, data.AccountID)
		c.emit(EventRoomJoined, data)

	case EventSendMessage:
		var data sendMessageData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			c.emitError(apperr.BadRequest("malformed message"))
			return
		}
		sender := data.Sender
		if sender == "" {
			sender = c.principal.ID
		}
		msg, err := c.relay.Send(ctx, c.principal, sender, data.Receiver, data.Message)
		if err != nil {
			c.emitError(err)
			return
		}
		c.emit(EventMessageSent, msg)

	default:
		c.emitError(apperr.BadRequest("unknown event " + ev.Event))
	}
}
