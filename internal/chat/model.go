package chat

import (
	"encoding/json"
	"time"
)

// Message is one persisted chat line between two accounts.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const maxMessageLen = 2000

// Live channel events.
const (
	EventJoinRoom       = "join_room"
	EventRoomJoined     = "room_joined"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventError          = "error"
)

// Event is the envelope of every websocket frame in either direction.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinRoomData struct {
	AccountID string `json:"accountId"`
}

// sendMessageData mirrors what clients send. The timestamp is accepted in
// any JSON form and ignored; the server stamps messages when they are stored.
type sendMessageData struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Message   string `json:"message"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type errorData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func encodeEvent(name string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: name, Data: raw})
}
