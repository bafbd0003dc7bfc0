package domain

import "time"

// EventType tags the payload variant of an Event.
type EventType string

const (
	EventHello    EventType = "hello"    // assigns the client its token
	EventCreated  EventType = "created"  // echoes the room code to the creator
	EventJoined   EventType = "joined"   // echoes the room code to the joiner
	EventPresence EventType = "presence" // full membership snapshot
	EventMessage  EventType = "msg"      // chat message
	EventError    EventType = "error"    // human-readable failure notice
)

// Member is one entry of a presence snapshot.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is the tagged payload delivered through a client's queue.
// Only the fields of the tagged variant are populated; the rest stay
// zero and are omitted on the wire.
type Event struct {
	Type EventType `json:"type"`

	ClientID string `json:"clientId,omitempty"`

	Room  string   `json:"room,omitempty"`
	Users []Member `json:"users,omitempty"`
	Count int      `json:"count,omitempty"`

	From      string `json:"from,omitempty"`
	FromName  string `json:"fromName,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`

	Message string `json:"message,omitempty"`
}

func NewHelloEvent(clientID string) Event {
	return Event{Type: EventHello, ClientID: clientID}
}

func NewCreatedEvent(roomCode string) Event {
	return Event{Type: EventCreated, Room: roomCode}
}

func NewJoinedEvent(roomCode string) Event {
	return Event{Type: EventJoined, Room: roomCode}
}

func NewPresenceEvent(roomCode string, users []Member) Event {
	return Event{Type: EventPresence, Room: roomCode, Users: users, Count: len(users)}
}

func NewMessageEvent(roomCode, senderID, senderName, text string, at time.Time) Event {
	return Event{
		Type:      EventMessage,
		Room:      roomCode,
		From:      senderID,
		FromName:  senderName,
		Text:      text,
		Timestamp: at.UnixMilli(),
	}
}

func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
