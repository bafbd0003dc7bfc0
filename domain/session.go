package domain

import "time"

// Session is one participant's server-side identity: an opaque token,
// a display name, the room it belongs to, a last-activity timestamp and
// a FIFO queue of events not yet drained by a poll.
//
// Sessions are not self-synchronizing; the runtime orchestrator is the
// single owner of all session state.
type Session struct {
	ID       string
	Name     string
	RoomCode string
	LastSeen time.Time

	queue []Event
}

func NewSession(id, name, roomCode string, now time.Time) *Session {
	return &Session{ID: id, Name: name, RoomCode: roomCode, LastSeen: now}
}

// Touch refreshes the last-activity timestamp. Called on every
// successful poll so the reaper only evicts truly silent clients.
func (s *Session) Touch(now time.Time) {
	s.LastSeen = now
}

// Enqueue appends an event to the pending queue. Events are immutable
// once queued; queue order is delivery order.
func (s *Session) Enqueue(e Event) {
	s.queue = append(s.queue, e)
}

// DrainEvents returns all pending events in FIFO order and clears the
// queue. Returns nil when nothing is pending.
func (s *Session) DrainEvents() []Event {
	events := s.queue
	s.queue = nil
	return events
}

// RequeueFront puts events back at the head of the queue, in front of
// anything enqueued since. Used when a drained poll response could not
// be delivered (client disconnected mid-flight).
func (s *Session) RequeueFront(events []Event) {
	if len(events) == 0 {
		return
	}
	s.queue = append(events, s.queue...)
}

func (s *Session) PendingCount() int {
	return len(s.queue)
}
