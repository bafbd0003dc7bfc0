package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSession_DrainEvents_ReturnsFIFOAndClears(t *testing.T) {
	req := require.New(t)
	sess := NewSession("c1", "Ann", "12345", time.Now())

	// Given three queued events
	sess.Enqueue(NewHelloEvent("c1"))
	sess.Enqueue(NewCreatedEvent("12345"))
	sess.Enqueue(NewMessageEvent("12345", "c1", "Ann", "hi", time.Now()))

	// When the queue is drained
	events := sess.DrainEvents()

	// Then events come back in enqueue order
	req.Len(events, 3)
	req.Equal(EventHello, events[0].Type)
	req.Equal(EventCreated, events[1].Type)
	req.Equal(EventMessage, events[2].Type)

	// And the queue is empty afterwards
	req.Nil(sess.DrainEvents())
	req.Zero(sess.PendingCount())
}

func TestSession_RequeueFront_PutsEventsBeforeNewerOnes(t *testing.T) {
	req := require.New(t)
	sess := NewSession("c1", "Ann", "12345", time.Now())

	// Given a drained batch and a newer event enqueued meanwhile
	sess.Enqueue(NewCreatedEvent("12345"))
	drained := sess.DrainEvents()
	sess.Enqueue(NewJoinedEvent("12345"))

	// When the undeliverable batch is pushed back
	sess.RequeueFront(drained)

	// Then the old event precedes the newer one
	events := sess.DrainEvents()
	req.Len(events, 2)
	req.Equal(EventCreated, events[0].Type)
	req.Equal(EventJoined, events[1].Type)
}

func TestSession_Touch_RefreshesLastSeen(t *testing.T) {
	req := require.New(t)
	start := time.Now()
	sess := NewSession("c1", "Ann", "12345", start)

	later := start.Add(42 * time.Second)
	sess.Touch(later)

	req.Equal(later, sess.LastSeen)
}

func TestSanitizeText(t *testing.T) {
	req := require.New(t)

	req.Equal("hello", SanitizeText("  hello  ", 32))
	req.Equal("", SanitizeText("   \t\n ", 32))
	req.Equal("abc", SanitizeText("abcdef", 3))
	// Rune-based capping must not split multi-byte characters.
	req.Equal("héé", SanitizeText("hééllo", 3))
	req.Equal("unbounded stays whole", SanitizeText("unbounded stays whole", 0))
}
