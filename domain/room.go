// Package domain contains core concepts of the room service.
// Rooms, sessions and events carry no runtime, network, or UI logic.
package domain

import (
	"time"
)

// RoomCodeLength is the fixed length of the externally visible room code.
const RoomCodeLength = 5

// Room groups connected clients under a short numeric code.
// Member order is insertion order; two-party UIs rely on it to pick
// "the first joined participant that is not me".
type Room struct {
	Code      string
	CreatedAt time.Time

	members []string // session ids, join order
}

func NewRoom(code string, createdAt time.Time) *Room {
	return &Room{Code: code, CreatedAt: createdAt}
}

// AddMember appends a session id, preserving join order.
// Adding an id that is already present is a no-op.
func (r *Room) AddMember(sessionID string) {
	for _, id := range r.members {
		if id == sessionID {
			return
		}
	}
	r.members = append(r.members, sessionID)
}

// RemoveMember drops a session id and reports whether it was present.
func (r *Room) RemoveMember(sessionID string) bool {
	for i, id := range r.members {
		if id == sessionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// Members returns a copy of the member ids in join order.
// Broadcast iterates over this snapshot so that mutations triggered
// mid-broadcast cannot corrupt the iteration.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) MemberCount() int {
	return len(r.members)
}

// ValidRoomCode reports whether code is exactly five ASCII digits.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
