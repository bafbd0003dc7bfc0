// Package runtime owns all mutable room and session state and the
// machinery that moves events between them. It contains no domain
// rules beyond the membership invariants it must keep atomic.
package runtime

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Sirco-web/ttls/domain"
	"github.com/Sirco-web/ttls/errors"
)

// codeAttempts bounds random code generation before giving up.
const codeAttempts = 100

// Registry maps room codes to rooms and client tokens to sessions.
// Every session is referenced by exactly one room's member list; the
// orchestrator serializes compound operations, while the registry's own
// lock keeps individual lookups safe.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*domain.Room    // code -> room
	sessions map[string]*domain.Session // client token -> session

	rng *rand.Rand
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*domain.Room),
		sessions: make(map[string]*domain.Session),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom registers a new empty room. A requested code must be five
// digits and unused; an empty request draws random codes until a free
// one is found or the attempt limit runs out.
func (r *Registry) CreateRoom(requested string, now time.Time) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := requested
	if code != "" {
		if !domain.ValidRoomCode(code) {
			return nil, errors.ErrInvalidRoomCode
		}
		if _, taken := r.rooms[code]; taken {
			return nil, errors.ErrRoomCodeTaken
		}
	} else {
		var found bool
		for i := 0; i < codeAttempts; i++ {
			candidate := fmt.Sprintf("%05d", r.rng.Intn(100000))
			if _, taken := r.rooms[candidate]; !taken {
				code, found = candidate, true
				break
			}
		}
		if !found {
			return nil, errors.ErrRoomAllocationExhausted
		}
	}

	room := domain.NewRoom(code, now)
	r.rooms[code] = room
	return room, nil
}

// Room returns the room for a code.
func (r *Registry) Room(code string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, errors.ErrRoomNotFound
	}
	return room, nil
}

// DeleteRoomIfEmpty removes a room once its last member is gone.
// Idempotent: a missing or still-populated room is left alone.
func (r *Registry) DeleteRoomIfEmpty(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok || room.MemberCount() > 0 {
		return false
	}
	delete(r.rooms, code)
	return true
}

// Register creates a session and inserts it into the room's member
// list, preserving join order.
func (r *Registry) Register(sess *domain.Session, room *domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
	room.AddMember(sess.ID)
}

// Remove detaches a session from its room and forgets it. The pending
// event queue goes with it. Reports false for unknown tokens.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	if room, exists := r.rooms[sess.RoomCode]; exists {
		room.RemoveMember(sessionID)
	}
	delete(r.sessions, sessionID)
	return true
}

// Session returns the session for a client token.
func (r *Registry) Session(sessionID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.ErrClientNotFound
	}
	return sess, nil
}

// Snapshot builds the ordered membership view of a room: the payload of
// presence events and of create/join responses.
func (r *Registry) Snapshot(code string) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, errors.ErrRoomNotFound
	}
	members := make([]domain.Member, 0, room.MemberCount())
	for _, id := range room.Members() {
		if sess, exists := r.sessions[id]; exists {
			members = append(members, domain.Member{ID: sess.ID, Name: sess.Name})
		}
	}
	return members, nil
}

// RoomCount reports the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// SessionCount reports the number of known sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RoomCodes returns the codes of all live rooms, for operator views.
func (r *Registry) RoomCodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	return codes
}
