package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sirco-web/ttls/domain"
	"github.com/Sirco-web/ttls/errors"
	"github.com/Sirco-web/ttls/moderation"
	"github.com/Sirco-web/ttls/observability"
)

// RoomView is the immediate payload returned by Create and Join, and
// the shape of one entry in the operator room list.
type RoomView struct {
	ClientID string          `json:"clientId,omitempty"`
	Room     string          `json:"room"`
	Users    []domain.Member `json:"users"`
	Count    int             `json:"count"`
}

// RoomInfo is the operator view of one live room.
type RoomInfo struct {
	Room      string          `json:"room"`
	Users     []domain.Member `json:"users"`
	Count     int             `json:"count"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Orchestrator is the single owner of room, session and pending-poll
// state. Every API operation is serialized under one mutex so that no
// caller can observe a half-updated room; only a parked poll suspends,
// and it suspends outside the lock.
type Orchestrator struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry *Registry
	monitor  *observability.Monitor

	// moderator is optional; when set, message text is masked before
	// broadcast.
	moderator *moderation.Moderator

	waiters map[string]*pollWaiter // client token -> parked poll

	pollTimeout   time.Duration
	clientTimeout time.Duration
	maxNameLen    int
	maxTextLen    int
}

func NewOrchestrator(log *slog.Logger, registry *Registry, monitor *observability.Monitor,
	pollTimeout, clientTimeout time.Duration, maxNameLen, maxTextLen int) *Orchestrator {
	return &Orchestrator{
		log:           log,
		registry:      registry,
		monitor:       monitor,
		waiters:       make(map[string]*pollWaiter),
		pollTimeout:   pollTimeout,
		clientTimeout: clientTimeout,
		maxNameLen:    maxNameLen,
		maxTextLen:    maxTextLen,
	}
}

// WithModerator enables censored-word masking on outgoing messages.
func (o *Orchestrator) WithModerator(m *moderation.Moderator) *Orchestrator {
	o.moderator = m
	return o
}

// Create allocates a client token, creates the room and registers the
// creator. The hello/created/presence events are queued synchronously
// and the first snapshot is also returned directly, so the creator does
// not need a poll round-trip to learn its room.
func (o *Orchestrator) Create(name, requestedCode string) (RoomView, error) {
	name = domain.SanitizeText(name, o.maxNameLen)
	if name == "" {
		return RoomView{}, errors.ErrEmptyName
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	room, err := o.registry.CreateRoom(requestedCode, now)
	if err != nil {
		return RoomView{}, err
	}

	sess := domain.NewSession(uuid.NewString(), name, room.Code, now)
	o.registry.Register(sess, room)

	o.enqueue(sess, domain.NewHelloEvent(sess.ID))
	o.enqueue(sess, domain.NewCreatedEvent(room.Code))
	users, _ := o.registry.Snapshot(room.Code)
	o.enqueue(sess, domain.NewPresenceEvent(room.Code, users))

	o.monitor.IncrRoomsCreated()
	o.updatePopulation()
	o.log.Info("room created", "room", room.Code, "client", sess.ID)

	return RoomView{ClientID: sess.ID, Room: room.Code, Users: users, Count: len(users)}, nil
}

// Join registers a new member in an existing room. The joiner's own
// onboarding events (hello, joined) are queued directly, while the
// presence snapshot goes through a room-wide broadcast so every member,
// the joiner included, sees the same membership.
func (o *Orchestrator) Join(roomCode, name string) (RoomView, error) {
	name = domain.SanitizeText(name, o.maxNameLen)
	if name == "" {
		return RoomView{}, errors.ErrEmptyName
	}
	if !domain.ValidRoomCode(roomCode) {
		return RoomView{}, errors.ErrInvalidRoomCode
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	room, err := o.registry.Room(roomCode)
	if err != nil {
		return RoomView{}, err
	}

	now := time.Now()
	sess := domain.NewSession(uuid.NewString(), name, room.Code, now)
	o.registry.Register(sess, room)

	o.enqueue(sess, domain.NewHelloEvent(sess.ID))
	o.enqueue(sess, domain.NewJoinedEvent(room.Code))

	users, _ := o.registry.Snapshot(room.Code)
	o.broadcast(room, domain.NewPresenceEvent(room.Code, users))

	o.monitor.IncrJoins()
	o.updatePopulation()
	o.log.Info("client joined", "room", room.Code, "client", sess.ID)

	return RoomView{ClientID: sess.ID, Room: room.Code, Users: users, Count: len(users)}, nil
}

// Leave detaches a client, notifies the remaining members and deletes
// the room once empty. Unknown tokens are a no-op: leave is idempotent.
// A parked poll held by the leaver resolves immediately with an empty
// list so its request does not linger until timeout.
func (o *Orchestrator) Leave(clientID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, err := o.registry.Session(clientID)
	if err != nil {
		return
	}
	roomCode := sess.RoomCode

	o.cancelWaiter(clientID)
	o.registry.Remove(clientID)

	if room, err := o.registry.Room(roomCode); err == nil {
		if room.MemberCount() > 0 {
			users, _ := o.registry.Snapshot(roomCode)
			o.broadcast(room, domain.NewPresenceEvent(roomCode, users))
		}
		if o.registry.DeleteRoomIfEmpty(roomCode) {
			o.log.Info("room deleted", "room", roomCode)
		}
	}

	o.updatePopulation()
	o.log.Info("client left", "room", roomCode, "client", clientID)
}

// Send broadcasts a message to the sender's room with a server-assigned
// timestamp and the sender's stored name. Empty text after sanitation
// is a silent no-op; a client without a room fails NotInRoom.
func (o *Orchestrator) Send(clientID, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, err := o.registry.Session(clientID)
	if err != nil {
		return errors.ErrClientNotInRoom
	}
	room, err := o.registry.Room(sess.RoomCode)
	if err != nil {
		return errors.ErrClientNotInRoom
	}

	text = domain.SanitizeText(text, o.maxTextLen)
	if text == "" {
		return nil
	}
	if o.moderator != nil {
		text = o.moderator.Censor(text)
	}

	o.broadcast(room, domain.NewMessageEvent(room.Code, sess.ID, sess.Name, text, time.Now()))
	o.monitor.IncrMessagesSent()
	return nil
}

// NotifyError queues an error event for one client, resolving its
// parked poll if it holds one. Used for asynchronous failures such as a
// voice transcription that went wrong after the HTTP request completed.
func (o *Orchestrator) NotifyError(clientID, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, err := o.registry.Session(clientID)
	if err != nil {
		return
	}
	o.enqueue(sess, domain.NewErrorEvent(message))
	o.flush(sess)
}

// Poll drains the client's pending events, or parks the request until
// an event arrives, the timeout elapses (normal empty result, not an
// error), the request context is cancelled, or a newer poll from the
// same client supersedes this one. At most one parked poll per client
// is honored at a time.
func (o *Orchestrator) Poll(ctx context.Context, clientID string) ([]domain.Event, error) {
	o.mu.Lock()
	sess, err := o.registry.Session(clientID)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	sess.Touch(time.Now())

	if events := sess.DrainEvents(); len(events) > 0 {
		o.mu.Unlock()
		return events, nil
	}

	// A previous parked poll from the same client is satisfied with an
	// empty flush before the new one is installed; it is never dropped.
	if old, ok := o.waiters[clientID]; ok {
		old.deliver(nil)
	}
	w := newPollWaiter()
	o.waiters[clientID] = w
	o.mu.Unlock()
	o.monitor.IncrPollsParked()

	timer := time.NewTimer(o.pollTimeout)
	defer timer.Stop()

	select {
	case events := <-w.ch:
		return events, nil
	case <-timer.C:
		o.monitor.IncrPollsTimedOut()
		return o.abandon(clientID, w, false), nil
	case <-ctx.Done():
		// Client went away mid-poll. Deregister, and if a resolution
		// raced us, push its events back so the next poll sees them.
		o.abandon(clientID, w, true)
		return nil, ctx.Err()
	}
}

// Reap evicts clients silent longer than the client timeout, broadcasts
// updated presence to survivors and deletes rooms left empty. Evicted
// clients get no farewell event; they learn from their next failed
// poll. Returns how many clients were dropped.
func (o *Orchestrator) Reap(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	evictedTotal := 0
	for _, code := range o.registry.RoomCodes() {
		room, err := o.registry.Room(code)
		if err != nil {
			continue
		}

		evicted := 0
		for _, id := range room.Members() {
			sess, err := o.registry.Session(id)
			if err != nil {
				continue
			}
			if now.Sub(sess.LastSeen) <= o.clientTimeout {
				continue
			}
			o.cancelWaiter(id)
			o.registry.Remove(id)
			evicted++
			o.log.Debug("client evicted", "room", code, "client", id)
		}
		if evicted == 0 {
			continue
		}
		evictedTotal += evicted

		if room.MemberCount() > 0 {
			users, _ := o.registry.Snapshot(code)
			o.broadcast(room, domain.NewPresenceEvent(code, users))
		}
		if o.registry.DeleteRoomIfEmpty(code) {
			o.log.Info("room reaped", "room", code)
		}
	}

	if evictedTotal > 0 {
		o.monitor.IncrClientsEvicted(evictedTotal)
	}
	o.updatePopulation()
	return evictedTotal
}

// RoomList returns the operator snapshot of every live room.
func (o *Orchestrator) RoomList() []RoomInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []RoomInfo
	for _, code := range o.registry.RoomCodes() {
		room, err := o.registry.Room(code)
		if err != nil {
			continue
		}
		users, _ := o.registry.Snapshot(code)
		out = append(out, RoomInfo{
			Room:      code,
			Users:     users,
			Count:     len(users),
			CreatedAt: room.CreatedAt,
		})
	}
	return out
}

// Shutdown resolves every parked poll with an empty list so in-flight
// requests return promptly during graceful stop.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, w := range o.waiters {
		w.deliver(nil)
		delete(o.waiters, id)
	}
}

// enqueue appends an event to one session's queue without flushing.
// Callers must hold o.mu.
func (o *Orchestrator) enqueue(sess *domain.Session, e domain.Event) {
	sess.Enqueue(e)
}

// flush resolves the session's parked poll, if any, with its drained
// queue. Callers must hold o.mu.
func (o *Orchestrator) flush(sess *domain.Session) {
	w, ok := o.waiters[sess.ID]
	if !ok {
		return
	}
	delete(o.waiters, sess.ID)
	w.deliver(sess.DrainEvents())
}

// broadcast enqueues an event for every current member and flushes each
// parked poll. The member list is snapshotted before iterating so a
// leave triggered mid-broadcast cannot corrupt the loop. For any two
// broadcasts to the same room, every recipient sees them in broadcast
// order. Callers must hold o.mu.
func (o *Orchestrator) broadcast(room *domain.Room, e domain.Event) {
	members := room.Members()
	for _, id := range members {
		sess, err := o.registry.Session(id)
		if err != nil {
			continue
		}
		o.enqueue(sess, e)
	}
	for _, id := range members {
		if sess, err := o.registry.Session(id); err == nil {
			o.flush(sess)
		}
	}
	o.monitor.IncrEventsBroadcast(len(members))
}

// cancelWaiter resolves a client's parked poll with an empty list.
// Callers must hold o.mu.
func (o *Orchestrator) cancelWaiter(clientID string) {
	if w, ok := o.waiters[clientID]; ok {
		delete(o.waiters, clientID)
		w.deliver(nil)
	}
}

// abandon deregisters a waiter after a timeout or disconnect. A
// resolution that raced the deregistration is still honored: its events
// are either returned (timeout path) or requeued at the front of the
// client's queue (disconnect path) so best-effort delivery holds.
func (o *Orchestrator) abandon(clientID string, w *pollWaiter, requeue bool) []domain.Event {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cur, ok := o.waiters[clientID]; ok && cur == w {
		delete(o.waiters, clientID)
	}
	select {
	case events := <-w.ch:
		if requeue && len(events) > 0 {
			if sess, err := o.registry.Session(clientID); err == nil {
				sess.RequeueFront(events)
			}
			return nil
		}
		return events
	default:
		return nil
	}
}

// updatePopulation pushes current counts to the monitor. Callers must
// hold o.mu.
func (o *Orchestrator) updatePopulation() {
	o.monitor.UpdatePopulation(o.registry.RoomCount(), o.registry.SessionCount())
}

// pollWaiter is one parked poll request: a buffered channel the
// orchestrator resolves exactly once.
type pollWaiter struct {
	ch chan []domain.Event
}

func newPollWaiter() *pollWaiter {
	return &pollWaiter{ch: make(chan []domain.Event, 1)}
}

// deliver hands the events to the parked request. The channel is
// buffered and the waiter is removed from the table on delivery, so a
// second deliver cannot happen; the default arm guards the invariant
// anyway.
func (w *pollWaiter) deliver(events []domain.Event) {
	select {
	case w.ch <- events:
	default:
	}
}
