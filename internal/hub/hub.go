package hub

import (
	"sync"

	"github.com/stedixon/KafkaChat/internal/domain"
	"github.com/stedixon/KafkaChat/pkg/logger"
)

const (
	connectedNotice    = "Connected"
	disconnectedNotice = "Disconnected"
)

// roomSet holds the sessions currently bound to one room. Each room carries
// its own lock so fan-out in one room never serializes against another.
type roomSet struct {
	mu      sync.RWMutex
	members map[string]*Session
}

func (r *roomSet) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.members))
	for _, s := range r.members {
		out = append(out, s)
	}
	return out
}

// Hub is the in-memory registry of live sessions and per-room membership.
// It is constructed once in internal/app and injected into the connection
// endpoint and the relay consumer.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]*roomSet
	sessions map[string]*Session
	log      logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]*roomSet),
		sessions: make(map[string]*Session),
		log:      log.WithModule("hub"),
	}
}

// Register adds the session under its bound room and broadcasts a
// "Connected" notice to the room, including the new session itself.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	room, ok := h.rooms[s.RoomID]
	if !ok {
		room = &roomSet{members: make(map[string]*Session)}
		h.rooms[s.RoomID] = room
	}
	// Insert under the hub lock so a concurrent unregister cannot prune
	// the room set between lookup and insertion.
	room.mu.Lock()
	room.members[s.ID] = s
	room.mu.Unlock()
	h.mu.Unlock()

	h.log.Infof("session %s joined room %s", s.ID, s.RoomID)
	h.RouteToRoom(s.RoomID, domain.SystemFrame(s.RoomID, connectedNotice))
}

// Unregister removes the session from its room set and the session map and
// notifies the remaining members. Removing a session twice is a no-op.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.ID)

	room, ok := h.rooms[s.RoomID]
	if ok {
		room.mu.Lock()
		delete(room.members, s.ID)
		empty := len(room.members) == 0
		room.mu.Unlock()
		if empty {
			delete(h.rooms, s.RoomID)
		}
	}
	h.mu.Unlock()

	h.log.Infof("session %s left room %s", s.ID, s.RoomID)
	h.RouteToRoom(s.RoomID, domain.SystemFrame(s.RoomID, disconnectedNotice))
}

// RouteToRoom writes the frame to every session currently bound to the
// room. A failed write removes only that session and never aborts delivery
// to the rest.
func (h *Hub) RouteToRoom(roomID string, frame domain.Frame) {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var failed []*Session
	for _, s := range room.snapshot() {
		if !h.deliver(s, frame) {
			failed = append(failed, s)
		}
	}

	// A write failure is an implicit disconnect.
	for _, s := range failed {
		s.Transport.Close()
		h.Unregister(s)
	}
}

// deliver writes one frame to one session, isolating failures and panics.
func (h *Hub) deliver(s *Session, frame domain.Frame) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Errorf("panic delivering to session %s: %v", s.ID, r)
			ok = false
		}
	}()

	if err := s.Transport.WriteFrame(frame); err != nil {
		h.log.Warnf("write to session %s failed: %v", s.ID, err)
		return false
	}
	return true
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// RoomCount returns the number of rooms with at least one session.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Close shuts the hub down, closing every live transport.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.sessions {
		s.Transport.Close()
		delete(h.sessions, id)
	}
	for id := range h.rooms {
		delete(h.rooms, id)
	}
}
