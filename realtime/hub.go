package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/gaban/idgen"
)

// Hub owns the arena of rooms, one per canvas id. A room exists while at
// least one session is joined to it; the last leave removes it.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}

	newID    idgen.Generator
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets a custom logger for the hub.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithSessionIDs sets a custom generator for session handles.
func WithSessionIDs(gen idgen.Generator) Option {
	return func(h *Hub) { h.newID = gen }
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:  make(map[string]map[*Session]struct{}),
		newID:  idgen.Prefixed("sess_", idgen.Default),
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Anonymous public canvas: any origin may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ServeHTTP upgrades the request to a websocket session. A canvas
// subscription is mandatory: requests without a gabanId query parameter are
// rejected before the upgrade.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	canvasID := r.URL.Query().Get("gabanId")
	if canvasID == "" {
		http.Error(w, `{"error":"gabanId query parameter is required"}`, http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("realtime: upgrade failed", "error", err)
		return
	}

	s := h.join(canvasID, conn)
	go s.writePump()
	go s.readPump()
}

// join registers a new session in the canvas's room and notifies the other
// room members that a user joined.
func (h *Hub) join(canvasID string, conn *websocket.Conn) *Session {
	s := &Session{
		id:       h.newID(),
		canvasID: canvasID,
		conn:     conn,
		hub:      h,
		send:     make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	room, ok := h.rooms[canvasID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[canvasID] = room
	}
	room[s] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("realtime: session joined", "session", s.id, "canvas", canvasID)
	h.publishExcept(canvasID, s, NewJoined(s.id, time.Now().UnixMilli()))
	return s
}

// leave removes the session from its room, reclaims the room when empty, and
// notifies the remaining members. The send channel is closed under the hub
// lock so publishers, which fan out under the read lock, can never send on a
// closed channel.
func (h *Hub) leave(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.canvasID]
	if ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, s.canvasID)
		}
		close(s.send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.logger.Debug("realtime: session left", "session", s.id, "canvas", s.canvasID)
	h.publishExcept(s.canvasID, nil, NewLeft(s.id, time.Now().UnixMilli()))
}

// Publish fans the event out to every session in the canvas's room,
// including the session that caused it. Best-effort: sessions with a full
// outbound buffer miss the event.
func (h *Hub) Publish(canvasID string, ev Event) {
	h.publishExcept(canvasID, nil, ev)
}

func (h *Hub) publishExcept(canvasID string, skip *Session, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("realtime: marshal event", "error", err)
		return
	}

	// Sends are non-blocking, so fanning out under the read lock is cheap
	// and excludes leave() closing a send channel mid-fan-out.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[canvasID] {
		if s == skip {
			continue
		}
		select {
		case s.send <- raw:
		default:
			h.logger.Warn("realtime: slow session, event dropped",
				"session", s.id, "canvas", canvasID, "event", ev.Type)
		}
	}
}

// RoomSize reports the number of sessions currently joined to a canvas.
func (h *Hub) RoomSize(canvasID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[canvasID])
}

// Shutdown closes every live session. The HTTP server is expected to have
// stopped accepting upgrades first.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	var all []*Session
	for _, room := range h.rooms {
		for s := range room {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range all {
		s.Close()
	}
}
