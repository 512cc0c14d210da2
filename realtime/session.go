package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single outbound frame.
	writeWait = 10 * time.Second
	// pongWait is how long a session may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer bounds the outbound queue; overflow drops events.
	sendBuffer = 64
)

// Session is one live websocket subscription to a canvas room. Its id is the
// opaque handle carried by presence events.
type Session struct {
	id       string
	canvasID string
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte

	closeOnce sync.Once
}

// ID returns the session's opaque handle.
func (s *Session) ID() string { return s.id }

// CanvasID returns the canvas this session is subscribed to.
func (s *Session) CanvasID() string { return s.canvasID }

// Close tears the session down: room membership is freed immediately and the
// remaining members receive a user-left event. There is no drain period.
// The hub closes the send channel as part of leave.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.hub.leave(s)
		s.conn.Close()
	})
}

// readPump consumes inbound frames until the connection drops. The live
// channel is server-to-client only; inbound payloads are discarded, but the
// read loop is what notices disconnects and pongs.
func (s *Session) readPump() {
	defer s.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
