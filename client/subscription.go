package client

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/gaban/realtime"
)

// Subscription is one live websocket subscription to a canvas. A dropped
// connection closes Events; the caller resynchronizes by re-fetching the
// snapshot and subscribing again — there is no catch-up replay.
type Subscription struct {
	conn   *websocket.Conn
	events chan realtime.Event

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// Events delivers decoded events in arrival order. Closed when the
// subscription ends.
func (s *Subscription) Events() <-chan realtime.Event {
	return s.events
}

// Err reports why the subscription ended, nil for a clean Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears the subscription down.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
	return nil
}

func (s *Subscription) readLoop() {
	defer close(s.events)
	defer s.Close()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
		var ev realtime.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Unknown frame; skip rather than kill the stream.
			continue
		}
		s.events <- ev
	}
}
