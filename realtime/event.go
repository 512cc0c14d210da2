// Package realtime provides the per-canvas broadcast channel for the gaban
// service: rooms keyed by canvas id, websocket sessions, and the tagged
// event union delivered to every subscriber of a canvas.
//
// Delivery is best-effort. A session that cannot keep up has events dropped
// rather than blocking the publisher; a client resynchronizes by re-fetching
// the full canvas snapshot after reconnecting.
package realtime

import (
	"encoding/json"
)

// Event type names as they appear on the wire.
const (
	TypeDraw   = "draw"
	TypeJoined = "user-joined"
	TypeLeft   = "user-left"
)

// Event is one message on a canvas's broadcast channel: a committed edit or
// a presence change. Type discriminates the payload.
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// DrawPayload is the payload of a TypeDraw event. Color is a normalized
// "#RRGGBB" value or the sentinel "clear".
type DrawPayload struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Color     string `json:"color"`
	UpdatedAt int64  `json:"updatedAt"`
}

// PresencePayload is the payload of TypeJoined and TypeLeft events.
type PresencePayload struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// NewDraw builds a TypeDraw event.
func NewDraw(x, y int, color string, updatedAt int64) Event {
	return mustEvent(TypeDraw, DrawPayload{X: x, Y: y, Color: color, UpdatedAt: updatedAt})
}

// NewJoined builds a TypeJoined presence event.
func NewJoined(userID string, timestamp int64) Event {
	return mustEvent(TypeJoined, PresencePayload{UserID: userID, Timestamp: timestamp})
}

// NewLeft builds a TypeLeft presence event.
func NewLeft(userID string, timestamp int64) Event {
	return mustEvent(TypeLeft, PresencePayload{UserID: userID, Timestamp: timestamp})
}

// Draw decodes the payload of a TypeDraw event.
func (e Event) Draw() (DrawPayload, error) {
	var p DrawPayload
	err := json.Unmarshal(e.Data, &p)
	return p, err
}

// Presence decodes the payload of a TypeJoined or TypeLeft event.
func (e Event) Presence() (PresencePayload, error) {
	var p PresencePayload
	err := json.Unmarshal(e.Data, &p)
	return p, err
}

func mustEvent(typ string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		// The payload structs contain only ints and strings.
		panic("realtime: marshal event payload: " + err.Error())
	}
	return Event{Type: typ, Data: raw}
}
