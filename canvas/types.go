// Package canvas implements the authoritative write path of the gaban
// service: the canvas store, the append-only edit history, the
// history-derived rate limiter, the draw gateway, and the HTTP surface.
package canvas

import "fmt"

// Point is an integer coordinate pair, also used as a canvas size.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pixels is the sparse pixel map of a canvas: "x,y" key to normalized
// "#RRGGBB" color. Absence of a key means the pixel is unset.
type Pixels map[string]string

// Key returns the pixel map key for a coordinate.
func Key(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}

// Canvas is the durable record of one drawing board. Wire field names keep
// the original API's spelling ("creater").
type Canvas struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Creator string `json:"creater"`
	Created int64  `json:"created"` // unix milliseconds
	Size    Point  `json:"size"`
	Pixels  Pixels `json:"pixels"`
}

// InBounds reports whether (x,y) lies within [0,Size.X)×[0,Size.Y).
func (c *Canvas) InBounds(x, y int) bool {
	return x >= 0 && x < c.Size.X && y >= 0 && y < c.Size.Y
}

// EditRecord is one entry of the append-only edit history: who set which
// pixel of which canvas to what, and when. Immutable once written.
type EditRecord struct {
	ID       string `json:"id"`
	Creator  string `json:"creater"`
	IP       string `json:"ip"`
	Created  int64  `json:"created"` // unix milliseconds
	CanvasID string `json:"gaban"`
	Location Point  `json:"location"`
	Color    string `json:"color"` // normalized hex or ColorClear
}
