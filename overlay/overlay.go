// Package overlay implements the client-side reconciliation of a canvas
// snapshot with the live edit stream. A session fetches the full pixel map
// once, then applies every incoming draw event to an insertion-ordered
// overlay; the rendered value of a pixel is the overlay's if present, else
// the snapshot's, else unset. The overlay never re-fetches and grows for
// the lifetime of the session; bounding it is the caller's concern.
//
// The package is pure data: no transport, no rendering framework.
package overlay

import "fmt"

// Clear is the color value recording an erase. A cleared pixel still has an
// overlay entry (the edit happened), but renders as unset.
const Clear = "clear"

// Key returns the pixel map key for a coordinate, matching the server's
// "x,y" snapshot keys.
func Key(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}

// Snapshot is the last fully-fetched pixel map of a canvas.
type Snapshot map[string]string

// Edit is one incoming draw event.
type Edit struct {
	X     int
	Y     int
	Color string // normalized hex or Clear
}

// Overlay accumulates edits received since the snapshot was fetched, in
// insertion order, most-recently-applied value winning per key.
type Overlay struct {
	colors map[string]string
	order  []string
}

// New returns an empty overlay.
func New() *Overlay {
	return &Overlay{colors: make(map[string]string)}
}

// Apply records one edit. An erase is recorded like any other edit; it
// shadows the snapshot value so the pixel renders unset.
func (o *Overlay) Apply(e Edit) {
	k := Key(e.X, e.Y)
	if _, seen := o.colors[k]; !seen {
		o.order = append(o.order, k)
	}
	o.colors[k] = e.Color
}

// Len reports how many distinct pixels the overlay covers.
func (o *Overlay) Len() int { return len(o.colors) }

// Color resolves the render value of one pixel against the snapshot:
// overlay value if present, else snapshot value, else unset (ok false).
// A Clear overlay entry renders unset even when the snapshot has a color.
func (o *Overlay) Color(snap Snapshot, x, y int) (string, bool) {
	k := Key(x, y)
	if c, present := o.colors[k]; present {
		if c == Clear {
			return "", false
		}
		return c, true
	}
	if c, present := snap[k]; present {
		return c, true
	}
	return "", false
}

// Merged renders the full pixel map: the snapshot with every overlay edit
// applied, cleared pixels removed. Neither input is mutated.
func (o *Overlay) Merged(snap Snapshot) Snapshot {
	out := make(Snapshot, len(snap)+len(o.colors))
	for k, c := range snap {
		out[k] = c
	}
	for _, k := range o.order {
		if c := o.colors[k]; c == Clear {
			delete(out, k)
		} else {
			out[k] = c
		}
	}
	return out
}
