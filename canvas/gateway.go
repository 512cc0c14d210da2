package canvas

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hazyhaar/gaban/identity"
	"github.com/hazyhaar/gaban/realtime"
)

// Publisher delivers a committed edit to every subscriber of a canvas.
// Fire-and-forget: delivery failures are invisible to the writer.
type Publisher interface {
	Publish(canvasID string, ev realtime.Event)
}

// DrawRequest is one edit request as it arrives at the gateway. X and Y are
// raw strings from the transport and must parse as integers.
type DrawRequest struct {
	CanvasID    string
	X, Y        string
	Color       string
	Fingerprint identity.Fingerprint
	IP          string
}

// Gateway is the orchestrator of the write path. Each Draw call runs
// independently with no cross-request locking; the store's per-pixel rows
// are the only serialization point, and same-pixel races resolve
// last-write-wins.
type Gateway struct {
	store   *Store
	limiter Limiter
	pub     Publisher
	logger  *slog.Logger
	now     func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets a custom logger.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithGatewayClock overrides the gateway's clock for tests.
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway wires the write path together.
func NewGateway(store *Store, limiter Limiter, pub Publisher, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:   store,
		limiter: limiter,
		pub:     pub,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Draw validates, normalizes, dedupe-checks, rate-limits, commits, logs and
// publishes one edit. Any failed check is terminal: it returns immediately
// with no side effects beyond that point. A request for the pixel's current
// color returns ErrNoChange before identity derivation, rate limiting, or
// logging run.
func (g *Gateway) Draw(ctx context.Context, req DrawRequest) error {
	if req.CanvasID == "" || req.X == "" || req.Y == "" || req.Color == "" {
		return fmt.Errorf("%w: missing parameters", ErrInvalidInput)
	}

	color, err := NormalizeColor(req.Color)
	if err != nil {
		return err
	}

	x, errX := strconv.Atoi(req.X)
	y, errY := strconv.Atoi(req.Y)
	if errX != nil || errY != nil {
		return fmt.Errorf("%w: coordinate format error", ErrInvalidInput)
	}

	c, err := g.store.Get(ctx, req.CanvasID)
	if err != nil {
		return err
	}
	if !c.InBounds(x, y) {
		return ErrOutOfBounds
	}

	current, set := c.Pixels[Key(x, y)]
	if color != ColorClear && set && current == color {
		return ErrNoChange
	}
	if color == ColorClear && !set {
		return ErrNoChange
	}

	guest := req.Fingerprint.Guest()
	now := g.now()

	ok, err := g.limiter.Allow(ctx, guest, now)
	if err != nil {
		return fmt.Errorf("rate check: %w", err)
	}
	if !ok {
		return ErrRateLimited
	}

	if err := g.store.CommitEdit(ctx, c.ID, x, y, color); err != nil {
		return err
	}

	if err := g.store.AppendEdit(ctx, &EditRecord{
		Creator:  guest,
		IP:       req.IP,
		Created:  now.UnixMilli(),
		CanvasID: c.ID,
		Location: Point{X: x, Y: y},
		Color:    color,
	}); err != nil {
		// The commit is already durable; it is not rolled back.
		return err
	}

	g.pub.Publish(c.ID, realtime.NewDraw(x, y, color, now.UnixMilli()))
	return nil
}
