// Command gaban-watch follows a canvas live: it fetches the snapshot,
// subscribes to the realtime channel, and logs every edit and presence
// change while keeping a reconciled pixel count.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/gaban/client"
	"github.com/hazyhaar/gaban/overlay"
	"github.com/hazyhaar/gaban/realtime"
)

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	serverVar := flag.String("server", "http://localhost:8090", "gaban server base URL")
	canvasVar := flag.String("canvas", "", "canvas id (empty = default canvas)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := client.New(*serverVar)

	cv, err := c.Canvas(ctx, *canvasVar)
	if err != nil {
		return err
	}
	slog.Info("snapshot fetched",
		"canvas", cv.ID, "name", cv.Name,
		"size", cv.Size, "pixels", len(cv.Pixels))

	// Subscribe after the snapshot; edits raced between the two show up on
	// the stream and reconcile through the overlay.
	sub, err := c.Subscribe(ctx, cv.ID)
	if err != nil {
		return err
	}
	defer sub.Close()

	snap := overlay.Snapshot(cv.Pixels)
	ov := overlay.New()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				if err := sub.Err(); err != nil {
					slog.Warn("subscription dropped, re-fetch to resync", "error", err)
				}
				return nil
			}
			switch ev.Type {
			case realtime.TypeDraw:
				d, err := ev.Draw()
				if err != nil {
					continue
				}
				ov.Apply(overlay.Edit{X: d.X, Y: d.Y, Color: d.Color})
				slog.Info("draw",
					"x", d.X, "y", d.Y, "color", d.Color,
					"rendered_pixels", len(ov.Merged(snap)))
			case realtime.TypeJoined:
				p, err := ev.Presence()
				if err != nil {
					continue
				}
				slog.Info("user joined", "user", p.UserID)
			case realtime.TypeLeft:
				p, err := ev.Presence()
				if err != nil {
					continue
				}
				slog.Info("user left", "user", p.UserID)
			}
		}
	}
}
