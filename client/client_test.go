package client_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gaban/canvas"
	"github.com/hazyhaar/gaban/client"
	"github.com/hazyhaar/gaban/dbopen"
	"github.com/hazyhaar/gaban/overlay"
	"github.com/hazyhaar/gaban/realtime"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := canvas.DefaultConfig()
	cfg.Canvas.DefaultWidth = 10
	cfg.Canvas.DefaultHeight = 10
	svc, err := canvas.New(cfg, dbopen.OpenMemory(t), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(svc.Routes())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return srv
}

func nextDraw(t *testing.T, sub *client.Subscription) realtime.DrawPayload {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for draw event")
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscription closed: %v", sub.Err())
			}
			if ev.Type != realtime.TypeDraw {
				continue // presence events may interleave
			}
			d, err := ev.Draw()
			if err != nil {
				t.Fatal(err)
			}
			return d
		}
	}
}

func TestDrawRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)
	c := client.New(srv.URL)

	cv, err := c.Canvas(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if cv.Name != canvas.DefaultName || len(cv.Pixels) != 0 {
		t.Fatalf("canvas = %+v", cv)
	}

	sub, err := c.Subscribe(ctx, cv.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	// The committer's own subscription receives the authoritative event.
	if err := c.Draw(ctx, cv.ID, 3, 4, "#FF0000"); err != nil {
		t.Fatal(err)
	}
	d := nextDraw(t, sub)
	if d.X != 3 || d.Y != 4 || d.Color != "#FF0000" {
		t.Fatalf("event = %+v", d)
	}

	// The snapshot now carries the pixel.
	cv2, err := c.Canvas(ctx, cv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cv2.Pixels["3,4"] != "#FF0000" {
		t.Fatalf("pixels = %v", cv2.Pixels)
	}

	// Repeating the same color is a no-op.
	if err := c.Draw(ctx, cv.ID, 3, 4, "#FF0000"); !errors.Is(err, canvas.ErrNoChange) {
		t.Fatalf("repeat draw err = %v, want ErrNoChange", err)
	}

	// Clearing removes the pixel and broadcasts the sentinel.
	if err := c.Draw(ctx, cv.ID, 3, 4, "clear"); err != nil {
		t.Fatal(err)
	}
	d = nextDraw(t, sub)
	if d.Color != "clear" {
		t.Fatalf("clear event = %+v", d)
	}
	cv3, _ := c.Canvas(ctx, cv.ID)
	if _, ok := cv3.Pixels["3,4"]; ok {
		t.Fatalf("pixel survived clear: %v", cv3.Pixels)
	}
}

func TestSnapshotPlusStreamReconciliation(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)
	c := client.New(srv.URL)

	cv, err := c.Canvas(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Draw(ctx, cv.ID, 1, 1, "#ABCDEF"); err != nil {
		t.Fatal(err)
	}

	// Snapshot first, then live stream; the overlay merges the two.
	cv, err = c.Canvas(ctx, cv.ID)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := c.Subscribe(ctx, cv.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if err := c.Draw(ctx, cv.ID, 2, 2, "#123456"); err != nil {
		t.Fatal(err)
	}
	if err := c.Draw(ctx, cv.ID, 1, 1, "clear"); err != nil {
		t.Fatal(err)
	}

	snap := overlay.Snapshot(cv.Pixels)
	ov := overlay.New()
	for i := 0; i < 2; i++ {
		d := nextDraw(t, sub)
		ov.Apply(overlay.Edit{X: d.X, Y: d.Y, Color: d.Color})
	}

	if got, ok := ov.Color(snap, 2, 2); !ok || got != "#123456" {
		t.Fatalf("(2,2) = %q,%v", got, ok)
	}
	if _, ok := ov.Color(snap, 1, 1); ok {
		t.Fatal("(1,1) must render unset after the streamed clear")
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)
	c := client.New(srv.URL)

	cv, err := c.Canvas(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, color := range []string{"#111111", "#222222"} {
		if err := c.Draw(ctx, cv.ID, 7, 7, color); err != nil {
			t.Fatal(err)
		}
	}

	records, err := c.Records(ctx, cv.ID, 7, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Color != "#222222" {
		t.Fatalf("records = %+v", records)
	}
	if records[0].Creator == "" || records[0].Created == 0 {
		t.Fatalf("record missing attribution: %+v", records[0])
	}
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	srv := testServer(t)
	c := client.New(srv.URL)

	cv, err := c.Canvas(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Draw(ctx, "cnv_missing", 0, 0, "#000000"); !errors.Is(err, canvas.ErrCanvasNotFound) {
		t.Fatalf("unknown canvas: %v", err)
	}
	if err := c.Draw(ctx, cv.ID, 99, 0, "#000000"); !errors.Is(err, canvas.ErrInvalidInput) {
		t.Fatalf("out of bounds: %v", err)
	}
	if err := c.Draw(ctx, cv.ID, 0, 0, "nope"); !errors.Is(err, canvas.ErrInvalidInput) {
		t.Fatalf("bad color: %v", err)
	}
}
