package canvas

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gaban/dbopen"
)

func testStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	s, err := NewStore(dbopen.OpenMemory(t), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGetOrCreateDefault(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	c, err := s.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != DefaultName || c.Creator != DefaultCreator {
		t.Fatalf("got name=%q creator=%q", c.Name, c.Creator)
	}
	if c.Size.X != DefaultWidth || c.Size.Y != DefaultHeight {
		t.Fatalf("size = %+v, want %dx%d", c.Size, DefaultWidth, DefaultHeight)
	}
	if len(c.Pixels) != 0 {
		t.Fatalf("new canvas has %d pixels", len(c.Pixels))
	}

	again, err := s.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != c.ID {
		t.Fatalf("second call created a new canvas: %q vs %q", again.ID, c.ID)
	}
}

func TestGetOrCreateDefaultCustomSize(t *testing.T) {
	s := testStore(t, WithDefaultSize(10, 10))
	c, err := s.GetOrCreateDefault(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.Size.X != 10 || c.Size.Y != 10 {
		t.Fatalf("size = %+v, want 10x10", c.Size)
	}
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get(context.Background(), "cnv_missing"); !errors.Is(err, ErrCanvasNotFound) {
		t.Fatalf("err = %v, want ErrCanvasNotFound", err)
	}
}

func TestCommitEdit(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, WithDefaultSize(10, 10))
	c, err := s.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.CommitEdit(ctx, c.ID, 3, 4, "#FF0000"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Pixels[Key(3, 4)] != "#FF0000" {
		t.Fatalf("pixels = %v", got.Pixels)
	}

	// Overwrite.
	if err := s.CommitEdit(ctx, c.ID, 3, 4, "#00FF00"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, c.ID)
	if got.Pixels[Key(3, 4)] != "#00FF00" {
		t.Fatalf("overwrite failed: %v", got.Pixels)
	}
	if len(got.Pixels) != 1 {
		t.Fatalf("expected 1 pixel, got %d", len(got.Pixels))
	}

	// Clear removes the key entirely.
	if err := s.CommitEdit(ctx, c.ID, 3, 4, ColorClear); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, c.ID)
	if _, ok := got.Pixels[Key(3, 4)]; ok {
		t.Fatalf("clear left key behind: %v", got.Pixels)
	}
}

func TestPixelColor(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, WithDefaultSize(10, 10))
	c, err := s.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, set, err := s.PixelColor(ctx, c.ID, 2, 2); err != nil || set {
		t.Fatalf("unset pixel: set=%v err=%v", set, err)
	}
	if err := s.CommitEdit(ctx, c.ID, 2, 2, "#ABCDEF"); err != nil {
		t.Fatal(err)
	}
	color, set, err := s.PixelColor(ctx, c.ID, 2, 2)
	if err != nil || !set || color != "#ABCDEF" {
		t.Fatalf("PixelColor = %q,%v,%v", color, set, err)
	}
}

func TestCommitEditUnknownCanvas(t *testing.T) {
	s := testStore(t)
	err := s.CommitEdit(context.Background(), "cnv_missing", 0, 0, "#000000")
	if !errors.Is(err, ErrCanvasNotFound) {
		t.Fatalf("err = %v, want ErrCanvasNotFound", err)
	}
}

func TestHistoryAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	c, err := s.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Now().UnixMilli()
	for i, color := range []string{"#111111", "#222222", "#333333"} {
		err := s.AppendEdit(ctx, &EditRecord{
			Creator:  "Guest#aaaaaaaaaa",
			IP:       "192.0.2.1",
			Created:  base + int64(i),
			CanvasID: c.ID,
			Location: Point{X: 5, Y: 6},
			Color:    color,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	// Same creator, different pixel: must not show up in the pixel query.
	if err := s.AppendEdit(ctx, &EditRecord{
		Creator: "Guest#aaaaaaaaaa", IP: "192.0.2.1", Created: base,
		CanvasID: c.ID, Location: Point{X: 0, Y: 0}, Color: "#444444",
	}); err != nil {
		t.Fatal(err)
	}

	records, err := s.EditsByPixel(ctx, c.ID, 5, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Most recent first.
	if records[0].Color != "#333333" || records[2].Color != "#111111" {
		t.Fatalf("wrong order: %v", records)
	}
	for _, r := range records {
		if r.ID == "" {
			t.Fatal("record ID not assigned on append")
		}
	}

	n, err := s.CountEditsBy(ctx, "Guest#aaaaaaaaaa", base)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("CountEditsBy = %d, want 4", n)
	}
	if n, _ := s.CountEditsBy(ctx, "Guest#aaaaaaaaaa", base+2); n != 1 {
		t.Fatalf("windowed count = %d, want 1", n)
	}
}

func TestPruneHistory(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	c, _ := s.GetOrCreateDefault(ctx)

	old := time.Now().Add(-48 * time.Hour)
	for i := 0; i < 3; i++ {
		s.AppendEdit(ctx, &EditRecord{
			Creator: "Guest#old", IP: "x", Created: old.UnixMilli() + int64(i),
			CanvasID: c.ID, Location: Point{X: i, Y: 0}, Color: "#000000",
		})
	}
	s.AppendEdit(ctx, &EditRecord{
		Creator: "Guest#new", IP: "x", Created: time.Now().UnixMilli(),
		CanvasID: c.ID, Location: Point{X: 9, Y: 9}, Color: "#FFFFFF",
	})

	n, err := s.PruneHistory(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("pruned %d, want 3", n)
	}
	if count, _ := s.CountEditsBy(ctx, "Guest#new", 0); count != 1 {
		t.Fatalf("recent record lost")
	}
}
