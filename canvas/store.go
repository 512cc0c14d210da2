package canvas

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/gaban/dbopen"
	"github.com/hazyhaar/gaban/idgen"
)

// Name, creator, and size of the canvas served when no id is supplied.
const (
	DefaultName    = "default"
	DefaultCreator = "System"
	DefaultWidth   = 300
	DefaultHeight  = 300
)

const schema = `
CREATE TABLE IF NOT EXISTS canvases (
    id       TEXT PRIMARY KEY,
    name     TEXT NOT NULL UNIQUE,
    creator  TEXT NOT NULL,
    created  INTEGER NOT NULL,
    width    INTEGER NOT NULL,
    height   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pixels (
    canvas_id TEXT NOT NULL REFERENCES canvases(id) ON DELETE CASCADE,
    x         INTEGER NOT NULL,
    y         INTEGER NOT NULL,
    color     TEXT NOT NULL,
    PRIMARY KEY (canvas_id, x, y)
);

CREATE TABLE IF NOT EXISTS edits (
    id        TEXT PRIMARY KEY,
    canvas_id TEXT NOT NULL,
    creator   TEXT NOT NULL,
    ip        TEXT NOT NULL,
    created   INTEGER NOT NULL,
    x         INTEGER NOT NULL,
    y         INTEGER NOT NULL,
    color     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edits_pixel   ON edits (canvas_id, x, y, created DESC);
CREATE INDEX IF NOT EXISTS idx_edits_creator ON edits (creator, created);
`

// Store persists canvases, their sparse pixel maps, and the edit history in
// SQLite. One row per set pixel, so commits to different pixels of the same
// canvas never contend; same-pixel commits are last-write-wins.
type Store struct {
	db          *sql.DB
	defaultSize Point
	newCanvasID idgen.Generator
	newEditID   idgen.Generator
	now         func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDefaultSize overrides the size used when creating the default canvas.
func WithDefaultSize(w, h int) StoreOption {
	return func(s *Store) { s.defaultSize = Point{X: w, Y: h} }
}

// WithCanvasIDs sets a custom ID generator for canvases.
func WithCanvasIDs(gen idgen.Generator) StoreOption {
	return func(s *Store) { s.newCanvasID = gen }
}

// WithEditIDs sets a custom ID generator for edit records.
func WithEditIDs(gen idgen.Generator) StoreOption {
	return func(s *Store) { s.newEditID = gen }
}

// WithClock overrides the store's clock. Tests use this to pin timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore wraps an already-open database, running migrations.
func NewStore(db *sql.DB, opts ...StoreOption) (*Store, error) {
	s := &Store{
		db:          db,
		defaultSize: Point{X: DefaultWidth, Y: DefaultHeight},
		newCanvasID: idgen.Prefixed("cnv_", idgen.Default),
		newEditID:   idgen.Prefixed("edt_", idgen.Default),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("canvas: migrate: %w", err)
	}
	return s, nil
}

// OpenStore opens (or creates) the SQLite database at path and runs
// migrations. The caller must blank-import modernc.org/sqlite.
func OpenStore(path string, opts ...StoreOption) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("canvas: open db: %w", err)
	}
	s, err := NewStore(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Get loads a canvas and its full pixel map. Returns ErrCanvasNotFound when
// no canvas has the given id.
func (s *Store) Get(ctx context.Context, id string) (*Canvas, error) {
	return s.getWhere(ctx, "id = ?", id)
}

// GetByName loads a canvas by its unique name.
func (s *Store) GetByName(ctx context.Context, name string) (*Canvas, error) {
	return s.getWhere(ctx, "name = ?", name)
}

func (s *Store) getWhere(ctx context.Context, where string, arg any) (*Canvas, error) {
	c := &Canvas{Pixels: Pixels{}}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, creator, created, width, height FROM canvases WHERE `+where, arg,
	).Scan(&c.ID, &c.Name, &c.Creator, &c.Created, &c.Size.X, &c.Size.Y)
	if err == sql.ErrNoRows {
		return nil, ErrCanvasNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("canvas: load canvas: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT x, y, color FROM pixels WHERE canvas_id = ?`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("canvas: load pixels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var x, y int
		var color string
		if err := rows.Scan(&x, &y, &color); err != nil {
			return nil, fmt.Errorf("canvas: scan pixel: %w", err)
		}
		c.Pixels[Key(x, y)] = color
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvas: iterate pixels: %w", err)
	}
	return c, nil
}

// GetOrCreateDefault returns the canvas named "default", creating it with
// the configured size when absent. A concurrent creation race resolves via
// the unique name index followed by a re-read.
func (s *Store) GetOrCreateDefault(ctx context.Context) (*Canvas, error) {
	c, err := s.GetByName(ctx, DefaultName)
	if err == nil {
		return c, nil
	}
	if err != ErrCanvasNotFound {
		return nil, err
	}

	id := s.newCanvasID()
	_, err = dbopen.Exec(ctx, s.db,
		`INSERT INTO canvases (id, name, creator, created, width, height) VALUES (?,?,?,?,?,?)`,
		id, DefaultName, DefaultCreator, s.now().UnixMilli(), s.defaultSize.X, s.defaultSize.Y)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			// Another request created it first.
			return s.GetByName(ctx, DefaultName)
		}
		return nil, fmt.Errorf("canvas: create default: %w", err)
	}
	return s.Get(ctx, id)
}

// PixelColor returns the current color of one pixel and whether it is set,
// without loading the whole canvas.
func (s *Store) PixelColor(ctx context.Context, canvasID string, x, y int) (string, bool, error) {
	var color string
	err := s.db.QueryRowContext(ctx,
		`SELECT color FROM pixels WHERE canvas_id = ? AND x = ? AND y = ?`,
		canvasID, x, y).Scan(&color)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("canvas: load pixel: %w", err)
	}
	return color, true, nil
}

// CommitEdit applies exactly one pixel mutation: ColorClear deletes the
// pixel row, any other (normalized) color upserts it. A single statement
// per commit gives field-level atomicity; the store does not check bounds,
// that is the gateway's concern.
func (s *Store) CommitEdit(ctx context.Context, canvasID string, x, y int, color string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM canvases WHERE id = ?`, canvasID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrCanvasNotFound
	}
	if err != nil {
		return fmt.Errorf("canvas: check canvas: %w", err)
	}

	if color == ColorClear {
		_, err = dbopen.Exec(ctx, s.db,
			`DELETE FROM pixels WHERE canvas_id = ? AND x = ? AND y = ?`, canvasID, x, y)
	} else {
		_, err = dbopen.Exec(ctx, s.db,
			`INSERT INTO pixels (canvas_id, x, y, color) VALUES (?,?,?,?)
			 ON CONFLICT (canvas_id, x, y) DO UPDATE SET color = excluded.color`,
			canvasID, x, y, color)
	}
	if err != nil {
		return fmt.Errorf("canvas: commit edit: %w", err)
	}
	return nil
}
