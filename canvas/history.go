package canvas

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/gaban/dbopen"
)

// AppendEdit inserts one edit record into the history log. Records are only
// ever appended, strictly after the pixel commit succeeded; the log may
// therefore lag the canvas state by one entry on a crash between the two
// steps. Sets rec.ID when empty.
func (s *Store) AppendEdit(ctx context.Context, rec *EditRecord) error {
	if rec.ID == "" {
		rec.ID = s.newEditID()
	}
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO edits (id, canvas_id, creator, ip, created, x, y, color) VALUES (?,?,?,?,?,?,?,?)`,
		rec.ID, rec.CanvasID, rec.Creator, rec.IP, rec.Created, rec.Location.X, rec.Location.Y, rec.Color)
	if err != nil {
		return fmt.Errorf("canvas: append edit: %w", err)
	}
	return nil
}

// EditsByPixel returns every edit ever made to one pixel, most recent first.
// There is no uniqueness constraint: every edit accumulates a new record.
func (s *Store) EditsByPixel(ctx context.Context, canvasID string, x, y int) ([]EditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, canvas_id, creator, ip, created, x, y, color
		 FROM edits WHERE canvas_id = ? AND x = ? AND y = ?
		 ORDER BY created DESC`, canvasID, x, y)
	if err != nil {
		return nil, fmt.Errorf("canvas: query edits: %w", err)
	}
	defer rows.Close()

	records := []EditRecord{}
	for rows.Next() {
		var r EditRecord
		if err := rows.Scan(&r.ID, &r.CanvasID, &r.Creator, &r.IP, &r.Created,
			&r.Location.X, &r.Location.Y, &r.Color); err != nil {
			return nil, fmt.Errorf("canvas: scan edit: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvas: iterate edits: %w", err)
	}
	return records, nil
}

// CountEditsBy counts the edits authored by an identity at or after the
// given unix-millisecond timestamp. The rate limiter is derived from this.
func (s *Store) CountEditsBy(ctx context.Context, creator string, sinceMillis int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edits WHERE creator = ? AND created >= ?`,
		creator, sinceMillis).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("canvas: count edits: %w", err)
	}
	return n, nil
}

// PruneHistory deletes edit records older than the cutoff and reports how
// many were removed. Only the optional retention sweep calls this; the
// write path never deletes history.
func (s *Store) PruneHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := dbopen.Exec(ctx, s.db,
		`DELETE FROM edits WHERE created < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("canvas: prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
