package canvas

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/gaban/realtime"
)

// Service owns the canvas store, the rate limiter, the write gateway, and
// the realtime hub as one explicitly-initialized unit. The host constructs
// it, mounts Routes(), calls Start, and calls Shutdown on the way out —
// there is no package-level instance.
type Service struct {
	cfg     *Config
	store   *Store
	hub     *realtime.Hub
	gateway *Gateway
	logger  *slog.Logger
}

// New builds a Service on an already-open database. The database stays
// owned by the caller.
func New(cfg *Config, db *sql.DB, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := NewStore(db,
		WithDefaultSize(cfg.Canvas.DefaultWidth, cfg.Canvas.DefaultHeight))
	if err != nil {
		return nil, fmt.Errorf("canvas: init store: %w", err)
	}

	hub := realtime.NewHub(realtime.WithLogger(logger))
	gateway := NewGateway(store, NewHistoryLimiter(store), hub,
		WithGatewayLogger(logger))

	return &Service{
		cfg:     cfg,
		store:   store,
		hub:     hub,
		gateway: gateway,
		logger:  logger,
	}, nil
}

// Store exposes the canvas store, mainly for tests and tooling.
func (s *Service) Store() *Store { return s.store }

// Hub exposes the realtime hub.
func (s *Service) Hub() *realtime.Hub { return s.hub }

// Start launches the background retention sweep when history retention is
// configured. Returns immediately; the sweep stops when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.cfg.History.RetentionDays <= 0 {
		return
	}
	go s.retentionLoop(ctx)
}

func (s *Service) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.History.SweepIntervalMinutes) * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -s.cfg.History.RetentionDays)
			n, err := s.store.PruneHistory(ctx, cutoff)
			if err != nil {
				s.logger.Warn("canvas: retention sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("canvas: pruned edit history", "removed", n, "cutoff", cutoff)
			}
		}
	}
}

// Shutdown closes every live realtime session. The database is closed by
// its owner.
func (s *Service) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	return nil
}
