// Command gaban runs the shared pixel canvas service: the canvas REST API
// and the per-canvas realtime channel, backed by a single SQLite database.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gaban/canvas"
	"github.com/hazyhaar/gaban/dbopen"
)

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Logging.
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Configuration: file if given, env fallbacks over defaults otherwise.
	cfg := canvas.DefaultConfig()
	if *configPath != "" {
		loaded, err := canvas.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Listen = ":" + port
	}
	if dbPath := os.Getenv("GABAN_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := canvas.New(cfg, db, logger)
	if err != nil {
		return err
	}
	svc.Start(ctx)

	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Mount("/", svc.Routes())

	httpServer := &http.Server{Addr: cfg.Listen, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		svc.Shutdown(shutdownCtx)
	}()

	logger.Info("gaban listening", "addr", cfg.Listen, "db", cfg.DBPath)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("gaban stopped")
	return nil
}

// requestLogger logs every request with status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			logger.Info("handled",
				"method", r.Method, "url", r.URL.String(),
				"status", m.Code, "duration", m.Duration)
		})
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
