package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/gaban/identity"
)

// maxDrawBody bounds the draw request body. A draw is a few dozen bytes of
// JSON; anything larger is abuse.
const maxDrawBody = 4 << 10

// Routes returns the full HTTP surface of the service: the canvas REST API
// and the websocket live channel.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/canvas", s.handleGetCanvas)
	r.Post("/canvas/draw", s.handleDraw)
	r.Get("/canvas/record", s.handleRecord)
	r.Get("/gaban/live", s.hub.ServeHTTP)
	return r
}

// handleGetCanvas serves GET /canvas?id=. A missing or unknown id falls
// back to the default canvas, creating it on first access.
func (s *Service) handleGetCanvas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var c *Canvas
	var err error
	if id := r.URL.Query().Get("id"); id != "" {
		c, err = s.store.Get(ctx, id)
		if errors.Is(err, ErrCanvasNotFound) {
			c, err = s.store.GetOrCreateDefault(ctx)
		}
	} else {
		c, err = s.store.GetOrCreateDefault(ctx)
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type drawBody struct {
	GabanID string `json:"gabanId"`
	X       any    `json:"x"`
	Y       any    `json:"y"`
	Color   string `json:"color"`
	Token   string `json:"token"`
}

// handleDraw serves POST /canvas/draw: 204 committed, 304 no-op, 400
// validation or bounds, 404 unknown canvas, 429 rate limited.
func (s *Service) handleDraw(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDrawBody)

	var body drawBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.Draw(r.Context(), DrawRequest{
		CanvasID:    body.GabanID,
		X:           coordString(body.X),
		Y:           coordString(body.Y),
		Color:       body.Color,
		Fingerprint: identity.FromRequest(r),
		IP:          identity.ClientIP(r),
	})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrNoChange):
		w.WriteHeader(http.StatusNotModified)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrOutOfBounds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCanvasNotFound):
		writeError(w, http.StatusNotFound, "Gaban not found")
	case errors.Is(err, ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "Too Many Request")
	default:
		s.internalError(w, r, err)
	}
}

// handleRecord serves GET /canvas/record?gabanId=&x=&y=: the full edit
// history of one pixel, most recent first.
func (s *Service) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	canvasID := q.Get("gabanId")
	rawX, rawY := q.Get("x"), q.Get("y")
	if canvasID == "" || rawX == "" || rawY == "" {
		writeError(w, http.StatusBadRequest, "Missing parameters")
		return
	}

	x, errX := strconv.Atoi(rawX)
	y, errY := strconv.Atoi(rawY)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates")
		return
	}

	c, err := s.store.Get(ctx, canvasID)
	if errors.Is(err, ErrCanvasNotFound) {
		writeError(w, http.StatusNotFound, "Gaban not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !c.InBounds(x, y) {
		writeError(w, http.StatusBadRequest, "Invalid coordinates")
		return
	}

	records, err := s.store.EditsByPixel(ctx, canvasID, x, y)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// internalError logs the cause and answers with a generic message; error
// detail stays server-side.
func (s *Service) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("canvas: internal error", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// coordString renders a JSON coordinate value (number or string) for the
// gateway's numeric validation. Absent values become "".
func coordString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
