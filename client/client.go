// Package client is the Go client for the gaban service: the REST calls a
// drawing front end issues and the websocket subscription it renders from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/gaban/canvas"
	"github.com/hazyhaar/gaban/realtime"
)

// Client talks to one gaban server.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8090").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Canvas fetches a canvas snapshot. An empty id returns the default canvas.
func (c *Client) Canvas(ctx context.Context, id string) (*canvas.Canvas, error) {
	u := c.baseURL + "/canvas"
	if id != "" {
		u += "?id=" + url.QueryEscape(id)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch canvas: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var cv canvas.Canvas
	if err := json.NewDecoder(resp.Body).Decode(&cv); err != nil {
		return nil, fmt.Errorf("decode canvas: %w", err)
	}
	return &cv, nil
}

// Draw commits one pixel edit. The server's outcome classes map back to the
// canvas package's sentinel errors: canvas.ErrNoChange for a no-op,
// canvas.ErrRateLimited, canvas.ErrCanvasNotFound, canvas.ErrInvalidInput.
func (c *Client) Draw(ctx context.Context, canvasID string, x, y int, color string) error {
	body, err := json.Marshal(map[string]any{
		"gabanId": canvasID,
		"x":       x,
		"y":       y,
		"color":   color,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/canvas/draw", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotModified:
		return canvas.ErrNoChange
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", canvas.ErrInvalidInput, apiMessage(resp))
	case http.StatusNotFound:
		return canvas.ErrCanvasNotFound
	case http.StatusTooManyRequests:
		return canvas.ErrRateLimited
	default:
		return apiError(resp)
	}
}

// Records fetches the edit history of one pixel, most recent first.
func (c *Client) Records(ctx context.Context, canvasID string, x, y int) ([]canvas.EditRecord, error) {
	u := fmt.Sprintf("%s/canvas/record?gabanId=%s&x=%d&y=%d",
		c.baseURL, url.QueryEscape(canvasID), x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var records []canvas.EditRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// Subscribe opens the live channel for a canvas. Events arrive on
// Subscription.Events until the connection drops or Close is called.
func (c *Client) Subscribe(ctx context.Context, canvasID string) (*Subscription, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) +
		"/gaban/live?gabanId=" + url.QueryEscape(canvasID)
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	sub := &Subscription{
		conn:   conn,
		events: make(chan realtime.Event, 64),
	}
	go sub.readLoop()
	return sub, nil
}

func apiMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}

func apiError(resp *http.Response) error {
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiMessage(resp))
}
