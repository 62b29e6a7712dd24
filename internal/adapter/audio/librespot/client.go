// Package librespot drives a go-librespot daemon as the playback engine.
//
// Commands go over its REST API (POST /player/...). Playback state comes back
// over the websocket at /events and is translated into engine events.
package librespot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAddress is where go-librespot serves its API by default.
const DefaultAddress = "localhost:3678"

// Status is the subset of GET /status the engine needs.
type Status struct {
	Stopped   bool         `json:"stopped"`
	Paused    bool         `json:"paused"`
	Buffering bool         `json:"buffering"`
	Track     *StatusTrack `json:"track"`
}

// StatusTrack is the track reported by GET /status.
type StatusTrack struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Duration int    `json:"duration"` // ms
}

// Client is an HTTP client for the go-librespot REST API.
type Client struct {
	logger  *slog.Logger
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon at address (host:port).
// A nil httpClient uses one with a 5s timeout.
func NewClient(logger *slog.Logger, address string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		logger:  logger,
		baseURL: "http://" + address,
		http:    httpClient,
	}
}

// Status fetches GET /status. A daemon with nothing loaded answers 204 and
// yields an empty status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return &Status{Stopped: true}, nil
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var s Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &s, nil
}

// PlayURI starts uri via POST /player/play.
func (c *Client) PlayURI(ctx context.Context, uri string, paused bool) error {
	return c.post(ctx, "/player/play", map[string]any{
		"uri":    uri,
		"paused": paused,
	})
}

// Resume resumes playback via POST /player/resume.
func (c *Client) Resume(ctx context.Context) error {
	return c.post(ctx, "/player/resume", nil)
}

// Pause pauses playback via POST /player/pause.
func (c *Client) Pause(ctx context.Context) error {
	return c.post(ctx, "/player/pause", nil)
}

// Seek moves to an absolute position via POST /player/seek.
func (c *Client) Seek(ctx context.Context, position time.Duration) error {
	return c.post(ctx, "/player/seek", map[string]any{
		"position": position.Milliseconds(),
		"relative": false,
	})
}

// post sends a POST with an optional JSON body.
func (c *Client) post(ctx context.Context, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(b))
	}
	c.logger.Debug("daemon command", slog.String("path", path), slog.Int("status", resp.StatusCode))
	return nil
}
