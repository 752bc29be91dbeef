// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the lineforge session
// API.
//
// Create a client pointing to a running lineforge server:
//
//	c := client.New("http://localhost:42067")
//	sessions, err := c.ListSessions(ctx)
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tonyjom/lineforge/internal/session"
)

// Client is a lineforge API client, safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// New creates a Client pointing at baseURL (e.g. "http://localhost:42067").
// Any trailing slash is removed.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout. Default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// APIError is an error response from the server: a plain {"error": "..."}
// body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lineforge: %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errBody)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}
	return respBody, nil
}

// ListSessions returns metadata for every resident session.
func (c *Client) ListSessions(ctx context.Context) ([]session.Meta, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/sessions", nil)
	if err != nil {
		return nil, err
	}
	var metas []session.Meta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return metas, nil
}

// CreateSessionRequest describes a new session to spawn.
type CreateSessionRequest struct {
	Name       string   `json:"name,omitempty"`
	Tool       string   `json:"tool,omitempty"`
	WorkingDir string   `json:"working_dir,omitempty"`
	ExtraArgs  []string `json:"extra_args,omitempty"`
	Rows       uint16   `json:"rows,omitempty"`
	Cols       uint16   `json:"cols,omitempty"`
}

// CreateSession spawns a new session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (session.Meta, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/sessions", req)
	if err != nil {
		return session.Meta{}, err
	}
	var meta session.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return session.Meta{}, fmt.Errorf("decode response: %w", err)
	}
	return meta, nil
}

// GetSession fetches metadata for a single session by id or unambiguous
// prefix.
func (c *Client) GetSession(ctx context.Context, id string) (session.Meta, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/sessions/"+id, nil)
	if err != nil {
		return session.Meta{}, err
	}
	var meta session.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return session.Meta{}, fmt.Errorf("decode response: %w", err)
	}
	return meta, nil
}

// SendInput writes text to a running session's child process.
func (c *Client) SendInput(ctx context.Context, id, text string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/input", map[string]string{"text": text})
	return err
}

// Resize changes a running session's terminal dimensions.
func (c *Client) Resize(ctx context.Context, id string, rows, cols uint16) error {
	_, err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/resize", map[string]uint16{"rows": rows, "cols": cols})
	return err
}

// Stop sends SIGTERM to a session's child and marks it stopped.
func (c *Client) Stop(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/stop", nil)
	return err
}

// GetChat fetches the reconstructed chat snapshot for a session.
func (c *Client) GetChat(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/api/sessions/"+id+"/chat", nil)
}

// LogEvent is one server-sent event read from a session's log stream.
type LogEvent struct {
	Event string
	Data  json.RawMessage
}

// StreamLogs connects to a session's log stream and calls onEvent for each
// server-sent event until ctx is cancelled or the connection ends.
func (c *Client) StreamLogs(ctx context.Context, id string, onEvent func(LogEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sessions/"+id+"/logs", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var errBody struct {
			Error string `json:"error"`
		}
		json.Unmarshal(body, &errBody)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var event LogEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			event.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		case line == "":
			if event.Event != "" {
				onEvent(event)
				event = LogEvent{}
			}
		}
	}
	return scanner.Err()
}
