// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyjom/lineforge/internal/session"
)

func TestClient_ListSessions(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]session.Meta{{ID: id, Name: "s1", Tool: session.ToolClaude, Status: session.StatusRunning()}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	sessions, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].Name)
}

func TestClient_CreateSession(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req CreateSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude", req.Tool)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(session.Meta{ID: id, Name: req.Name, Tool: session.ToolClaude, Status: session.StatusRunning()})
	}))
	defer srv.Close()

	c := New(srv.URL)
	meta, err := c.CreateSession(context.Background(), CreateSessionRequest{Name: "my session", Tool: "claude"})
	require.NoError(t, err)
	assert.Equal(t, id, meta.ID)
}

func TestClient_GetSession_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetSession(context.Background(), "unknown")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "session not found", apiErr.Message)
}

func TestClient_SendInputAndStop(t *testing.T) {
	var gotInput, gotStop bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/abc/input":
			gotInput = true
		case "/api/sessions/abc/stop":
			gotStop = true
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.SendInput(context.Background(), "abc", "hello\n"))
	require.NoError(t, c.Stop(context.Background(), "abc"))
	assert.True(t, gotInput)
	assert.True(t, gotStop)
}

func TestClient_StreamLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("event: resize\ndata: {\"rows\":24,\"cols\":80}\n\n"))
		w.Write([]byte("event: log\ndata: {\"at\":\"2026-01-01T00:00:00Z\",\"data\":\"aGk=\"}\n\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var events []LogEvent
	err := c.StreamLogs(context.Background(), "abc", func(e LogEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "resize", events[0].Event)
	assert.Equal(t, "log", events[1].Event)
}
