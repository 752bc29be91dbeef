// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP surface over a session registry:
// plain REST endpoints for session lifecycle and control, a server-sent
// event stream for live output, and a read-only chat snapshot endpoint
// backed by the transcript parser.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/tonyjom/lineforge/internal/iterm"
	"github.com/tonyjom/lineforge/internal/session"
	"github.com/tonyjom/lineforge/internal/transcript"
)

// SessionHandler serves the session lifecycle and control API.
type SessionHandler struct {
	registry     *session.Registry
	defaultTool  session.ToolKind
	itermEnabled bool
}

// NewSessionHandler creates a handler bound to the given registry.
// itermEnabled mirrors the iterm.enabled config setting: when false, a
// request's auto_open_iterm is ignored even if set.
func NewSessionHandler(registry *session.Registry, defaultTool session.ToolKind, itermEnabled bool) *SessionHandler {
	return &SessionHandler{registry: registry, defaultTool: defaultTool, itermEnabled: itermEnabled}
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.registry.List())
}

type createSessionRequest struct {
	Name          string   `json:"name"`
	Tool          string   `json:"tool"`
	WorkingDir    string   `json:"working_dir"`
	ExtraArgs     []string `json:"extra_args"`
	AutoOpenITerm bool     `json:"auto_open_iterm"`
	Rows          uint16   `json:"rows"`
	Cols          uint16   `json:"cols"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		// An empty body is valid (all fields default); anything else that
		// fails to parse as JSON is a bad request.
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tool := h.defaultTool
	if req.Tool != "" {
		parsed, err := session.ParseToolKind(req.Tool)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		tool = parsed
	}

	workingDir := req.WorkingDir
	if workingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workingDir = wd
		}
	}

	meta, err := h.registry.Spawn(session.SpawnOptions{
		Name:       req.Name,
		Tool:       tool,
		WorkingDir: workingDir,
		ExtraArgs:  req.ExtraArgs,
		Rows:       req.Rows,
		Cols:       req.Cols,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.AutoOpenITerm && h.itermEnabled {
		if err := iterm.Open(meta.ID, workingDir); err != nil {
			log.Printf("session %s: opening iTerm2 window: %v", meta.ID, err)
		}
	}

	WriteJSON(w, http.StatusCreated, meta)
}

func (h *SessionHandler) resolveID(r *http.Request) (session.ID, error) {
	idStr := mux.Vars(r)["id"]
	return h.registry.Resolve(idStr)
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	meta, err := h.registry.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, meta)
}

type inputRequest struct {
	Text string `json:"text"`
}

// Input handles POST /api/sessions/{id}/input.
func (h *SessionHandler) Input(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.registry.SendInput(id, []byte(req.Text)); err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resizeRequest struct {
	Rows uint16 `json:"rows"`
	Cols uint16 `json:"cols"`
}

// Resize handles POST /api/sessions/{id}/resize.
func (h *SessionHandler) Resize(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.registry.Resize(id, req.Rows, req.Cols); err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stop handles POST /api/sessions/{id}/stop.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if err := h.registry.Stop(id); err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sseEvent writes one server-sent event with the given event name and JSON
// payload, then flushes immediately so the client sees it without delay.
func sseEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// Logs handles GET /api/sessions/{id}/logs: a server-sent event stream.
// It sends one "resize" event with the session's current terminal
// dimensions, then the ring's current contents as "log" events, then live
// entries as they are pushed; a lagged subscriber is told with a "gap"
// event rather than silently dropping output.
func (h *SessionHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sizeSub, size, err := h.registry.SubscribeSize(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	defer sizeSub.Unsubscribe()

	logSub, err := h.registry.SubscribeLogs(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	defer logSub.Unsubscribe()

	snapshot, err := h.registry.LogSnapshot(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := sseEvent(w, flusher, "resize", size); err != nil {
		return
	}
	for _, entry := range snapshot {
		if err := sseEvent(w, flusher, "log", entry); err != nil {
			return
		}
	}

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-sizeSub.C:
			if !ok {
				return
			}
			if msg.Lagged {
				continue
			}
			if err := sseEvent(w, flusher, "resize", msg.Value); err != nil {
				return
			}
		case msg, ok := <-logSub.C:
			if !ok {
				return
			}
			if msg.Lagged {
				if err := sseEvent(w, flusher, "gap", nil); err != nil {
					return
				}
				continue
			}
			if err := sseEvent(w, flusher, "log", msg.Value); err != nil {
				return
			}
		}
	}
}

// Chat handles GET /api/sessions/{id}/chat: the HTTP surface's only hook
// into the transcript parser. The parser itself never retries or blocks on
// I/O; this handler does the one-shot read of whatever transcript bytes
// exist right now.
func (h *SessionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	meta, err := h.registry.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	if meta.Tool != session.ToolClaude {
		WriteJSON(w, http.StatusOK, transcript.Snapshot{Available: false})
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		WriteJSON(w, http.StatusOK, transcript.Snapshot{Available: false})
		return
	}

	path, found := transcript.FindTranscript(homeDir, meta.WorkingDir, meta.ID.String())
	if !found {
		WriteJSON(w, http.StatusOK, transcript.Snapshot{Available: false})
		return
	}

	parser, err := transcript.ParseFile(path)
	if err != nil {
		WriteJSON(w, http.StatusOK, transcript.Snapshot{Available: false})
		return
	}

	var tail []byte
	if snap, err := h.registry.LogSnapshot(id); err == nil {
		for _, entry := range snap {
			tail = append(tail, entry.Data...)
		}
	}

	stoppedLabel := ""
	if !meta.Status.Running {
		stoppedLabel = "Session " + meta.Status.String()
	}
	snapshot := parser.Snapshot(meta.Status.Running, stoppedLabel, path, tail)
	WriteJSON(w, http.StatusOK, snapshot)
}

// writeSessionError maps a registry error to the HTTP status the API table
// documents for it.
func writeSessionError(w http.ResponseWriter, err error) {
	var ambiguous *session.ErrAmbiguous
	switch {
	case errors.As(err, &ambiguous):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrAlreadyStopped), errors.Is(err, session.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
