// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tonyjom/lineforge/internal/broadcast"
	"github.com/tonyjom/lineforge/internal/events"
	"github.com/tonyjom/lineforge/internal/sessionlog"
)

// Config is the subset of the application configuration the registry needs.
type Config struct {
	DataDir       string // base directory under which lineforge/sessions/ is created
	ToolPath      string // explicit override for the tool executable, or ""
	YoloMode      bool
	MaxLogLines   int
	DefaultTool   ToolKind
}

// record is a live, resident session: metadata plus the machinery that
// keeps its PTY alive and its output observable.
type record struct {
	mu   sync.RWMutex
	meta Meta
	dir  string

	log        *sessionlog.Log
	sup        *supervisor
	attach     *attachListener
	sizeBcast  *broadcast.Broadcaster[Size]
	curSize    Size
}

// Size is the current terminal dimensions of a session's PTY.
type Size struct {
	Rows, Cols uint16
}

// Registry is the in-memory table of live sessions, keyed by ID.
type Registry struct {
	cfg Config
	bus *events.Bus

	mu       sync.RWMutex
	sessions map[ID]*record
}

// New creates an empty registry. Call Rehydrate afterward to import any
// sessions left over from a previous process.
func New(cfg Config, bus *events.Bus) *Registry {
	if cfg.MaxLogLines <= 0 {
		cfg.MaxLogLines = 10000
	}
	return &Registry{cfg: cfg, bus: bus, sessions: make(map[ID]*record)}
}

// Rehydrate imports on-disk session metadata left over from a prior run.
// Every record found with status Running is rewritten to Stopped; no child
// process is ever revived. Rehydrated sessions are NOT inserted into the
// live registry map — they have no process, log, or socket behind them —
// but their metadata is returned so callers can report on them.
func (r *Registry) Rehydrate() ([]Meta, error) {
	metas, err := rehydrate(r.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		r.bus.Publish(events.SessionStopped, m.ID, "rehydrated")
	}
	return metas, nil
}

// List returns metadata for every resident session, newest-created first.
func (r *Registry) List() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Meta, 0, len(r.sessions))
	for _, rec := range r.sessions {
		rec.mu.RLock()
		out = append(out, rec.meta)
		rec.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get returns metadata for a single session by exact id.
func (r *Registry) Get(id ID) (Meta, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return Meta{}, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.meta, nil
}

func (r *Registry) lookup(id ID) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Resolve finds the unique session whose id starts with prefix. A prefix
// that parses as a full UUID is tried first.
func (r *Registry) Resolve(prefix string) (ID, error) {
	if id, err := ParseID(prefix); err == nil {
		if _, lerr := r.lookup(id); lerr == nil {
			return id, nil
		}
		return ID{}, ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []ID
	for id := range r.sessions {
		if strings.HasPrefix(id.String(), prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return ID{}, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return ID{}, &ErrAmbiguous{Prefix: prefix, Count: len(matches)}
	}
}

// SpawnOptions describes a requested session.
type SpawnOptions struct {
	Name       string
	Tool       ToolKind
	WorkingDir string
	ExtraArgs  []string
	Rows, Cols uint16
}

// Spawn creates, persists, and starts a new session, blocking until its
// attach listener is ready to accept connections.
func (r *Registry) Spawn(opts SpawnOptions) (Meta, error) {
	id := NewID()
	dir := sessionDir(r.cfg.DataDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, fmt.Errorf("creating session directory: %w", err)
	}

	toolPath := r.resolveToolPath(opts.Tool)

	extraArgs := append([]string(nil), opts.ExtraArgs...)
	if r.cfg.YoloMode {
		flag := opts.Tool.SkipPermissionsFlag()
		if !containsString(extraArgs, flag) {
			extraArgs = append([]string{flag}, extraArgs...)
		}
	}
	if opts.Tool == ToolClaude && !containsString(extraArgs, "--session-id") {
		extraArgs = append(extraArgs, "--session-id", id.String())
	}

	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}

	sup, pid, err := startSupervisor(startOptions{
		Command:    toolPath,
		Args:       extraArgs,
		WorkingDir: opts.WorkingDir,
		Rows:       rows,
		Cols:       cols,
	})
	if err != nil {
		return Meta{}, fmt.Errorf("spawning session: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = opts.Tool.String() + " session"
	}

	now := time.Now().UTC()
	meta := Meta{
		ID:         id,
		Name:       name,
		Tool:       opts.Tool,
		Status:     StatusRunning(),
		WorkingDir: opts.WorkingDir,
		CreatedAt:  now,
		UpdatedAt:  now,
		PID:        &pid,
		ExtraArgs:  extraArgs,
	}
	writeMeta(dir, meta)

	slog := sessionlog.New(r.cfg.MaxLogLines, outputLogPath(dir))

	rec := &record{
		meta:      meta,
		dir:       dir,
		log:       slog,
		sup:       sup,
		sizeBcast: broadcast.New[Size](8),
		curSize:   Size{Rows: rows, Cols: cols},
	}

	al, err := startAttachListener(id, slog, sup.Write)
	if err != nil {
		// The session is still usable over HTTP even without a socket
		// listener; log and continue rather than aborting a spawned child.
		log.Printf("session %s: attach listener failed: %v", id, err)
	}
	rec.attach = al

	r.mu.Lock()
	r.sessions[id] = rec
	r.mu.Unlock()

	r.bus.Publish(events.SessionCreated, id, "")

	sup.run(slog, func(status Status) {
		r.onExit(id, status)
	})

	return meta, nil
}

func (r *Registry) resolveToolPath(tool ToolKind) string {
	if r.cfg.ToolPath != "" {
		return r.cfg.ToolPath
	}
	return tool.CommandName()
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// onExit is the supervisor's reaper callback: it applies the terminal
// status only if the session is still marked Running, since an explicit
// Stop call already set a terminal status synchronously. Either way it
// clears pid, advances updated_at, and persists meta.json.
func (r *Registry) onExit(id ID, status Status) {
	rec, err := r.lookup(id)
	if err != nil {
		return
	}

	rec.mu.Lock()
	applied := false
	if rec.meta.Status.Running {
		rec.meta.Status = status
		applied = true
	}
	rec.meta.PID = nil
	rec.meta.UpdatedAt = time.Now().UTC()
	writeMeta(rec.dir, rec.meta)
	rec.mu.Unlock()

	if rec.attach != nil {
		_ = rec.attach.Close()
	}
	_ = rec.log.Close()

	if applied {
		if status.Errored != "" {
			r.bus.Publish(events.SessionErrored, id, status.Errored)
		} else {
			r.bus.Publish(events.SessionStopped, id, "")
		}
	}
}

// SendInput forwards bytes to a running session's child process.
func (r *Registry) SendInput(id ID, data []byte) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.RLock()
	running := rec.meta.Status.Running
	rec.mu.RUnlock()
	if !running {
		return ErrAlreadyStopped
	}
	rec.sup.Write(data)
	return nil
}

// Resize changes a running session's PTY dimensions. rows and cols must
// both be in [1, 500].
func (r *Registry) Resize(id ID, rows, cols uint16) error {
	if rows < 1 || rows > 500 || cols < 1 || cols > 500 {
		return ErrInvalidInput
	}
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	running := rec.meta.Status.Running
	if running {
		rec.curSize = Size{Rows: rows, Cols: cols}
	}
	rec.mu.Unlock()
	if !running {
		return ErrAlreadyStopped
	}
	if err := rec.sup.Resize(rows, cols); err != nil {
		return fmt.Errorf("resizing pty: %w", err)
	}
	rec.sizeBcast.Publish(Size{Rows: rows, Cols: cols})
	return nil
}

// Stop sends SIGTERM to a running session's child and immediately marks it
// Stopped; the supervisor's reaper later observes the actual exit but will
// not overwrite this terminal status.
func (r *Registry) Stop(id ID) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	if !rec.meta.Status.Running {
		rec.mu.Unlock()
		return ErrAlreadyStopped
	}
	rec.meta.Status = StatusStopped()
	rec.meta.PID = nil
	rec.meta.UpdatedAt = time.Now().UTC()
	writeMeta(rec.dir, rec.meta)
	rec.mu.Unlock()

	if err := rec.sup.terminate(); err != nil {
		log.Printf("session %s: SIGTERM failed: %v", id, err)
	}
	if rec.attach != nil {
		_ = rec.attach.Close()
	}

	r.bus.Publish(events.SessionStopped, id, "")
	return nil
}

// LogSnapshot returns the current ring contents for a session, oldest
// first.
func (r *Registry) LogSnapshot(id ID) ([]sessionlog.Entry, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return rec.log.Snapshot(), nil
}

// SubscribeLogs returns a live feed of output entries for a session.
func (r *Registry) SubscribeLogs(id ID) (*broadcast.Subscription[sessionlog.Entry], error) {
	rec, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return rec.log.Subscribe(), nil
}

// SubscribeSize returns a live feed of terminal-size changes for a session.
func (r *Registry) SubscribeSize(id ID) (*broadcast.Subscription[Size], Size, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return nil, Size{}, err
	}
	rec.mu.RLock()
	cur := rec.curSize
	rec.mu.RUnlock()
	return rec.sizeBcast.Subscribe(), cur, nil
}
