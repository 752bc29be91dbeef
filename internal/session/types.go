// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session defines the data model for a live or persisted coding
// agent session, and owns the registry, PTY supervisor, and attach
// listener that operate on it.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID identifies a session. Sessions are addressed by their full UUID or by
// any unambiguous prefix of it.
type ID = uuid.UUID

// NewID generates a fresh session identifier.
func NewID() ID {
	return uuid.New()
}

// ParseID parses a full UUID string.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// ToolKind identifies which coding agent a session is running.
type ToolKind int

const (
	ToolClaude ToolKind = iota
	ToolCodex
)

// CommandName returns the executable name used to launch the tool, absent
// a configured override.
func (k ToolKind) CommandName() string {
	switch k {
	case ToolCodex:
		return "codex"
	default:
		return "claude"
	}
}

// SkipPermissionsFlag returns the tool-specific flag that bypasses the
// tool's interactive permission prompts.
func (k ToolKind) SkipPermissionsFlag() string {
	switch k {
	case ToolCodex:
		return "--yolo"
	default:
		return "--dangerously-skip-permissions"
	}
}

func (k ToolKind) String() string {
	switch k {
	case ToolCodex:
		return "codex"
	default:
		return "claude"
	}
}

// ParseToolKind parses a tool name as given on the command line or in a
// persisted meta.json file.
func ParseToolKind(s string) (ToolKind, error) {
	switch s {
	case "claude", "":
		return ToolClaude, nil
	case "codex":
		return ToolCodex, nil
	default:
		return 0, fmt.Errorf("unknown tool kind %q", s)
	}
}

func (k ToolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ToolKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseToolKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Status is the lifecycle state of a session's underlying process.
type Status struct {
	Running bool
	Stopped bool
	Errored string // non-empty when the process exited abnormally
}

// StatusRunning reports a live process.
func StatusRunning() Status { return Status{Running: true} }

// StatusStopped reports a clean exit or an operator-requested stop.
func StatusStopped() Status { return Status{Stopped: true} }

// StatusErrored reports an abnormal exit, carrying a human-readable cause.
func StatusErrored(msg string) Status { return Status{Errored: msg} }

// MarshalJSON renders the status the way the HTTP API and meta.json expect
// it: the string "running" or "stopped", or {"errored": "<message>"} for an
// abnormal exit.
func (s Status) MarshalJSON() ([]byte, error) {
	if s.Errored != "" {
		return json.Marshal(map[string]string{"errored": s.Errored})
	}
	if s.Running {
		return json.Marshal("running")
	}
	return json.Marshal("stopped")
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		switch str {
		case "running":
			*s = StatusRunning()
		default:
			*s = StatusStopped()
		}
		return nil
	}
	var obj struct {
		Errored string `json:"errored"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = StatusErrored(obj.Errored)
	return nil
}

func (s Status) String() string {
	switch {
	case s.Errored != "":
		return "errored: " + s.Errored
	case s.Running:
		return "running"
	default:
		return "stopped"
	}
}

// Meta is the durable description of a session: everything needed to list
// it, resume talking to it, and rehydrate it after a restart. It is
// persisted as meta.json alongside the session's output.log.
type Meta struct {
	ID         ID        `json:"id"`
	Name       string    `json:"name"`
	Tool       ToolKind  `json:"tool"`
	Status     Status    `json:"status"`
	WorkingDir string    `json:"working_dir"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	PID        *int      `json:"pid"`
	ExtraArgs  []string  `json:"extra_args,omitempty"`
}
