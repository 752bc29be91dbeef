// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transcript reconstructs a chat snapshot from a Claude Code
// session's on-disk JSON-lines transcript and, where the transcript itself
// carries no pending question, a tail of the raw terminal output.
package transcript

import "time"

// Snapshot is the parser's complete reconstruction of chat state.
type Snapshot struct {
	Available       bool             `json:"available"`
	TranscriptPath  string           `json:"transcript_path,omitempty"`
	PermissionMode  string           `json:"permission_mode"`
	ViewMode        string           `json:"view_mode"`
	State           string           `json:"state"`
	StatusLabel     string           `json:"status_label"`
	Messages        []Message        `json:"messages"`
	PendingQuestion *PendingQuestion `json:"pending_question,omitempty"`
	Plan            *Plan            `json:"plan,omitempty"`
}

// Role identifies who or what produced a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Kind further classifies a message's content.
type Kind string

const (
	KindText               Kind = "text"
	KindThinking           Kind = "thinking"
	KindToolUse            Kind = "tool_use"
	KindToolResult         Kind = "tool_result"
	KindAskUserQuestion    Kind = "ask_user_question"
	KindLocalCommand       Kind = "local_command"
)

// Message is one entry in the reconstructed chat transcript.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Kind      Kind       `json:"kind"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`
}

// PendingQuestion describes a question the tool is blocking on.
type PendingQuestion struct {
	ToolUseID string     `json:"tool_use_id"`
	Questions []Question `json:"questions"`
}

// Question is a single question within a pending question set.
type Question struct {
	Header      string   `json:"header"`
	Prompt      string   `json:"prompt"`
	Options     []Option `json:"options"`
	MultiSelect bool     `json:"multi_select"`
}

// Option is one selectable answer to a Question.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Plan is a captured plan, wherever in the transcript it was found.
type Plan struct {
	Source   string   `json:"source"`
	Items    []string `json:"items"`
	Markdown string   `json:"markdown,omitempty"`
}

const (
	maxMessages   = 400
	maxTextLength = 6000
)
