// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Parser consumes transcript events one line at a time and accumulates chat
// state. It never returns an error from a malformed line: it discards the
// line and keeps going, matching the source transcript format's own
// tolerance for partial writes.
type Parser struct {
	permissionMode string
	viewMode       string
	pendingQ       *PendingQuestion
	plan           *Plan
	progressHint   string
	lastEventType  string
	messages       []Message
	seq            int
}

// NewParser creates an empty parser with the default (non-plan, non-yolo)
// view mode.
func NewParser() *Parser {
	return &Parser{viewMode: "default"}
}

type rawEvent struct {
	Type           string          `json:"type"`
	UUID           string          `json:"uuid"`
	PermissionMode string          `json:"permissionMode"`
	PlanContent    string          `json:"planContent"`
	Message        json.RawMessage `json:"message"`
	ToolUseResult  json.RawMessage `json:"toolUseResult"`
	Data           json.RawMessage `json:"data"`
}

type rawMessage struct {
	Content json.RawMessage `json:"content"`
}

type rawBlock struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

type rawAskQuestionInput struct {
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Header      string      `json:"header"`
	Prompt      string      `json:"question"`
	MultiSelect bool        `json:"multiSelect"`
	Options     []rawOption `json:"options"`
}

type rawOption struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

type rawExitPlanInput struct {
	Plan string `json:"plan"`
}

type rawToolUseResult struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

type rawProgressData struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// ProjectKey derives the project-scoped directory name the tool uses under
// its transcripts root: the working directory with every non-alphanumeric
// byte replaced one-for-one with '-'.
func ProjectKey(workingDir string) string {
	b := []byte(workingDir)
	out := make([]byte, len(b))
	for i, c := range b {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out[i] = c
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

// TranscriptPath returns the expected path to a session's transcript file
// under the Claude CLI's project-keyed layout.
func TranscriptPath(homeDir, workingDir, sessionID string) string {
	return filepath.Join(homeDir, ".claude", "projects", ProjectKey(workingDir), sessionID+".jsonl")
}

// FindTranscript returns TranscriptPath if it exists, else falls back to
// scanning every project subdirectory for a file named "<sessionID>.jsonl".
func FindTranscript(homeDir, workingDir, sessionID string) (string, bool) {
	direct := TranscriptPath(homeDir, workingDir, sessionID)
	if _, err := os.Stat(direct); err == nil {
		return direct, true
	}

	root := filepath.Join(homeDir, ".claude", "projects")
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	want := sessionID + ".jsonl"
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(root, e.Name(), want)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// ParseFile reads a transcript file line by line and returns the
// accumulated parser. It never fails on malformed lines.
func ParseFile(path string) (*Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := NewParser()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		p.Ingest(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return p, fmt.Errorf("reading %s: %w", path, err)
	}
	return p, nil
}

// Ingest applies one transcript line to the parser's state. Empty or
// malformed lines are silently discarded.
func (p *Parser) Ingest(line []byte) {
	line = trimSpace(line)
	if len(line) == 0 {
		return
	}

	var ev rawEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return
	}

	if ev.PermissionMode != "" {
		p.permissionMode = ev.PermissionMode
		p.viewMode = normalizeViewMode(ev.PermissionMode)
	}
	if ev.PlanContent != "" {
		p.capturePlan("planContent", splitPlanItems(ev.PlanContent), ev.PlanContent)
	}

	if ev.Type != "progress" {
		p.progressHint = ""
	}

	switch ev.Type {
	case "assistant":
		p.ingestAssistant(ev)
	case "user":
		p.ingestUser(ev)
	case "progress":
		p.ingestProgress(ev)
	case "system":
		// permission-mode update only, already applied above
	}

	p.lastEventType = ev.Type
	p.trimMessages()
}

func normalizeViewMode(permissionMode string) string {
	switch permissionMode {
	case "plan":
		return "plan"
	case "bypassPermissions", "acceptEdits":
		return "yolo"
	default:
		return "default"
	}
}

func (p *Parser) nextID(eventUUID string) string {
	if eventUUID != "" {
		return eventUUID
	}
	p.seq++
	return fmt.Sprintf("msg-%d", p.seq)
}

func (p *Parser) push(m Message) {
	m.Text = normalizeText(m.Text)
	p.messages = append(p.messages, m)
}

func (p *Parser) trimMessages() {
	if len(p.messages) > maxMessages {
		p.messages = p.messages[len(p.messages)-maxMessages:]
	}
}

func (p *Parser) capturePlan(source string, items []string, markdown string) {
	p.plan = &Plan{Source: source, Items: items, Markdown: markdown}
}

func (p *Parser) ingestAssistant(ev rawEvent) {
	var msg rawMessage
	if err := json.Unmarshal(ev.Message, &msg); err != nil {
		return
	}
	var blocks []rawBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return
	}

	for _, b := range blocks {
		switch b.Type {
		case "text":
			p.push(Message{ID: p.nextID(ev.UUID), Role: RoleAssistant, Kind: KindText, Text: b.Text})
			if items := splitPlanItems(b.Text); len(items) >= 2 {
				p.capturePlan("assistant_text", items, "")
			}
		case "thinking":
			p.push(Message{ID: p.nextID(ev.UUID), Role: RoleAssistant, Kind: KindThinking, Text: b.Thinking})
		case "tool_use":
			p.push(Message{ID: p.nextID(ev.UUID), Role: RoleTool, Kind: KindToolUse, Text: "Using " + b.Name, ToolName: b.Name})
			p.handleToolUse(b)
		}
	}
}

func (p *Parser) handleToolUse(b rawBlock) {
	switch b.Name {
	case "AskUserQuestion":
		var input rawAskQuestionInput
		_ = json.Unmarshal(b.Input, &input)
		qs := make([]Question, 0, len(input.Questions))
		for _, q := range input.Questions {
			header := q.Header
			if header == "" {
				header = "Question"
			}
			opts := make([]Option, 0, len(q.Options))
			for _, o := range q.Options {
				opts = append(opts, Option{Label: o.Label, Description: o.Description})
			}
			qs = append(qs, Question{Header: header, Prompt: q.Prompt, Options: opts, MultiSelect: q.MultiSelect})
		}
		toolUseID := b.ID
		if toolUseID == "" {
			toolUseID = b.ToolUseID
		}
		p.pendingQ = &PendingQuestion{ToolUseID: toolUseID, Questions: qs}
	case "EnterPlanMode":
		p.permissionMode = "plan"
		p.viewMode = "plan"
	case "ExitPlanMode":
		p.viewMode = normalizeViewMode(p.permissionMode)
		var input rawExitPlanInput
		if err := json.Unmarshal(b.Input, &input); err == nil && input.Plan != "" {
			p.capturePlan("ExitPlanMode", splitPlanItems(input.Plan), input.Plan)
		}
	}
}

func (p *Parser) ingestUser(ev rawEvent) {
	var msg rawMessage
	if err := json.Unmarshal(ev.Message, &msg); err != nil {
		return
	}

	// Content may be a bare string or an array of blocks.
	var asString string
	if err := json.Unmarshal(msg.Content, &asString); err == nil {
		p.handleUserText(ev, asString)
		return
	}

	var blocks []rawBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return
	}
	for _, b := range blocks {
		switch b.Type {
		case "text":
			p.handleUserText(ev, b.Text)
		case "tool_result":
			p.handleToolResult(ev, b)
		}
	}
}

func (p *Parser) handleUserText(ev rawEvent, text string) {
	p.clearLocalCommandPending()
	if p.applyLocalCommand(ev, text) {
		return
	}
	p.push(Message{ID: p.nextID(ev.UUID), Role: RoleUser, Kind: KindText, Text: text})
}

func (p *Parser) handleToolResult(ev rawEvent, b rawBlock) {
	if p.pendingQ != nil && b.ToolUseID == p.pendingQ.ToolUseID {
		p.pendingQ = nil
	}

	text := contentText(b.Content)
	if text == "" {
		if b.IsError {
			text = "Tool call was rejected"
		} else {
			text = "Tool call completed"
		}
	}
	p.push(Message{ID: p.nextID(ev.UUID), Role: RoleTool, Kind: KindToolResult, Text: text, IsError: b.IsError})

	var tur rawToolUseResult
	if err := json.Unmarshal(ev.ToolUseResult, &tur); err == nil && tur.FilePath != "" {
		if strings.HasSuffix(tur.FilePath, ".md") && strings.Contains(tur.FilePath, "/.claude/plans/") {
			p.capturePlan("toolUseResult", splitPlanItems(tur.Content), tur.Content)
		}
	}
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var sb strings.Builder
		for _, b := range blocks {
			sb.WriteString(b.Text)
		}
		return sb.String()
	}
	return ""
}

func (p *Parser) ingestProgress(ev rawEvent) {
	var data rawProgressData
	if err := json.Unmarshal(ev.Data, &data); err != nil || data.Type != "agent_progress" {
		p.progressHint = ""
		return
	}
	var msg rawMessage
	if err := json.Unmarshal(data.Message, &msg); err != nil {
		return
	}
	var blocks []rawBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil || len(blocks) == 0 {
		return
	}
	if blocks[0].Type == "tool_use" {
		p.progressHint = "Running " + blocks[0].Name
	}
}

var numberedItemRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*(.+)$`)

func splitPlanItems(text string) []string {
	matches := numberedItemRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	items := make([]string, 0, len(matches))
	for _, m := range matches {
		items = append(items, strings.TrimSpace(m[1]))
	}
	return items
}

func trimSpace(b []byte) []byte {
	return []byte(strings.TrimSpace(string(b)))
}

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > maxTextLength {
		return string(runes[:maxTextLength]) + "…"
	}
	return s
}

// Snapshot finalizes the accumulated state into a Snapshot, deriving the
// overall session activity state and status label, and falling back to a
// terminal-tail scan for a pending question if the transcript never
// produced one.
func (p *Parser) Snapshot(sessionRunning bool, stoppedLabel string, transcriptPath string, terminalTail []byte) Snapshot {
	snap := Snapshot{
		Available:       true,
		TranscriptPath:  transcriptPath,
		PermissionMode:  p.permissionMode,
		ViewMode:        p.viewMode,
		Messages:        p.messages,
		PendingQuestion: p.pendingQ,
		Plan:            p.plan,
	}

	if snap.PendingQuestion == nil {
		if pq := scanTerminalForQuestion(terminalTail); pq != nil {
			snap.PendingQuestion = pq
		}
	}

	snap.State, snap.StatusLabel = deriveState(sessionRunning, stoppedLabel, snap.PendingQuestion, p.lastEventType, p.progressHint, p.messages)
	return snap
}

func deriveState(running bool, stoppedLabel string, pending *PendingQuestion, lastEventType, progressHint string, messages []Message) (string, string) {
	if !running {
		label := stoppedLabel
		if label == "" {
			label = "Session stopped"
		}
		return "stopped", label
	}
	if pending != nil {
		return "awaiting_input", "Waiting for your answer"
	}
	if lastEventType == "progress" && progressHint != "" {
		return "working", progressHint
	}
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		if last.Role == RoleUser {
			return "thinking", "Claude is thinking"
		}
		if last.Role == RoleAssistant && last.Kind == KindThinking {
			return "thinking", "Claude is reasoning"
		}
	}
	return "idle", "Ready"
}
