// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"regexp"
	"strings"
)

var (
	localCommandCaveatRe = regexp.MustCompile(`(?s)<local-command-caveat>.*?</local-command-caveat>`)
	commandNameRe        = regexp.MustCompile(`(?s)<command-name>.*?</command-name>`)
	commandStdoutRe      = regexp.MustCompile(`(?s)<local-command-stdout>(.*?)</local-command-stdout>`)
	optionLineRe         = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.+)$`)
)

// applyLocalCommand recognizes local-command wrapper tags in user text and
// consumes them instead of letting them become a plain user message. It
// returns true when the text was fully handled this way.
func (p *Parser) applyLocalCommand(ev rawEvent, text string) bool {
	if localCommandCaveatRe.MatchString(text) || commandNameRe.MatchString(text) {
		p.clearLocalCommandPending()
		return true
	}

	m := commandStdoutRe.FindStringSubmatch(text)
	if m == nil {
		return false
	}

	p.clearLocalCommandPending()

	body := normalizeTerminalTail([]byte(m[1]))
	lines := splitNonEmptyLines(body)

	switch {
	case strings.Contains(body, "Enabled plan mode"):
		p.permissionMode = "plan"
		p.viewMode = "plan"
	case strings.Contains(body, "Disabled plan mode"):
		p.permissionMode = "default"
		p.viewMode = "default"
	}

	if pq := questionFromLines(lines, "localcmd-"+ev.UUID); pq != nil {
		p.pendingQ = pq
	}

	p.push(Message{ID: p.nextID(ev.UUID), Role: RoleSystem, Kind: KindLocalCommand, Text: body})
	return true
}

func (p *Parser) clearLocalCommandPending() {
	if p.pendingQ != nil && strings.HasPrefix(p.pendingQ.ToolUseID, "localcmd-") {
		p.pendingQ = nil
	}
}

func splitNonEmptyLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func looksLikePrompt(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(line, "?") ||
		strings.Contains(lower, "choose") ||
		strings.Contains(lower, "select") ||
		strings.Contains(lower, "option")
}

// questionFromLines looks for two or more numbered menu options in lines
// and, if the line(s) preceding them look like a prompt, builds a pending
// question from them.
func questionFromLines(lines []string, toolUseID string) *PendingQuestion {
	var optionLines []int
	for i, l := range lines {
		if optionLineRe.MatchString(l) {
			optionLines = append(optionLines, i)
		}
	}
	if len(optionLines) < 2 {
		return nil
	}

	var promptLines []string
	for i := 0; i < optionLines[0]; i++ {
		if looksLikePrompt(lines[i]) {
			promptLines = append(promptLines, lines[i])
		}
	}
	if len(promptLines) == 0 {
		return nil
	}

	var opts []Option
	for _, idx := range optionLines {
		m := optionLineRe.FindStringSubmatch(lines[idx])
		if m == nil {
			continue
		}
		opts = append(opts, Option{Label: m[1], Description: strings.TrimSpace(m[2])})
	}

	return &PendingQuestion{
		ToolUseID: toolUseID,
		Questions: []Question{{
			Prompt:  strings.Join(promptLines, " "),
			Options: opts,
		}},
	}
}
