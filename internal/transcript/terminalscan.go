// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"regexp"
	"strconv"
	"strings"
)

const terminalTailChars = 25000

var menuItemRe = regexp.MustCompile(`^\s*[❯>›•]?\s*(\d+)[.)]\s*(.+)$`)

// scanTerminalForQuestion looks for a numbered menu in the tail of raw
// terminal output, used only when the transcript itself carried no pending
// question (e.g. the tool is waiting on a prompt it never logged).
func scanTerminalForQuestion(raw []byte) *PendingQuestion {
	if len(raw) == 0 {
		return nil
	}

	tail := raw
	if len(tail) > terminalTailChars*4 {
		tail = tail[len(tail)-terminalTailChars*4:]
	}
	text := normalizeTerminalTail(tail)
	runes := []rune(text)
	if len(runes) > terminalTailChars {
		runes = runes[len(runes)-terminalTailChars:]
		text = string(runes)
	}

	lines := strings.Split(text, "\n")

	firstItemLine := -1
	for i := len(lines) - 1; i >= 0; i-- {
		m := menuItemRe.FindStringSubmatch(lines[i])
		if m != nil && m[1] == "1" {
			firstItemLine = i
			break
		}
	}
	if firstItemLine == -1 {
		return nil
	}

	seen := map[string]bool{}
	var opts []Option
	for i := firstItemLine; i < len(lines) && len(opts) < 12; i++ {
		m := menuItemRe.FindStringSubmatch(lines[i])
		if m == nil {
			if len(opts) > 0 {
				break
			}
			continue
		}
		num := m[1]
		if seen[num] {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		if n != len(opts)+1 {
			break
		}
		seen[num] = true
		opts = append(opts, Option{Label: strings.TrimSpace(m[2])})
	}
	if len(opts) < 2 {
		return nil
	}

	start := firstItemLine - 8
	if start < 0 {
		start = 0
	}
	var promptLines []string
	for i := start; i <= firstItemLine; i++ {
		lower := strings.ToLower(lines[i])
		if strings.Contains(lines[i], "?") ||
			strings.Contains(lower, "would you like to") ||
			strings.Contains(lower, "ready to execute") {
			promptLines = append(promptLines, strings.TrimSpace(lines[i]))
		}
	}
	if len(promptLines) == 0 {
		return nil
	}

	return &PendingQuestion{
		ToolUseID: "terminal-choice",
		Questions: []Question{{
			Prompt:  strings.Join(promptLines, " "),
			Options: opts,
		}},
	}
}
