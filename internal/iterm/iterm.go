// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package iterm opens a freshly created session in a new iTerm2 window by
// shelling out to osascript. It is a thin, optional collaborator: nothing
// in the registry or HTTP surface depends on it succeeding.
package iterm

import (
	"fmt"
	"os/exec"

	"github.com/tonyjom/lineforge/internal/session"
)

const script = `
tell application "iTerm2"
    activate
    set newWindow to (create window with default profile)
    tell current session of newWindow
        write text "cd %s && lineforge attach %s"
    end tell
end tell
`

// Open launches a new iTerm2 window, cd's it into workingDir, and attaches
// to id. Errors are returned for the caller to log; failing to open a
// window never fails session creation.
func Open(id session.ID, workingDir string) error {
	cmd := exec.Command("osascript", "-e", fmt.Sprintf(script, workingDir, id))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %w: %s", err, out)
	}
	return nil
}
