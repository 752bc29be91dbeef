// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// sessionsDir returns <base>/lineforge/sessions, creating it if necessary.
func sessionsDir(base string) (string, error) {
	dir := filepath.Join(base, "lineforge", "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func sessionDir(base string, id ID) string {
	return filepath.Join(base, "lineforge", "sessions", id.String())
}

func metaPath(sessionDir string) string {
	return filepath.Join(sessionDir, "meta.json")
}

func outputLogPath(sessionDir string) string {
	return filepath.Join(sessionDir, "output.log")
}

// writeMeta persists meta.json as pretty JSON. I/O errors are logged, never
// returned: persistence failures never abort an in-flight session.
func writeMeta(dir string, m Meta) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("session: creating %s: %v", dir, err)
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.Printf("session: marshaling meta.json: %v", err)
		return
	}
	if err := os.WriteFile(metaPath(dir), data, 0o644); err != nil {
		log.Printf("session: writing meta.json: %v", err)
	}
}

func readMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// rehydrate scans the sessions directory on server start. Every
// subdirectory with a parseable meta.json whose status is Running is
// rewritten to Stopped with no pid, since the process backing it died with
// the previous server instance. output.log is left untouched. Parse
// failures are logged and skipped; no process is revived.
func rehydrate(base string) ([]Meta, error) {
	dir, err := sessionsDir(base)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var metas []Meta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sdir := filepath.Join(dir, e.Name())
		m, err := readMeta(metaPath(sdir))
		if err != nil {
			log.Printf("session: skipping %s: %v", sdir, err)
			continue
		}
		if m.Status.Running {
			m.Status = StatusStopped()
			m.PID = nil
			m.UpdatedAt = time.Now().UTC()
			writeMeta(sdir, m)
		}
		metas = append(metas, m)
	}
	return metas, nil
}
