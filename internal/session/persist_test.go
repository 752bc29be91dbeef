// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRehydrate_RunningSessionBecomesStopped(t *testing.T) {
	base := t.TempDir()
	id := NewID()
	dir := sessionDir(base, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	pid := 99999
	orig := Meta{
		ID:         id,
		Name:       "leftover",
		Tool:       ToolClaude,
		Status:     StatusRunning(),
		WorkingDir: "/tmp",
		PID:        &pid,
	}
	writeMeta(dir, orig)

	metas, err := rehydrate(base)
	require.NoError(t, err)
	require.Len(t, metas, 1)

	assert.True(t, metas[0].Status.Stopped)
	assert.Nil(t, metas[0].PID)
	assert.True(t, metas[0].UpdatedAt.After(orig.CreatedAt) || metas[0].UpdatedAt.Equal(orig.CreatedAt))
}

func TestRehydrate_SkipsUnparsableMeta(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "lineforge", "sessions", "not-a-uuid")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "meta.json"), []byte("{not json"), 0o644))

	metas, err := rehydrate(base)
	require.NoError(t, err)
	assert.Empty(t, metas)
}
