// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lineforge.hjson")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoader_LoadWithDefaultsFillsZeroValues(t *testing.T) {
	path := writeConfig(t, `{
  server: { port: 9000 }
}`)

	l := NewLoader()
	cfg, err := l.LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, "claude", cfg.Tools.Default)
	assert.Equal(t, 7, cfg.Sessions.LogRetentionDays)
	assert.Equal(t, 10000, cfg.Sessions.MaxLogLines)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoader_LoadPreservesExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
  server: { port: 9000, bind: "0.0.0.0" }
  yolo_mode: true
  tools: { default: "codex" }
}`)

	l := NewLoader()
	cfg, err := l.LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Bind)
	assert.True(t, cfg.YoloMode)
	assert.Equal(t, "codex", cfg.Tools.Default)
}

func TestLoader_FindConfigLooksInCWD(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lineforge.hjson"), []byte("{}"), 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)
	require.NoError(t, os.Chdir(dir))

	l := NewLoader()
	found, err := l.FindConfig()
	require.NoError(t, err)
	assert.Equal(t, "lineforge.hjson", filepath.Base(found))
}
