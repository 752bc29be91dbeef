// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and default
// application for the session manager.
package config

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Tools    ToolsConfig    `json:"tools"`
	Sessions SessionsConfig `json:"sessions"`
	YoloMode bool           `json:"yolo_mode"`
	ITerm    ITermConfig    `json:"iterm"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int    `json:"port"`
	Bind string `json:"bind"`
}

// ToolsConfig configures which coding agent sessions launch by default.
type ToolsConfig struct {
	Default string `json:"default"`
	Path    string `json:"path"`
}

// SessionsConfig configures session storage and retention.
type SessionsConfig struct {
	Dirs             []string `json:"dirs"`
	LogRetentionDays int      `json:"log_retention_days"`
	MaxLogLines      int      `json:"max_log_lines"`
}

// ITermConfig configures the iTerm2 launch helper.
type ITermConfig struct {
	Enabled bool `json:"enabled"`
}

// LoggingConfig configures the application's own log output.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// applyDefaults sets default values for missing config fields, the way the
// teacher's loader does: zero-value fields are filled in after decode,
// never before.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 42067
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "127.0.0.1"
	}
	if cfg.Tools.Default == "" {
		cfg.Tools.Default = "claude"
	}
	if cfg.Sessions.LogRetentionDays == 0 {
		cfg.Sessions.LogRetentionDays = 7
	}
	if cfg.Sessions.MaxLogLines == 0 {
		cfg.Sessions.MaxLogLines = 10000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
