// Package config loads sqlbench configuration from defaults, an optional
// sqlbench.yaml, SQLBENCH_* environment variables and command-line flags.
package config

import (
	"log/slog"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultTimeoutMS = 5000
	DefaultWorkers   = 4
	DefaultAddr      = ":8000"
	DefaultLogLevel  = "info"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultHistory   = ".sqlbench/history.db"
)

// Config holds all sqlbench configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Execution ExecutionConfig `koanf:"execution"`
	Batch     BatchConfig     `koanf:"batch"`
	Server    ServerConfig    `koanf:"server"`
	History   HistoryConfig   `koanf:"history"`
	LogLevel  string          `koanf:"log_level"`
	Output    string          `koanf:"output"`
}

// DatabaseConfig selects the database the execution verifier runs against.
// URL wins over Type when both are set.
type DatabaseConfig struct {
	URL     string            `koanf:"url"`
	Type    string            `koanf:"type"`
	Path    string            `koanf:"path"`
	Options map[string]string `koanf:"options"`
	Params  map[string]any    `koanf:"params"`
}

// Configured reports whether a database was specified.
func (d DatabaseConfig) Configured() bool {
	return d.URL != "" || d.Type != ""
}

// ExecutionConfig controls the execution verifier.
type ExecutionConfig struct {
	TimeoutMS int  `koanf:"timeout_ms"`
	Enabled   bool `koanf:"enabled"`
}

// Timeout returns the per-query timeout.
func (e ExecutionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// BatchConfig controls batch evaluation.
type BatchConfig struct {
	Workers int `koanf:"workers"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// HistoryConfig locates the benchmark run history database.
type HistoryConfig struct {
	Path string `koanf:"path"`
}

// Level maps LogLevel to a slog level. Unknown names map to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when nothing else is loaded.
func Default() *Config {
	return &Config{
		Execution: ExecutionConfig{TimeoutMS: DefaultTimeoutMS, Enabled: true},
		Batch:     BatchConfig{Workers: DefaultWorkers},
		Server:    ServerConfig{Addr: DefaultAddr},
		History:   HistoryConfig{Path: DefaultHistory},
		LogLevel:  DefaultLogLevel,
		Output:    DefaultOutput,
	}
}
