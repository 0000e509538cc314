// Package config defines process configuration and its loader.
//
// Conventions:
// - New() returns a Config filled with defaults; Load layers a YAML file and
//   GROOVE_ environment variables on top.
// - Validate reports every problem wrapped in ErrInvalidConfig.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Game loop.
	TickRateHz          int     `koanf:"tick_rate_hz"`
	LookaheadFrames     int     `koanf:"lookahead_frames"`
	CountInBeats        int     `koanf:"count_in_beats"`
	TrackingGraceMS     int     `koanf:"tracking_grace_ms"`
	MinPoseConfidence   float64 `koanf:"min_pose_confidence"`
	UpperBodyOnly       bool    `koanf:"upper_body_only"`
	PracticeRate        float64 `koanf:"practice_rate"`
	PracticePhraseBeats int     `koanf:"practice_phrase_beats"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of event consumers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets the size of the run-id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// HistoryLimit caps stored runs per song.
	HistoryLimit int `koanf:"history_limit"`
	// StoreBackend is one of memory, sqlite, redis.
	StoreBackend string `koanf:"store_backend"`
	SQLitePath   string `koanf:"sqlite_path"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisPrefix  string `koanf:"redis_prefix"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		TickRateHz:          60,
		LookaheadFrames:     4,
		CountInBeats:        4,
		TrackingGraceMS:     1000,
		MinPoseConfidence:   0.1,
		PracticeRate:        0.5,
		PracticePhraseBeats: 8,
		EventQueueSize:      4096,
		WorkerCount:         min(runtime.NumCPU(), 4),
		DedupeSize:          10_000,
		HistoryLimit:        20,
		StoreBackend:        BackendMemory,
		SQLitePath:          "groove.db",
		RedisAddr:           "localhost:6379",
		RedisPrefix:         "groove",
		MaxLeaderboardLimit: 100,
	}
}

// TrackingGrace returns the tracking grace window as a duration.
func (c *Config) TrackingGrace() time.Duration {
	return time.Duration(c.TrackingGraceMS) * time.Millisecond
}

// Validate checks the values a component cannot default on its own.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be positive, got %d", c.TickRateHz))
	}
	if c.CountInBeats < 0 {
		errs = append(errs, fmt.Errorf("count_in_beats must not be negative, got %d", c.CountInBeats))
	}
	if c.MinPoseConfidence < 0 || c.MinPoseConfidence > 1 {
		errs = append(errs, fmt.Errorf("min_pose_confidence must be in [0,1], got %g", c.MinPoseConfidence))
	}
	if c.PracticeRate <= 0 || c.PracticeRate > 1 {
		errs = append(errs, fmt.Errorf("practice_rate must be in (0,1], got %g", c.PracticeRate))
	}
	if c.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit))
	}
	if !slices.Contains([]string{BackendMemory, BackendSQLite, BackendRedis}, c.StoreBackend) {
		errs = append(errs, fmt.Errorf("unknown store_backend %q", c.StoreBackend))
	}
	if c.StoreBackend == BackendSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite_path must not be empty"))
	}
	if c.StoreBackend == BackendRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("redis_addr must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
