// Package feeder drives a running groove server over HTTP with a synthetic
// dancer: it starts a session, streams poses timed against the server's
// song clock and checks that the finished run reached the history and the
// board.
package feeder

import (
	"time"

	"github.com/okian/groove/internal/simulate"
	"github.com/okian/groove/pkg/logger"
)

// Config holds configuration for a feed run.
type Config struct {
	BaseURL          string        // Base URL of the service
	ChoreographyPath string        // Local choreography, sent inline
	AudioPath        string        // Audio path on the server, optional
	PoseRate         int           // Poses per second
	Jitter           float64       // Max coordinate noise
	Lag              time.Duration // How far the dancer trails the music
	Dropouts         []simulate.Window
	Seed             uint64
	Timeout          time.Duration // HTTP request timeout
	PollInterval     time.Duration // Session status poll period
	VerifyTimeout    time.Duration // How long to wait for the run to be stored
	Log              logger.Logger
}

// Defaults returns a Config pointed at a local server.
func Defaults() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		PoseRate:      DefaultPoseRate,
		Timeout:       DefaultTimeout,
		PollInterval:  DefaultPollInterval,
		VerifyTimeout: DefaultVerifyTimeout,
	}
}

// Stats holds feed statistics.
type Stats struct {
	PosesSent     int
	PosesAccepted int
	PosesIgnored  int
	PosesFailed   int
	StatusPolls   int

	SongMD5    string
	RunID      string
	Score      int
	MaxCombo   int
	StarRating int
	Rank       int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
