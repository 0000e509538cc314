package feeder

import "time"

// Defaults.
const (
	DefaultBaseURL       = "http://localhost:9080"
	DefaultPoseRate      = 30
	DefaultTimeout       = 30 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultVerifyTimeout = 10 * time.Second
)

// verifyRetry is the history poll period while waiting for the run.
const verifyRetry = 50 * time.Millisecond

// Pose acknowledgements.
const (
	ackAccepted = "accepted"
	ackIgnored  = "ignored"
)
