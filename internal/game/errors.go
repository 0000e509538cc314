package game

import "errors"

// Sentinel kinds for session errors.
var (
	ErrTransportStart    = errors.New("audio transport failed to start")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrSessionClosed     = errors.New("session closed")
	// ErrNoSession is returned by session owners when nothing is playing.
	ErrNoSession = errors.New("no active session")
	// ErrStartInProgress is returned while another session is counting in.
	ErrStartInProgress = errors.New("session start in progress")
)
