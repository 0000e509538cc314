package feeder

import "errors"

var (
	ErrUnhealthy      = errors.New("service unhealthy")
	ErrUnexpectedCode = errors.New("unexpected status code")
	ErrNotRecorded    = errors.New("run not recorded")
	ErrInconsistent   = errors.New("board inconsistent with history")
)
