package audio

import "errors"

// Sentinel kinds for audio errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrAlreadyPlaying    = errors.New("transport already started")
)
