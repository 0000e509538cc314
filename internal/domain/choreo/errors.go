package choreo

import "errors"

// Sentinel kinds for choreography errors.
var (
	ErrEmptyChoreography = errors.New("choreography has no frames")
	ErrNonMonotonic      = errors.New("frame timestamps are not strictly increasing")
	ErrInvalidBPM        = errors.New("bpm must be positive")
	ErrDecode            = errors.New("decode choreography")
)
