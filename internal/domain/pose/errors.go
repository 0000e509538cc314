package pose

import "errors"

// Sentinel kinds for pose errors.
var (
	ErrUnknownJoint = errors.New("unknown joint")
)
