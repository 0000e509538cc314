package choreo

import "github.com/okian/groove/pkg/logger"

// Option configures a Timeline.
type Option func(*Timeline)

// WithLogger sets the logger used to report sanitization of malformed input.
func WithLogger(l logger.Logger) Option {
	return func(t *Timeline) {
		if l != nil {
			t.log = l
		}
	}
}
