package audio

import (
	"time"

	"github.com/okian/groove/pkg/logger"
)

const (
	defaultQuality = 4
	defaultBuffer  = time.Second / 60
)

// Option configures a BeepTransport.
type Option func(*BeepTransport)

// WithDevice replaces the system speaker.
func WithDevice(d Device) Option {
	return func(t *BeepTransport) {
		if d != nil {
			t.dev = d
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(l logger.Logger) Option {
	return func(t *BeepTransport) {
		if l != nil {
			t.log = l
		}
	}
}

// WithResampleQuality sets the resampler quality (1 to 64).
func WithResampleQuality(q int) Option {
	return func(t *BeepTransport) {
		if q >= 1 && q <= 64 {
			t.quality = q
		}
	}
}

// WithBufferDuration sets the device buffer length.
func WithBufferDuration(d time.Duration) Option {
	return func(t *BeepTransport) {
		if d > 0 {
			t.buffer = d
		}
	}
}
