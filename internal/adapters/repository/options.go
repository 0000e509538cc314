package repository

import (
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/pkg/logger"
)

const defaultKeyPrefix = "groove"

type options struct {
	historyLimit int
	keyPrefix    string
	logger       logger.Logger
}

func newOptions(opts []Option) options {
	o := options{
		historyLimit: model.HistoryLimit,
		keyPrefix:    defaultKeyPrefix,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a store.
type Option func(*options)

// WithHistoryLimit sets how many runs are kept per song.
func WithHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
