package scoring

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithUpperBodyOnly selects the reduced upper-body bone set.
func WithUpperBodyOnly(enabled bool) Option {
	return func(e *Engine) {
		e.upperBodyOnly = enabled
	}
}

// WithScoreCap overrides the total score cap. Non-positive values are ignored.
func WithScoreCap(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.scoreCap = limit
		}
	}
}

// WithObserver registers a callback invoked, under the engine lock, after
// every evaluation. Used for metrics.
func WithObserver(fn func(Result)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}
