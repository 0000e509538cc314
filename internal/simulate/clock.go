// Package simulate stands in for the camera and the speaker: a wall-clock
// driven audio transport and a synthetic dancer that follows the
// choreography. Used for autoplay demos and end-to-end tests.
package simulate

import (
	"sync"
	"time"
)

// Clock is a silent transport whose position advances with a time source.
// Done closes lazily: the first CurrentTime call at or past the length
// closes it, which the session's ticker guarantees.
type Clock struct {
	mu        sync.Mutex
	now       func() time.Time
	length    time.Duration
	base      time.Duration
	anchor    time.Time
	rate      float64
	running   bool
	loopStart time.Duration
	loopEnd   time.Duration
	done      chan struct{}
	once      sync.Once
}

// NewClock returns a stopped clock for a song of the given length. A nil
// now uses time.Now.
func NewClock(length time.Duration, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now, length: length, rate: 1, done: make(chan struct{})}
}

// position computes the current position. Caller holds c.mu.
func (c *Clock) position() time.Duration {
	pos := c.base
	if c.running {
		pos += time.Duration(float64(c.now().Sub(c.anchor)) * c.rate)
	}
	if span := c.loopEnd - c.loopStart; span > 0 && pos >= c.loopEnd {
		pos = c.loopStart + (pos-c.loopStart)%span
	}
	return min(pos, c.length)
}

// rebase folds elapsed time into base. Caller holds c.mu.
func (c *Clock) rebase() {
	c.base = c.position()
	c.anchor = c.now()
}

// Play starts the clock.
func (c *Clock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = c.now()
	c.running = true
	return nil
}

// CurrentTime returns the position, closing Done at the end of the song.
func (c *Clock) CurrentTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := c.position()
	if pos >= c.length {
		c.running = false
		c.base = c.length
		c.once.Do(func() { close(c.done) })
	}
	return pos
}

// Pause freezes the position.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebase()
	c.running = false
}

// Resume continues after Pause.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = c.now()
	c.running = true
}

// Seek jumps to a position.
func (c *Clock) Seek(to time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = min(max(to, 0), c.length)
	c.anchor = c.now()
}

// SetRate changes how fast song time passes.
func (c *Clock) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebase()
	c.rate = rate
}

// SetLoopRange wraps the position into [start, end).
func (c *Clock) SetLoopRange(start, end time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebase()
	c.loopStart, c.loopEnd = start, end
}

// ClearLoop removes the loop range.
func (c *Clock) ClearLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebase()
	c.loopStart, c.loopEnd = 0, 0
}

// Stop freezes the clock for good.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebase()
	c.running = false
}

// Done is closed once the song has played to its end.
func (c *Clock) Done() <-chan struct{} { return c.done }
