package feeder

import (
	"sync"
	"time"

	"github.com/okian/groove/internal/game"
)

// remoteClock estimates the server's song position from periodic status
// polls, advancing it locally between polls.
type remoteClock struct {
	mu      sync.Mutex
	at      time.Duration
	polled  time.Time
	rate    float64
	running bool
	now     func() time.Time
}

func newRemoteClock(now func() time.Time) *remoteClock {
	if now == nil {
		now = time.Now
	}
	return &remoteClock{rate: 1, now: now}
}

// update resyncs to a polled status.
func (c *remoteClock) update(st game.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = time.Duration(st.AudioTime * float64(time.Second))
	c.polled = c.now()
	switch st.Phase {
	case game.PhasePlaying:
		c.running, c.rate = true, 1
	case game.PhasePractice:
		c.running, c.rate = true, game.DefaultPracticeRate
	default:
		c.running = false
	}
}

func (c *remoteClock) CurrentTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.at
	}
	return c.at + time.Duration(float64(c.now().Sub(c.polled))*c.rate)
}
