package game_test

import (
	"context"
	"sync"
	"time"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/pose"
)

type fakeTransport struct {
	mu        sync.Mutex
	now       time.Duration
	playErr   error
	played    bool
	stopped   bool
	paused    bool
	rate      float64
	loopStart time.Duration
	loopEnd   time.Duration
	seeks     []time.Duration
	done      chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{rate: 1, done: make(chan struct{})}
}

func (f *fakeTransport) set(sec float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = time.Duration(sec * float64(time.Second))
}

func (f *fakeTransport) CurrentTime() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTransport) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = true
	return nil
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *fakeTransport) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

func (f *fakeTransport) Seek(to time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = to
	f.seeks = append(f.seeks, to)
}

func (f *fakeTransport) SetRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
}

func (f *fakeTransport) SetLoopRange(start, end time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loopStart, f.loopEnd = start, end
}

func (f *fakeTransport) ClearLoop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loopStart, f.loopEnd = 0, 0
}

func (f *fakeTransport) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTransport) Done() <-chan struct{} { return f.done }

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Enqueue(_ context.Context, e model.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

func (r *recorder) of(kind model.EventKind) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) beats(kind model.EventKind) []int {
	var out []int
	for _, e := range r.of(kind) {
		out = append(out, e.Beat)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func timeline() *choreo.Timeline {
	return choreo.NewTimeline(choreo.GenerateTemplate(choreo.TemplateOptions{SongMD5: "song", BPM: 120, Duration: 30}))
}

func detected(tl *choreo.Timeline, at float64) pose.Detected {
	return pose.Detected{Joints: tl.Frame(at).Joints, Confidence: 0.9, BodyCount: 1}
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
