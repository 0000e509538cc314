// Package audio plays the song and serves as the session's clock.
//
// The decoded stream runs through a loop-aware streamer, a resampler for the
// practice rate and a pause control before reaching the device. The playback
// position reported by CurrentTime is the decoder position, so it trails what
// is audible by at most one device buffer.
package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"github.com/okian/groove/pkg/logger"
)

// BeepTransport implements the game transport on faiface/beep.
type BeepTransport struct {
	dev     Device
	log     logger.Logger
	quality int
	buffer  time.Duration

	format    beep.Format
	loop      *loopStreamer
	resampler *beep.Resampler
	ctrl      *beep.Ctrl

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	once    sync.Once
}

// Open decodes an mp3, ogg or wav file.
func Open(path string, opts ...Option) (*BeepTransport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".ogg":
		s, format, err = vorbis.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return New(s, format, opts...), nil
}

// New wraps an already decoded stream.
func New(s beep.StreamSeekCloser, format beep.Format, opts ...Option) *BeepTransport {
	t := &BeepTransport{
		dev:     Speaker(),
		log:     logger.Nop(),
		quality: defaultQuality,
		buffer:  defaultBuffer,
		format:  format,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.loop = &loopStreamer{src: s, onEnd: t.finish}
	t.resampler = beep.ResampleRatio(t.quality, 1, t.loop)
	t.ctrl = &beep.Ctrl{Streamer: t.resampler}
	return t
}

// Length returns the song length.
func (t *BeepTransport) Length() time.Duration {
	return t.format.SampleRate.D(t.loop.src.Len())
}

// Play opens the device and starts playback from the current position.
func (t *BeepTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return ErrAlreadyPlaying
	}
	if err := t.dev.Init(t.format.SampleRate, t.format.SampleRate.N(t.buffer)); err != nil {
		return fmt.Errorf("init audio device: %w", err)
	}
	t.started = true
	t.dev.Play(t.ctrl)
	t.log.Info(context.Background(), "playback started",
		logger.Int("sample_rate", int(t.format.SampleRate)),
		logger.Duration("length", t.Length()),
	)
	return nil
}

// CurrentTime returns the decoder position.
func (t *BeepTransport) CurrentTime() time.Duration {
	t.dev.Lock()
	defer t.dev.Unlock()
	return t.format.SampleRate.D(t.loop.src.Position())
}

// Pause silences output and freezes the clock.
func (t *BeepTransport) Pause() {
	t.dev.Lock()
	t.ctrl.Paused = true
	t.dev.Unlock()
}

// Resume continues after Pause.
func (t *BeepTransport) Resume() {
	t.dev.Lock()
	t.ctrl.Paused = false
	t.dev.Unlock()
}

// Seek moves the playback position, clamped to the song.
func (t *BeepTransport) Seek(to time.Duration) {
	t.dev.Lock()
	defer t.dev.Unlock()
	n := t.loop.src.Len()
	pos := min(max(t.format.SampleRate.N(to), 0), max(n-1, 0))
	if err := t.loop.src.Seek(pos); err != nil {
		t.log.Warn(context.Background(), "seek failed", logger.Duration("to", to), logger.Error(err))
	}
}

// SetRate changes playback speed; 0.5 plays at half speed.
func (t *BeepTransport) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	t.dev.Lock()
	t.resampler.SetRatio(rate)
	t.dev.Unlock()
}

// SetLoopRange wraps playback to start whenever it reaches end.
func (t *BeepTransport) SetLoopRange(start, end time.Duration) {
	t.dev.Lock()
	defer t.dev.Unlock()
	t.loop.start = max(t.format.SampleRate.N(start), 0)
	t.loop.end = min(t.format.SampleRate.N(end), t.loop.src.Len())
}

// ClearLoop removes the loop range.
func (t *BeepTransport) ClearLoop() {
	t.dev.Lock()
	t.loop.start, t.loop.end = 0, 0
	t.dev.Unlock()
}

// Stop halts playback and releases the decoder. Done is not closed by Stop.
func (t *BeepTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.started {
		t.dev.Clear()
	}
	t.dev.Lock()
	t.ctrl.Streamer = nil
	t.dev.Unlock()
	if err := t.loop.src.Close(); err != nil {
		t.log.Warn(context.Background(), "closing audio stream", logger.Error(err))
	}
}

// Done is closed when the song plays to its end.
func (t *BeepTransport) Done() <-chan struct{} { return t.done }

func (t *BeepTransport) finish() {
	t.once.Do(func() { close(t.done) })
}

// loopStreamer reads from src, wrapping to start when a loop range is set
// and calling onEnd once the source is exhausted outside a loop. All fields
// are guarded by the device lock.
type loopStreamer struct {
	src        beep.StreamSeekCloser
	start, end int
	onEnd      func()
	err        error
}

func (l *loopStreamer) looping() bool { return l.end > l.start }

func (l *loopStreamer) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) {
		want := len(samples)
		if l.looping() {
			pos := l.src.Position()
			if pos >= l.end {
				if l.err = l.src.Seek(l.start); l.err != nil {
					break
				}
				continue
			}
			want = min(want, n+l.end-pos)
		}

		m, ok := l.src.Stream(samples[n:want])
		n += m
		if ok && m > 0 {
			continue
		}
		// source exhausted
		if l.looping() && l.src.Position() > l.start {
			if l.err = l.src.Seek(l.start); l.err != nil {
				break
			}
			continue
		}
		l.onEnd()
		return n, n > 0
	}
	// keep the reported position inside the loop
	if l.err == nil && l.looping() && l.src.Position() >= l.end {
		l.err = l.src.Seek(l.start)
	}
	return n, l.err == nil || n > 0
}

func (l *loopStreamer) Err() error {
	if l.err != nil {
		return l.err
	}
	return l.src.Err()
}
