package game

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/pose"
	"github.com/okian/groove/internal/domain/scoring"
	"github.com/okian/groove/pkg/logger"
	"github.com/okian/groove/pkg/metrics"
)

// Session is one play-through of a song. The timeline is read-only; the
// scoring engine is owned by the session and only mutated from Tick.
type Session struct {
	id        string
	tl        *choreo.Timeline
	engine    *scoring.Engine
	transport Transport
	log       logger.Logger
	pub       Publisher
	renderer  Renderer
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	tickInterval  time.Duration
	lookahead     int
	countIn       int
	grace         time.Duration
	minConfidence float64
	practiceRate  float64
	phraseBeats   int
	catchUp       int

	latest atomic.Pointer[sample]
	closed atomic.Bool

	mu           sync.Mutex
	phase        Phase
	lastBeat     int
	lastAt       float64
	graceFrom    time.Time
	trackingLost bool
	display      Display

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func newSession(tl *choreo.Timeline, engine *scoring.Engine, transport Transport, opts ...Option) *Session {
	s := &Session{
		id:            uuid.NewString(),
		tl:            tl,
		engine:        engine,
		transport:     transport,
		log:           logger.Nop(),
		pub:           nopPublisher{},
		renderer:      nopRenderer{},
		now:           time.Now,
		sleep:         sleepCtx,
		tickInterval:  time.Second / DefaultTickRate,
		lookahead:     DefaultLookahead,
		countIn:       DefaultCountInBeats,
		grace:         DefaultTrackingGrace,
		minConfidence: DefaultMinConfidence,
		practiceRate:  DefaultPracticeRate,
		phraseBeats:   DefaultPracticePhraseBeats,
		catchUp:       DefaultCatchUpBeats,
		lastBeat:      -1,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.String("session", s.id), logger.String("song", tl.SongMD5()))
	return s
}

// Start runs the count-in and starts audio. If the transport fails to start
// no session is returned and the error wraps ErrTransportStart. Start blocks
// for the count-in and honors ctx cancellation during it.
func Start(ctx context.Context, tl *choreo.Timeline, engine *scoring.Engine, transport Transport, opts ...Option) (*Session, error) {
	if tl == nil || engine == nil {
		return nil, fmt.Errorf("start session: timeline and engine are required")
	}
	if transport == nil {
		return nil, fmt.Errorf("%w: no transport", ErrTransportStart)
	}
	s := newSession(tl, engine, transport, opts...)
	engine.Reset()

	if err := s.runCountIn(ctx); err != nil {
		s.abort()
		return nil, fmt.Errorf("count-in: %w", err)
	}

	if err := transport.Play(); err != nil {
		s.abort()
		s.log.Error(ctx, "audio transport failed to start", logger.Error(err))
		metrics.RecordErrorByComponent("game", "transport_start")
		return nil, fmt.Errorf("%w: %w", ErrTransportStart, err)
	}

	s.mu.Lock()
	at := transport.CurrentTime().Seconds()
	s.lastBeat = tl.Beat(at) - 1
	s.lastAt = at
	s.graceFrom = s.now()
	s.setPhase(ctx, Playing{})
	s.mu.Unlock()

	s.log.Info(ctx, "session started",
		logger.Float64("bpm", tl.BPM()),
		logger.Float64("duration", tl.Duration()),
		logger.Int("keyframes", tl.Len()),
	)
	return s, nil
}

func (s *Session) runCountIn(ctx context.Context) error {
	interval := secondsToDuration(s.tl.BeatInterval())
	for remaining := s.countIn; remaining > 0; remaining-- {
		s.mu.Lock()
		s.setPhase(ctx, CountIn{Remaining: remaining})
		s.publish(ctx, model.Event{Kind: model.KindBeat, Beat: -remaining})
		s.display = Display{
			SessionID: s.id,
			Phase:     PhaseCountIn,
			Beat:      -remaining,
			Current:   s.tl.Frame(0),
			Upcoming:  s.tl.Upcoming(0, s.lookahead),
			Score:     s.engine.Snapshot(),
		}
		s.renderer.Render(s.display)
		s.mu.Unlock()

		if err := s.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Timeline returns the choreography being played.
func (s *Session) Timeline() *choreo.Timeline { return s.tl }

// Done is closed once the session has ended or been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Tick advances the session by one frame: it samples the audio clock, renders
// the interpolated frame and lookahead, and scores every beat boundary crossed
// since the previous tick exactly once. It does nothing unless the session is
// Playing or Practicing.
func (s *Session) Tick() {
	started := time.Now()
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}

	var practice *Practice
	switch ph := s.phase.(type) {
	case Playing:
	case Practice:
		practice = &ph
	default:
		return
	}

	at := s.transport.CurrentTime().Seconds()
	if practice != nil && at >= practice.End {
		s.transport.Seek(secondsToDuration(practice.Start))
		at = practice.Start
		s.lastBeat = practice.StartBeat - 1
	}
	beat := s.tl.Beat(at)
	// clock moved backwards (loop wrap or seek): the landing beat is due again
	if at+s.tl.BeatInterval()/2 < s.lastAt {
		s.lastBeat = beat - 1
	}
	s.lastAt = at

	frame := s.tl.Frame(at)
	lost := s.updateTracking(ctx, s.now(), at, beat)
	if beat > s.lastBeat {
		s.scoreBeats(ctx, beat, at, frame, lost)
	}
	s.render(at, beat, frame, lost)

	metrics.RecordTickDuration(float64(time.Since(started).Microseconds()) / 1000)
}

// scoreBeats evaluates each beat in (lastBeat, beat]. Beats before the
// current one use the reference frame at their own boundary. Caller holds s.mu.
func (s *Session) scoreBeats(ctx context.Context, beat int, at float64, current choreo.Frame, lost bool) {
	first := max(s.lastBeat+1, 0)
	if n := beat - first + 1; n > s.catchUp {
		skipped := n - s.catchUp
		for range skipped {
			metrics.RecordSkippedBeat(metrics.SkipCatchUpCap)
		}
		s.log.Debug(ctx, "beat catch-up capped", logger.Int("skipped", skipped), logger.Int("beat", beat))
		first = beat - s.catchUp + 1
	}
	s.lastBeat = beat

	interval := s.tl.BeatInterval()
	latest := s.latest.Load()
	for b := first; b <= beat; b++ {
		s.publish(ctx, model.Event{Kind: model.KindBeat, Beat: b, AudioTime: at})
		if lost {
			metrics.RecordSkippedBeat(metrics.SkipTrackingLost)
			continue
		}
		if latest == nil {
			metrics.RecordSkippedBeat(metrics.SkipNoPose)
			continue
		}
		ref := current
		if b < beat {
			ref = s.tl.Frame(float64(b) * interval)
		}
		r := s.engine.Evaluate(latest.joints, ref)
		s.publishResult(ctx, b, at, r)
	}
}

func (s *Session) publishResult(ctx context.Context, beat int, at float64, r scoring.Result) {
	metrics.RecordEvaluation(r.Tier.String(), r.Similarity)
	metrics.UpdateScore(r.TotalScore, r.Combo, r.MaxCombo)

	missed := make([]string, len(r.Missed))
	for i, j := range r.Missed {
		missed[i] = j.String()
	}
	s.publish(ctx, model.Event{
		Kind:         model.KindTier,
		Beat:         beat,
		AudioTime:    at,
		Tier:         r.Tier.String(),
		Similarity:   r.Similarity,
		MissedJoints: missed,
		Points:       r.Points,
		Multiplier:   r.Multiplier,
		Combo:        r.Combo,
		TotalScore:   r.TotalScore,
		Capped:       r.Capped,
	})
	if r.MilestoneReached {
		s.publish(ctx, model.Event{
			Kind:       model.KindComboMilestone,
			Beat:       beat,
			AudioTime:  at,
			Combo:      r.Combo,
			Multiplier: r.Multiplier,
		})
	}
}

// render hands the current display state to the renderer. Caller holds s.mu.
func (s *Session) render(at float64, beat int, frame choreo.Frame, lost bool) {
	var detected pose.Joints
	if latest := s.latest.Load(); latest != nil {
		detected = latest.joints
	}
	s.display = Display{
		SessionID:    s.id,
		Phase:        s.phase.Name(),
		AudioTime:    at,
		Beat:         beat,
		Current:      frame,
		Upcoming:     s.tl.Upcoming(at, s.lookahead),
		Detected:     detected,
		TrackingLost: lost,
		Score:        s.engine.Snapshot(),
	}
	s.renderer.Render(s.display)
}

// Pause suspends ticking and audio. Valid from Playing or Practice.
func (s *Session) Pause() error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	switch s.phase.(type) {
	case Playing, Practice:
	default:
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.phase.Name())
	}
	s.transport.Pause()
	s.setPhase(ctx, Paused{Resume: s.phase})
	s.signal()
	return nil
}

// Resume continues from where Pause left off.
func (s *Session) Resume() error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	p, ok := s.phase.(Paused)
	if !ok {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s.phase.Name())
	}
	s.transport.Resume()
	// a pause is not a dropout; restart the grace window
	s.graceFrom = s.now()
	s.setPhase(ctx, p.Resume)
	s.signal()
	return nil
}

// EnterPractice loops the phrase containing the current beat at the practice
// rate. The phrase is aligned to multiples of the phrase length and clipped
// to the song.
func (s *Session) EnterPractice() (Practice, error) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return Practice{}, ErrSessionClosed
	}
	if _, ok := s.phase.(Playing); !ok {
		return Practice{}, fmt.Errorf("%w: practice from %s", ErrInvalidTransition, s.phase.Name())
	}

	interval := s.tl.BeatInterval()
	beat := max(s.tl.Beat(s.transport.CurrentTime().Seconds()), 0)
	startBeat := beat - beat%s.phraseBeats
	start := float64(startBeat) * interval
	end := start + float64(s.phraseBeats)*interval
	if d := s.tl.Duration(); d > start && end > d {
		end = d
	}
	if !(end > start) {
		return Practice{}, fmt.Errorf("%w: no phrase at beat %d", ErrInvalidTransition, beat)
	}

	p := Practice{StartBeat: startBeat, Start: start, End: end}
	s.transport.SetRate(s.practiceRate)
	s.transport.SetLoopRange(secondsToDuration(start), secondsToDuration(end))
	s.setPhase(ctx, p)
	s.log.Info(ctx, "practice loop",
		logger.Int("start_beat", startBeat),
		logger.Float64("start", start),
		logger.Float64("end", end),
	)
	return p, nil
}

// ExitPractice returns to normal-rate playback from the current position.
func (s *Session) ExitPractice() error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if _, ok := s.phase.(Practice); !ok {
		return fmt.Errorf("%w: exit practice from %s", ErrInvalidTransition, s.phase.Name())
	}
	s.transport.ClearLoop()
	s.transport.SetRate(1)
	s.setPhase(ctx, Playing{})
	return nil
}

// Status is a snapshot for status endpoints.
type Status struct {
	ID           string           `json:"id"`
	SongMD5      string           `json:"song_md5"`
	Phase        string           `json:"phase"`
	AudioTime    float64          `json:"audio_time"`
	Beat         int              `json:"beat"`
	BPM          float64          `json:"bpm"`
	Duration     float64          `json:"duration"`
	Difficulty   int              `json:"difficulty"`
	TrackingLost bool             `json:"tracking_lost"`
	Score        scoring.State    `json:"score"`
	Practice     *Practice        `json:"practice,omitempty"`
	Record       *model.RunRecord `json:"record,omitempty"`
}

// Status returns the latest rendered state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:           s.id,
		SongMD5:      s.tl.SongMD5(),
		Phase:        s.phase.Name(),
		AudioTime:    s.display.AudioTime,
		Beat:         s.display.Beat,
		BPM:          s.tl.BPM(),
		Duration:     s.tl.Duration(),
		Difficulty:   s.tl.Difficulty(),
		TrackingLost: s.trackingLost,
		Score:        s.engine.Snapshot(),
	}
	switch ph := s.phase.(type) {
	case Practice:
		st.Practice = &ph
	case Paused:
		if p, ok := ph.Resume.(Practice); ok {
			st.Practice = &p
		}
	case Ended:
		st.Record = ph.Record
	}
	return st
}

// setPhase records a transition and publishes it. Caller holds s.mu.
func (s *Session) setPhase(ctx context.Context, p Phase) {
	prev := s.phase
	s.phase = p
	if prev != nil && prev.Name() == p.Name() {
		return
	}
	metrics.RecordPhaseTransition(p.Name())
	s.log.Debug(ctx, "phase", logger.String("phase", p.Name()))
	s.publish(ctx, model.Event{Kind: model.KindPhase, Phase: p.Name(), AudioTime: s.lastAt})
}

func (s *Session) publish(ctx context.Context, e model.Event) {
	e.SessionID = s.id
	e.SongMD5 = s.tl.SongMD5()
	e.TS = s.now().UTC()
	if !s.pub.Enqueue(ctx, e) {
		s.log.Debug(ctx, "event dropped", logger.String("kind", string(e.Kind)))
	}
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}
