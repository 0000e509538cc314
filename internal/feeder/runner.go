package feeder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/groove/internal/adapters/repository"
	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/pose"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/internal/simulate"
	"github.com/okian/groove/pkg/logger"
)

// Run plays one song against the server at cfg.BaseURL and returns what
// happened.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	log := cfg.Log
	if log == nil {
		log = logger.Get().Named("feeder")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = DefaultVerifyTimeout
	}
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting feed",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("choreography", cfg.ChoreographyPath),
		logger.Int("poseRate", cfg.PoseRate),
		logger.Float64("jitter", cfg.Jitter),
		logger.Duration("lag", cfg.Lag))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkHealth(ctx, c, log); err != nil {
		return stats, err
	}

	// Step 2: Start the session; the server blocks through the count-in
	chor, err := choreo.LoadFile(cfg.ChoreographyPath)
	if err != nil {
		return stats, fmt.Errorf("load choreography: %w", err)
	}
	started, err := call[game.Status](ctx, c, http.MethodPost, "/session",
		model.SessionRequest{Choreography: &chor, AudioPath: cfg.AudioPath}, http.StatusCreated)
	if err != nil {
		return stats, fmt.Errorf("start session: %w", err)
	}
	stats.SongMD5 = started.SongMD5
	log.Info(ctx, "session started",
		logger.String("session", started.ID),
		logger.String("song", started.SongMD5),
		logger.Int("difficulty", started.Difficulty))

	// Step 3: Dance until the server reports the end
	final, err := dance(ctx, cfg, c, choreo.NewTimeline(chor), started, stats, log)
	if err != nil {
		return stats, fmt.Errorf("dance: %w", err)
	}

	// Step 4: Verify the run reached the store
	if err := verify(ctx, cfg, c, final, stats, log); err != nil {
		return stats, fmt.Errorf("verify: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func checkHealth(ctx context.Context, c *client, log logger.Logger) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	log.Debug(ctx, "service is healthy")
	return nil
}

// poseSink posts poses and counts the outcomes.
type poseSink struct {
	ctx context.Context
	c   *client

	sent, accepted, ignored, failed atomic.Int64
}

func (s *poseSink) SubmitPose(d pose.Detected) bool {
	s.sent.Add(1)
	ack, err := call[struct {
		Status string `json:"status"`
	}](s.ctx, s.c, http.MethodPost, "/pose", d, http.StatusAccepted)
	switch {
	case err != nil:
		s.failed.Add(1)
		return false
	case ack.Status == ackIgnored:
		s.ignored.Add(1)
		return false
	default:
		s.accepted.Add(1)
		return true
	}
}

// dance streams poses while polling the session until it ends.
func dance(ctx context.Context, cfg Config, c *client, tl *choreo.Timeline, st game.Status, stats *Stats, log logger.Logger) (game.Status, error) {
	clock := newRemoteClock(nil)
	clock.update(st)

	opts := []simulate.PoserOption{
		simulate.WithJitter(cfg.Jitter),
		simulate.WithLag(cfg.Lag),
		simulate.WithDropouts(cfg.Dropouts...),
		simulate.WithPoseRate(cfg.PoseRate),
	}
	if cfg.Seed != 0 {
		opts = append(opts, simulate.WithSeed(cfg.Seed))
	}
	poser := simulate.NewPoser(tl, clock, opts...)

	poseCtx, stop := context.WithCancel(ctx)
	sink := &poseSink{ctx: poseCtx, c: c}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poser.Run(poseCtx, sink)
	}()
	defer func() {
		stop()
		wg.Wait()
		stats.PosesSent = int(sink.sent.Load())
		stats.PosesAccepted = int(sink.accepted.Load())
		stats.PosesIgnored = int(sink.ignored.Load())
		stats.PosesFailed = int(sink.failed.Load())
	}()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	lastPhase := st.Phase
	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}

		next, err := call[game.Status](ctx, c, http.MethodGet, "/session", nil, http.StatusOK)
		if err != nil {
			log.Warn(ctx, "status poll failed", logger.Error(err))
			continue
		}
		stats.StatusPolls++
		st = next
		clock.update(st)

		if st.Phase != lastPhase {
			log.Info(ctx, "phase changed", logger.String("from", lastPhase), logger.String("to", st.Phase))
			lastPhase = st.Phase
		}
		if st.Phase == game.PhaseEnded {
			return st, nil
		}
	}
}

// verify waits for the run to appear in the song's history and checks the
// board agrees with it.
func verify(ctx context.Context, cfg Config, c *client, final game.Status, stats *Stats, log logger.Logger) error {
	if final.Record == nil {
		return fmt.Errorf("%w: session %s ended without a record", ErrNotRecorded, final.ID)
	}
	rec := *final.Record
	stats.RunID, stats.Score, stats.MaxCombo, stats.StarRating = rec.ID, rec.Score, rec.MaxCombo, rec.StarRating

	song := url.PathEscape(rec.SongMD5)
	deadline := time.Now().Add(cfg.VerifyTimeout)
	for {
		history, err := call[[]model.RunRecord](ctx, c, http.MethodGet, "/history/"+song, nil, http.StatusOK)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(history, func(r model.RunRecord) bool { return r.ID == rec.ID }) {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s missing from history of %s", ErrNotRecorded, rec.ID, rec.SongMD5)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(verifyRetry):
		}
	}

	entry, err := call[repository.Entry](ctx, c, http.MethodGet, "/leaderboard/"+song, nil, http.StatusOK)
	if err != nil {
		return err
	}
	stats.Rank = entry.Rank
	if entry.Score < rec.Score || (entry.RunID == rec.ID && entry.Score != rec.Score) {
		return fmt.Errorf("%w: board has %d for %s, run scored %d", ErrInconsistent, entry.Score, rec.SongMD5, rec.Score)
	}
	log.Info(ctx, "run verified",
		logger.String("run", rec.ID),
		logger.Int("rank", entry.Rank),
		logger.Bool("best", entry.RunID == rec.ID))
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var acceptRate, posesPerSecond float64
	if stats.PosesSent > 0 {
		acceptRate = float64(stats.PosesAccepted) / float64(stats.PosesSent) * 100
	}
	if stats.Duration > 0 {
		posesPerSecond = float64(stats.PosesSent) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.String("song", stats.SongMD5),
		logger.Int("score", stats.Score),
		logger.Int("maxCombo", stats.MaxCombo),
		logger.Int("stars", stats.StarRating),
		logger.Int("rank", stats.Rank),
		logger.Int("posesSent", stats.PosesSent),
		logger.Int("posesAccepted", stats.PosesAccepted),
		logger.Int("posesIgnored", stats.PosesIgnored),
		logger.Int("posesFailed", stats.PosesFailed),
		logger.Int("statusPolls", stats.StatusPolls),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("posesPerSecond", posesPerSecond))
}
