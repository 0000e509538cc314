package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	workerpool "github.com/okian/groove/internal/adapters/mq/worker"
	repository "github.com/okian/groove/internal/adapters/repository"
	service "github.com/okian/groove/internal/app"
	"github.com/okian/groove/internal/config"
	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/internal/simulate"
)

func shortDance(song string, seconds float64) *choreo.Choreography {
	c := choreo.GenerateTemplate(choreo.TemplateOptions{SongMD5: song, BPM: 120, Duration: seconds})
	return &c
}

// eventually polls cond until it holds or the deadline passes.
func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

type eventLog struct {
	mu     sync.Mutex
	events []model.Event
}

func (l *eventLog) Handle(_ context.Context, e model.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds(kind model.EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithWorkerCount(1),
		service.WithTransports(service.SilentTransports),
		service.WithSessionOptions(game.WithCountInBeats(0)),
	}
	return service.New(append(base, opts...)...)
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService()
		ctx := context.Background()

		Convey("When it is not started", func() {
			Convey("Then stats report it and sessions cannot start", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.StartSession(ctx, model.SessionRequest{Choreography: shortDance("a", 2)})
				So(err, ShouldNotBeNil)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})

		Convey("When started twice and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			stats := svc.GetStats()
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then stats were live and stop is idempotent", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["songs"], ShouldEqual, 0)
				So(svc.Session(), ShouldBeNil)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestStartSessionErrors(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		failing := func(*choreo.Timeline, string) (game.Transport, error) {
			return nil, errors.New("no audio device")
		}
		svc := newService()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When no choreography is given", func() {
			_, err := svc.StartSession(ctx, model.SessionRequest{})
			So(errors.Is(err, choreo.ErrEmptyChoreography), ShouldBeTrue)
		})

		Convey("When the choreography file is missing", func() {
			_, err := svc.StartSession(ctx, model.SessionRequest{ChoreographyPath: filepath.Join(t.TempDir(), "nope.json")})
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})

		Convey("When the choreography file is not JSON", func() {
			path := filepath.Join(t.TempDir(), "bad.json")
			So(os.WriteFile(path, []byte("{"), 0o600), ShouldBeNil)
			_, err := svc.StartSession(ctx, model.SessionRequest{ChoreographyPath: path})
			So(errors.Is(err, choreo.ErrDecode), ShouldBeTrue)
		})

		Convey("When the transport cannot be built", func() {
			svc := newService(service.WithTransports(failing))
			So(svc.Start(ctx), ShouldBeNil)
			_, err := svc.StartSession(ctx, model.SessionRequest{Choreography: shortDance("a", 2)})
			So(errors.Is(err, game.ErrTransportStart), ShouldBeTrue)
			So(svc.Session(), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When nothing is playing", func() {
			So(svc.StopSession(ctx), ShouldEqual, game.ErrNoSession)
		})
	})
}

func TestConcurrentStart(t *testing.T) {
	Convey("Given a session blocked in its count-in", t, func() {
		ctx := context.Background()
		entered := make(chan struct{}, 4)
		release := make(chan struct{})
		sleep := func(ctx context.Context, _ time.Duration) error {
			entered <- struct{}{}
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		svc := newService(service.WithSessionOptions(game.WithCountInBeats(1), game.WithSleep(sleep)))
		So(svc.Start(ctx), ShouldBeNil)

		first := make(chan error, 1)
		go func() {
			_, err := svc.StartSession(ctx, model.SessionRequest{Choreography: shortDance("a", 2)})
			first <- err
		}()
		<-entered

		Convey("When a second start arrives", func() {
			_, err := svc.StartSession(ctx, model.SessionRequest{Choreography: shortDance("b", 2)})
			close(release)

			Convey("Then it is refused and the first one proceeds", func() {
				So(err, ShouldEqual, game.ErrStartInProgress)
				So(<-first, ShouldBeNil)
				So(svc.Session().Timeline().SongMD5(), ShouldEqual, "a")
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service playing a two second dance with a synthetic dancer", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sink := &eventLog{}
		svc := newService(service.WithSink(workerpool.Sink(sink)))
		So(svc.Start(ctx), ShouldBeNil)

		sess, err := svc.StartSession(ctx, model.SessionRequest{Choreography: shortDance("song-1", 2)})
		So(err, ShouldBeNil)

		poser := simulate.NewPoser(sess.Timeline(), statusClock{sess}, simulate.WithPoseRate(60))
		go poser.Run(ctx, sess)

		select {
		case <-sess.Done():
		case <-ctx.Done():
		}

		Convey("Then the run is recorded once the events drain", func() {
			So(sess.Phase().Name(), ShouldEqual, game.PhaseEnded)

			var history []model.RunRecord
			So(eventually(5*time.Second, func() bool {
				history, _ = svc.History(ctx, "song-1")
				return len(history) == 1
			}), ShouldBeTrue)
			So(history[0].Score, ShouldEqual, sess.Status().Score.TotalScore)
			So(history[0].Score, ShouldBeGreaterThan, 0)

			best, err := svc.Best(ctx, "song-1")
			So(err, ShouldBeNil)
			So(best.RunID, ShouldEqual, history[0].ID)

			entry, err := svc.Rank(ctx, "song-1")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 1)

			top, err := svc.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 1)

			So(sink.kinds(model.KindGameEnd), ShouldEqual, 1)
			So(sink.kinds(model.KindTier), ShouldBeGreaterThan, 0)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestSongChange(t *testing.T) {
	Convey("Given a session in progress", t, func() {
		ctx := context.Background()
		svc := newService()
		So(svc.Start(ctx), ShouldBeNil)

		first, err := svc.StartSession(ctx, model.SessionRequest{Choreography: shortDance("first", 30)})
		So(err, ShouldBeNil)

		Convey("When another song starts", func() {
			second, err := svc.StartSession(ctx, model.SessionRequest{Choreography: shortDance("second", 30)})
			So(err, ShouldBeNil)

			Convey("Then the first is torn down without a record", func() {
				So(first.Phase().Name(), ShouldEqual, game.PhaseEnded)
				So(first.Status().Record, ShouldBeNil)
				So(svc.Session(), ShouldEqual, second)

				So(svc.StopSession(ctx), ShouldBeNil)
				So(second.Phase().Name(), ShouldEqual, game.PhaseEnded)
				So(svc.Stop(ctx), ShouldBeNil)

				history, err := svc.History(ctx, "first")
				So(err, ShouldBeNil)
				So(history, ShouldBeEmpty)
			})
		})
	})
}

// statusClock reads song time from a session's rendered status.
type statusClock struct{ s *game.Session }

func (c statusClock) CurrentTime() time.Duration {
	return time.Duration(c.s.Status().AudioTime * float64(time.Second))
}

func TestOpenStore(t *testing.T) {
	Convey("Given store configurations", t, func() {
		ctx := context.Background()
		cfg := config.New()

		Convey("When the backend is memory", func() {
			s, err := service.OpenStore(ctx, cfg, nil)
			So(err, ShouldBeNil)
			So(s, ShouldHaveSameTypeAs, &repository.TreapStore{})
			So(s.Close(), ShouldBeNil)
		})

		Convey("When the backend is sqlite", func() {
			cfg.StoreBackend = config.BackendSQLite
			cfg.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
			s, err := service.OpenStore(ctx, cfg, nil)
			So(err, ShouldBeNil)
			So(s, ShouldHaveSameTypeAs, &repository.SQLiteStore{})
			So(s.Close(), ShouldBeNil)
		})

		Convey("When the backend is redis", func() {
			mr := miniredis.RunT(t)
			cfg.StoreBackend = config.BackendRedis
			cfg.RedisAddr = mr.Addr()
			s, err := service.OpenStore(ctx, cfg, nil)
			So(err, ShouldBeNil)
			So(s, ShouldHaveSameTypeAs, &repository.RedisStore{})
			So(s.Close(), ShouldBeNil)
		})

		Convey("When the backend is unknown", func() {
			cfg.StoreBackend = "mongo"
			_, err := service.OpenStore(ctx, cfg, nil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
