// Command groove runs the dance game: an HTTP server that a pose detector
// feeds, a terminal player, and tools to author and exercise choreographies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/okian/groove/internal/adapters/audio"
	app "github.com/okian/groove/internal/app"
	"github.com/okian/groove/internal/config"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/pkg/logger"
)

func main() {
	// We collect our own system metrics instead of the default Go ones.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cli := newCLI()
	command := kingpin.MustParse(cli.app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.run(ctx, command); err != nil {
		os.Stderr.WriteString("groove: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging for commands that run
// the game.
func setup(ctx context.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := logger.InitWithWriter(os.Stderr, cfg.LogFormat); err != nil {
		return nil, nil, fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// sessionOptions maps the gameplay settings onto session options.
func sessionOptions(cfg *config.Config) []game.Option {
	return []game.Option{
		game.WithTickRate(cfg.TickRateHz),
		game.WithLookahead(cfg.LookaheadFrames),
		game.WithCountInBeats(cfg.CountInBeats),
		game.WithTrackingGrace(cfg.TrackingGrace()),
		game.WithMinConfidence(cfg.MinPoseConfidence),
		game.WithPracticeRate(cfg.PracticeRate),
		game.WithPracticePhraseBeats(cfg.PracticePhraseBeats),
	}
}

// newService opens the configured store and builds a service around it.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger, extra ...app.Option) (*app.Service, error) {
	store, err := app.OpenStore(ctx, cfg, log.Named("repository"))
	if err != nil {
		return nil, err
	}
	opts := []app.Option{
		app.WithLogger(log),
		app.WithStore(store),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithUpperBodyOnly(cfg.UpperBodyOnly),
		app.WithSessionOptions(sessionOptions(cfg)...),
		app.WithTransports(app.DefaultTransports(audio.WithLogger(log.Named("audio")))),
	}
	return app.New(append(opts, extra...)...), nil
}
