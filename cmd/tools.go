package main

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/feeder"
	"github.com/okian/groove/pkg/logger"
)

func runGenerate(args generateArgs) error {
	song := *args.song
	if *args.audio != "" {
		id, err := choreo.SongIDFile(*args.audio)
		if err != nil {
			return fmt.Errorf("song id: %w", err)
		}
		song = id
	}
	if song == "" {
		return fmt.Errorf("generate: --song or --audio is required")
	}

	c := choreo.GenerateTemplate(choreo.TemplateOptions{
		SongMD5:   song,
		BPM:       *args.bpm,
		Duration:  *args.duration,
		BeatTimes: *args.beatTimes,
	})
	return choreo.SaveFile(*args.output, c)
}

func runDifficulty(path string, w io.Writer) error {
	c, err := choreo.LoadFile(path)
	if err != nil {
		return err
	}
	tl := choreo.NewTimeline(c)
	_, err = fmt.Fprintf(w, "%s: difficulty %d (%d keyframes, %.1f s at %.0f bpm)\n",
		tl.SongMD5(), tl.Difficulty(), tl.Len(), tl.Duration(), tl.BPM())
	return err
}

func runFeed(ctx context.Context, args feedArgs) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	cfg := feeder.Defaults()
	cfg.BaseURL = *args.url
	cfg.ChoreographyPath = *args.choreography
	cfg.AudioPath = *args.audio
	cfg.PoseRate = *args.rate
	cfg.Jitter = *args.jitter
	cfg.Lag = *args.lag
	cfg.Seed = *args.seed
	cfg.Timeout = *args.timeout

	_, err := feeder.Run(ctx, cfg)
	return err
}
