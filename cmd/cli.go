package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/okian/groove/internal/feeder"
)

type playArgs struct {
	choreography *string
	audio        *string
	autoplay     *bool
	jitter       *float64
	noHTTP       *bool
}

type generateArgs struct {
	output    *string
	song      *string
	audio     *string
	bpm       *float64
	duration  *float64
	beatTimes *[]float64
}

type feedArgs struct {
	choreography *string
	url          *string
	audio        *string
	rate         *int
	jitter       *float64
	lag          *time.Duration
	seed         *uint64
	timeout      *time.Duration
}

type cli struct {
	app *kingpin.Application

	serve      *kingpin.CmdClause
	play       *kingpin.CmdClause
	generate   *kingpin.CmdClause
	difficulty *kingpin.CmdClause
	feed       *kingpin.CmdClause

	playArgs       playArgs
	generateArgs   generateArgs
	difficultyPath *string
	feedArgs       feedArgs
}

func newCLI() *cli {
	c := &cli{app: kingpin.New("groove", "A dance game scored against a choreography, beat by beat.")}
	c.app.HelpFlag.Short('h')
	c.app.Version("groove 1.0.0")

	c.serve = c.app.Command("serve", "Run the HTTP API; sessions are started with POST /session.").Default()

	c.play = c.app.Command("play", "Play a choreography in this terminal.")
	c.playArgs = playArgs{
		choreography: c.play.Arg("choreography", "Choreography JSON file.").Required().ExistingFile(),
		audio:        c.play.Flag("audio", "Audio file to play along (mp3, wav, ogg).").Short('a').ExistingFile(),
		autoplay:     c.play.Flag("autoplay", "Let a synthetic dancer perform.").Bool(),
		jitter:       c.play.Flag("jitter", "Synthetic dancer noise.").Default("0.03").Float64(),
		noHTTP:       c.play.Flag("no-http", "Do not serve the HTTP API while playing.").Bool(),
	}

	c.generate = c.app.Command("generate", "Write a template choreography.")
	c.generateArgs = generateArgs{
		output:    c.generate.Arg("output", "Destination JSON file.").Required().String(),
		song:      c.generate.Flag("song", "Song identifier.").String(),
		audio:     c.generate.Flag("audio", "Derive the song identifier from this audio file.").ExistingFile(),
		bpm:       c.generate.Flag("bpm", "Tempo in beats per minute.").Default("120").Float64(),
		duration:  c.generate.Flag("duration", "Length in seconds.").Default("180").Float64(),
		beatTimes: c.generate.Flag("beat", "Detected beat time in seconds; repeatable.").Float64List(),
	}

	c.difficulty = c.app.Command("difficulty", "Rate a choreography from 1 to 4.")
	c.difficultyPath = c.difficulty.Arg("choreography", "Choreography JSON file.").Required().ExistingFile()

	c.feed = c.app.Command("feed", "Dance against a running server over HTTP and verify the stored run.")
	c.feedArgs = feedArgs{
		choreography: c.feed.Arg("choreography", "Choreography JSON file, sent inline.").Required().ExistingFile(),
		url:          c.feed.Flag("url", "Base URL of the service.").Default(feeder.DefaultBaseURL).String(),
		audio:        c.feed.Flag("audio", "Audio path on the server.").String(),
		rate:         c.feed.Flag("rate", "Poses per second.").Default("30").Int(),
		jitter:       c.feed.Flag("jitter", "Synthetic dancer noise.").Default("0.03").Float64(),
		lag:          c.feed.Flag("lag", "How far the dancer trails the music.").Default("0s").Duration(),
		seed:         c.feed.Flag("seed", "Noise seed; 0 keeps the default.").Default("0").Uint64(),
		timeout:      c.feed.Flag("timeout", "HTTP request timeout.").Default("30s").Duration(),
	}
	return c
}

func (c *cli) run(ctx context.Context, command string) error {
	switch command {
	case c.serve.FullCommand():
		return runServe(ctx)
	case c.play.FullCommand():
		return runPlay(ctx, c.playArgs)
	case c.generate.FullCommand():
		return runGenerate(c.generateArgs)
	case c.difficulty.FullCommand():
		return runDifficulty(*c.difficultyPath, os.Stdout)
	case c.feed.FullCommand():
		return runFeed(ctx, c.feedArgs)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
