package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/okian/groove/internal/adapters/repository"
	"github.com/okian/groove/internal/adapters/terminal"
	app "github.com/okian/groove/internal/app"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/internal/simulate"
	"github.com/okian/groove/pkg/logger"
)

const (
	recordWait     = 3 * time.Second
	recordPollStep = 20 * time.Millisecond
)

func runPlay(ctx context.Context, args playArgs) error {
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}

	out := os.Stdout
	colored := term.IsTerminal(int(out.Fd()))
	svc, err := newService(ctx, cfg, log,
		app.WithWorkerCount(1), // keeps printed events in order
		app.WithSink(terminal.NewPrinter(out, colored)),
		app.WithSessionOptions(game.WithRenderer(terminal.NewStatusLine(out, 0))),
	)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		if err := svc.Stop(context.WithoutCancel(ctx)); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !*args.noHTTP {
		go func() {
			if err := serveHTTP(playCtx, cfg, svc, log); err != nil {
				log.Warn(ctx, "pose API unavailable", logger.Error(err))
			}
		}()
	}

	fmt.Fprintf(out, "loading %s\n", *args.choreography)
	sess, err := svc.StartSession(ctx, model.SessionRequest{
		ChoreographyPath: *args.choreography,
		AudioPath:        *args.audio,
	})
	if err != nil {
		return err
	}

	if *args.autoplay {
		poser := simulate.NewPoser(sess.Timeline(), sessionClock{sess}, simulate.WithJitter(*args.jitter))
		go poser.Run(playCtx, sess)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(out, "space: pause/resume  p: practice  q: quit")
		controls := terminal.NewControls(terminal.Keyboard(), log.Named("controls"))
		go func() {
			if err := controls.Run(playCtx, sess, sess.Done()); err != nil {
				log.Warn(ctx, "keyboard controls unavailable", logger.Error(err))
			}
		}()
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
		return nil
	}
	fmt.Fprintln(out)
	return printStanding(ctx, out, svc, sess.Status())
}

// printStanding waits for the run to land in the store and prints its
// place on the board.
func printStanding(ctx context.Context, w io.Writer, svc *app.Service, st game.Status) error {
	if st.Record == nil {
		return nil
	}
	rec := st.Record
	deadline := time.Now().Add(recordWait)
	var best model.SongBest
	for {
		var err error
		best, err = svc.Best(ctx, rec.SongMD5)
		if err == nil && (best.RunID == rec.ID || best.Score >= rec.Score) {
			break
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if time.Now().After(deadline) {
			return nil
		}
		time.Sleep(recordPollStep)
	}

	entry, err := svc.Rank(ctx, rec.SongMD5)
	if err != nil {
		return err
	}
	if best.RunID == rec.ID {
		fmt.Fprintf(w, "new best for this song! rank %d\n", entry.Rank)
	} else {
		fmt.Fprintf(w, "best for this song is %d, rank %d\n", best.Score, entry.Rank)
	}
	return nil
}

// sessionClock reads song time from a session's rendered status.
type sessionClock struct{ s *game.Session }

func (c sessionClock) CurrentTime() time.Duration {
	return time.Duration(c.s.Status().AudioTime * float64(time.Second))
}
