package terminal

import (
	"context"
	"errors"
	"fmt"

	"github.com/eiannone/keyboard"

	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/pkg/logger"
)

const keyBuffer = 16

// Controller is the part of a session the keyboard drives.
type Controller interface {
	Phase() game.Phase
	Pause() error
	Resume() error
	EnterPractice() (game.Practice, error)
	ExitPractice() error
	Close()
}

// KeySource yields key presses.
type KeySource interface {
	Keys() (<-chan keyboard.KeyEvent, error)
	Close() error
}

type keyboardSource struct{}

// Keyboard reads raw key presses from the terminal.
func Keyboard() KeySource { return keyboardSource{} }

func (keyboardSource) Keys() (<-chan keyboard.KeyEvent, error) { return keyboard.GetKeys(keyBuffer) }
func (keyboardSource) Close() error                            { return keyboard.Close() }

// Controls maps keys to session transitions:
//
//	space      pause / resume
//	p          enter / leave practice
//	q, esc     stop
type Controls struct {
	src KeySource
	log logger.Logger
}

// NewControls builds controls over src.
func NewControls(src KeySource, log logger.Logger) *Controls {
	if log == nil {
		log = logger.Nop()
	}
	return &Controls{src: src, log: log}
}

// Run handles keys for c until ctx ends, c is done, or stop is pressed.
func (k *Controls) Run(ctx context.Context, c Controller, done <-chan struct{}) error {
	keys, err := k.src.Keys()
	if err != nil {
		return fmt.Errorf("open keyboard: %w", err)
	}
	defer func() {
		if err := k.src.Close(); err != nil {
			k.log.Warn(ctx, "unable to close keyboard", logger.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case ev, ok := <-keys:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return fmt.Errorf("read key: %w", ev.Err)
			}
			if stop := k.handle(ctx, c, ev); stop {
				c.Close()
				return nil
			}
		}
	}
}

func (k *Controls) handle(ctx context.Context, c Controller, ev keyboard.KeyEvent) bool {
	var err error
	switch {
	case ev.Key == keyboard.KeyEsc, ev.Rune == 'q':
		return true
	case ev.Key == keyboard.KeySpace:
		if _, paused := c.Phase().(game.Paused); paused {
			err = c.Resume()
		} else {
			err = c.Pause()
		}
	case ev.Rune == 'p':
		if _, practicing := c.Phase().(game.Practice); practicing {
			err = c.ExitPractice()
		} else {
			_, err = c.EnterPractice()
		}
	}
	if err != nil && !errors.Is(err, game.ErrInvalidTransition) {
		k.log.Warn(ctx, "control failed", logger.Error(err))
	}
	return false
}
