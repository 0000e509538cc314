package audio

import (
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Device is the output the transport plays into. The default is the system
// speaker; tests substitute a device that pulls samples by hand.
type Device interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

type speakerDevice struct{}

// Speaker returns the system audio output.
func Speaker() Device { return speakerDevice{} }

func (speakerDevice) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}

func (speakerDevice) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerDevice) Clear()                  { speaker.Clear() }
func (speakerDevice) Lock()                   { speaker.Lock() }
func (speakerDevice) Unlock()                 { speaker.Unlock() }
