package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// DefaultRate is the output device rate; streams at other rates are resampled.
const DefaultRate = beep.SampleRate(44100)

// Player owns the output device. The speaker is initialised once, on first
// use, so hosts that never play audio never open the device.
type Player struct {
	rate beep.SampleRate

	once    sync.Once
	initErr error
}

func NewPlayer(rate beep.SampleRate) *Player {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Player{rate: rate}
}

func (p *Player) init() error {
	p.once.Do(func() {
		p.initErr = speaker.Init(p.rate, p.rate.N(time.Second/10))
	})
	return p.initErr
}

// Play blocks until s is drained or ctx is done.
func (p *Player) Play(ctx context.Context, s beep.Streamer, format beep.Format) error {
	if err := p.init(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, s)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// PlayMP3 decodes and plays an MP3 stream, closing r when done.
func (p *Player) PlayMP3(ctx context.Context, r io.ReadCloser) error {
	streamer, format, err := mp3.Decode(r)
	if err != nil {
		r.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	return p.Play(ctx, streamer, format)
}
