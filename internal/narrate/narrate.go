// Package narrate speaks a line while the display shows it.
package narrate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"gpthome/internal/display"
	"gpthome/internal/tts"
)

// Screen is the part of display.Reporter a phase needs.
type Screen interface {
	Update(ctx context.Context, text string, opt display.UpdateOptions) error
}

type Narrator struct {
	speaker tts.Speaker
	screen  Screen
}

func New(speaker tts.Speaker, screen Screen) *Narrator {
	return &Narrator{speaker: speaker, screen: screen}
}

// Phase speaks text and shows it at the same time, and returns once both are
// done. The display keeps the text up until speech ends, even when speech
// fails. errStyle selects the error rendering.
func (n *Narrator) Phase(ctx context.Context, text string, errStyle bool) error {
	stop := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(stop)
		return n.speaker.Speak(gctx, text)
	})
	g.Go(func() error {
		return n.screen.Update(gctx, text, display.UpdateOptions{Error: errStyle, Stop: stop})
	})

	return g.Wait()
}
