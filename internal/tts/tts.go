// Package tts turns response text into speech.
package tts

import (
	"context"
	"time"

	log "log/slog"
)

// Speaker blocks until text has been spoken or ctx is done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Func adapts a plain function to Speaker.
type Func func(ctx context.Context, text string) error

func (f Func) Speak(ctx context.Context, text string) error { return f(ctx, text) }

// Ducker lowers other audio while the assistant talks.
type Ducker interface {
	Duck(ctx context.Context, factor float64, fade time.Duration) error
	Restore(ctx context.Context, fade time.Duration) error
}

// Ducked wraps a Speaker so that other streams are quieter for the duration of
// each utterance. Ducking failures are logged and never fail the utterance.
type Ducked struct {
	Speaker Speaker
	Ducker  Ducker
	Factor  float64
	Fade    time.Duration
}

func (d *Ducked) Speak(ctx context.Context, text string) error {
	if err := d.Ducker.Duck(ctx, d.Factor, d.Fade); err != nil {
		log.Warn("Failed to duck audio", "error", err)
	}
	defer func() {
		// restore even when ctx was cancelled mid-sentence
		if err := d.Ducker.Restore(context.WithoutCancel(ctx), d.Fade); err != nil {
			log.Warn("Failed to restore audio", "error", err)
		}
	}()

	return d.Speaker.Speak(ctx, text)
}

// Silent logs what would have been spoken. It backs hosts without audio out.
type Silent struct{}

func (Silent) Speak(ctx context.Context, text string) error {
	log.Info("Speak", "text", text)
	return ctx.Err()
}
