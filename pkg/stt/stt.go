// Package stt turns captured speech into text.
//
// A Listener pairs an audio Source with a Recognizer. Recognizers report two
// distinguishable failures: ErrUnknownValue when the audio held no
// recognisable speech, and *RequestError when the backend itself failed.
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SampleRate is the rate every Source delivers and every Recognizer expects.
const SampleRate = 16000

// ErrUnknownValue means the recogniser produced no confident transcription.
var ErrUnknownValue = errors.New("stt: speech not understood")

// RequestError wraps a failure of the recognition backend (model, network,
// remote API).
type RequestError struct {
	Backend string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s recognition request failed: %v", e.Backend, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Source blocks until one utterance has been captured and returns it as
// mono float32 PCM at SampleRate.
type Source interface {
	Listen(ctx context.Context) ([]float32, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, pcm []float32) (string, error)
}

type Listener struct {
	src Source
	rec Recognizer
}

func NewListener(src Source, rec Recognizer) (*Listener, error) {
	if src == nil {
		return nil, errors.New("stt: source is nil")
	}
	if rec == nil {
		return nil, errors.New("stt: recognizer is nil")
	}
	return &Listener{src: src, rec: rec}, nil
}

// Transcribe captures one utterance and recognises it.
func (l *Listener) Transcribe(ctx context.Context) (string, error) {
	pcm, err := l.src.Listen(ctx)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	if len(pcm) == 0 {
		return "", ErrUnknownValue
	}
	text, err := l.rec.Recognize(ctx, pcm)
	if err != nil {
		return "", err
	}
	return text, nil
}

// CleanTranscript drops non-speech markers whisper emits for silence and
// noise ("[BLANK_AUDIO]", "(music)") and collapses whitespace. An empty result
// means nothing was understood.
func CleanTranscript(segments []string) string {
	var parts []string
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if (s[0] == '[' || s[0] == '(') && (s[len(s)-1] == ']' || s[len(s)-1] == ')') {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
