// Package whisper recognises speech locally with whisper.cpp.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"gpthome/pkg/stt"
)

type Options struct {
	Language      string // e.g. "auto", "en"
	TranslateToEn bool
	Threads       int // <=0 => NumCPU()
	InitialPrompt string
	BeamSize      int     // 0 = greedy
	EntropyThold  float32 // 0 = default
	Temperature   float32 // 0 = default
}

// Recognizer transcribes with a whisper.cpp ggml model.
type Recognizer struct {
	mu    sync.Mutex
	model whispercpp.Model
	opt   Options
}

func New(modelPath string, opt Options) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whispercpp.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Recognizer{model: m, opt: opt}, nil
}

func (w *Recognizer) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

// Recognize implements stt.Recognizer.
func (w *Recognizer) Recognize(ctx context.Context, pcm []float32) (string, error) {
	segs, err := w.segments(ctx, pcm)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &stt.RequestError{Backend: "whisper", Err: err}
	}
	text := stt.CleanTranscript(segs)
	if text == "" {
		return "", stt.ErrUnknownValue
	}
	return text, nil
}

// pcm must be mono @ 16 kHz, float32 in [-1, 1]
func (w *Recognizer) segments(ctx context.Context, pcm []float32) ([]string, error) {
	if w.model == nil {
		return nil, errors.New("nil model")
	}

	// a whisper context is not safe to share; one transcription at a time
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}

	lang := w.opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(w.opt.TranslateToEn)

	threads := w.opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if w.opt.BeamSize > 0 {
		wctx.SetBeamSize(w.opt.BeamSize)
	}
	if w.opt.EntropyThold != 0 {
		wctx.SetEntropyThold(w.opt.EntropyThold)
	}
	if w.opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(w.opt.InitialPrompt)
	}
	if w.opt.Temperature != 0 {
		wctx.SetTemperature(w.opt.Temperature)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	var segs []string
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, s.Text)
	}
	return segs, nil
}
