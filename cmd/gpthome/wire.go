package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/faiface/beep"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"gpthome/internal/audio"
	"gpthome/internal/config"
	"gpthome/internal/display"
	"gpthome/internal/netcheck"
	"gpthome/internal/notify"
	"gpthome/internal/observe"
	"gpthome/internal/proxy"
	"gpthome/internal/tts"
	"gpthome/internal/tts/espeak"
	"gpthome/pkg/stt"
	"gpthome/pkg/stt/whisper"
)

// appName is how our own audio streams show up in PulseAudio.
const appName = "gpthome"

func openDisplay(cfg config.DisplayConfig) (*display.Reporter, error) {
	var (
		panel display.Panel
		err   error
	)
	switch cfg.Driver {
	case "ssd1306":
		panel, err = display.OpenSSD1306(display.SSD1306Options{
			Bus:     cfg.Bus,
			Width:   cfg.Width,
			Height:  cfg.Height,
			Rotated: cfg.Rotated,
		})
	case "terminal":
		panel, err = display.NewTerminal(cfg.Width, cfg.Height)
	default:
		panel = display.NewMemory(cfg.Width, cfg.Height)
	}
	if err != nil {
		return nil, err
	}

	return display.NewReporter(panel, display.Options{
		ScrollStep: cfg.ScrollStep,
		FrameDelay: cfg.FrameDelay,
	}), nil
}

func newOpenAIClient(cfg config.OpenAIConfig) (openai.Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return openai.Client{}, errors.New("OPENAI_API_KEY not set")
	}

	httpClient, err := proxy.NewHTTPClient(cfg.SocksProxy, cfg.Timeout)
	if err != nil {
		return openai.Client{}, fmt.Errorf("socks proxy %s: %w", cfg.SocksProxy, err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return openai.NewClient(opts...), nil
}

func newPlayer(cfg config.AudioConfig) *audio.Player {
	return audio.NewPlayer(beep.SampleRate(cfg.OutputRate))
}

func newSpeaker(cfg *config.Config, client openai.Client, player *audio.Player) (tts.Speaker, error) {
	var s tts.Speaker
	switch cfg.TTS.Backend {
	case "espeak":
		s = espeak.NewEspeak(cfg.TTS.Language, cfg.TTS.Rate)
	case "openai":
		s = tts.NewOpenAI(client, player, tts.OpenAIOptions{
			Model:        cfg.TTS.Model,
			Voice:        cfg.TTS.Voice,
			Speed:        cfg.TTS.Speed,
			Instructions: cfg.TTS.Instructions,
		})
	case "silent":
		s = tts.Silent{}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.TTS.Backend)
	}

	if d := cfg.Audio.Duck; d.Enabled {
		s = &tts.Ducked{
			Speaker: s,
			Ducker:  audio.NewDucker([]string{appName, "espeak-ng"}, d.MinVolume),
			Factor:  d.Factor,
			Fade:    d.Fade,
		}
	}
	return s, nil
}

func newSource(cfg config.AudioConfig) (stt.Source, func(), error) {
	switch cfg.Source {
	case "mic":
		rec := audio.NewRecorder(audio.RecorderConfig{
			SilenceThreshold: cfg.SilenceThreshold,
			SilenceDuration:  cfg.SilenceDuration,
			MaxPhrase:        cfg.MaxPhrase,
		})
		if err := rec.Init(); err != nil {
			return nil, nil, err
		}
		return rec, rec.Close, nil
	case "files":
		src, err := audio.NewFileSource(cfg.ReplayDir, cfg.ReplayLoop)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func newRecognizer(cfg config.STTConfig, client openai.Client) (stt.Recognizer, func(), error) {
	switch cfg.Backend {
	case "openai":
		return stt.NewOpenAI(client, stt.OpenAIOptions{
			Model:    cfg.Model,
			Language: cfg.Language,
			Prompt:   cfg.Prompt,
		}), func() {}, nil
	case "whisper":
		w, err := whisper.New(cfg.WhisperModel, whisper.Options{
			Language:      cfg.Language,
			Threads:       cfg.Threads,
			InitialPrompt: cfg.Prompt,
		})
		if err != nil {
			return nil, nil, err
		}
		return w, func() { _ = w.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func newChime(cfg config.AudioConfig, player *audio.Player) *notify.Chime {
	if cfg.Chime == "" {
		return nil
	}
	return notify.NewChime(player, cfg.Chime)
}

// countingProbe records failed startup polls.
type countingProbe struct {
	netcheck.Probe
	metrics *observe.Metrics
}

func (p *countingProbe) Connected(ctx context.Context) bool {
	ok := p.Probe.Connected(ctx)
	if !ok {
		p.metrics.NetworkDown.Add(ctx, 1)
	}
	return ok
}
