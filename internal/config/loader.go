package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	audioSources   = []string{"mic", "files"}
	sttBackends    = []string{"openai", "whisper"}
	ttsBackends    = []string{"espeak", "openai", "silent"}
	displayDrivers = []string{"ssd1306", "terminal", "none"}
)

// Load reads the YAML file at path over Defaults and validates the result.
// An empty path yields the validated defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Defaults()
		return cfg, Validate(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over Defaults and validates the result.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns every problem found in cfg, joined.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.EventLog == "" {
		errs = append(errs, errors.New("event_log is required"))
	}
	if cfg.Wake.Keyword == "" {
		errs = append(errs, errors.New("wake.keyword is required"))
	}

	errs = append(errs, oneOf("audio.source", cfg.Audio.Source, audioSources))
	if cfg.Audio.Source == "files" && cfg.Audio.ReplayDir == "" {
		errs = append(errs, errors.New("audio.replay_dir is required when audio.source is files"))
	}
	if cfg.Audio.SilenceThreshold <= 0 || cfg.Audio.SilenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("audio.silence_threshold %v must be in (0, 1)", cfg.Audio.SilenceThreshold))
	}
	if cfg.Audio.SilenceDuration <= 0 {
		errs = append(errs, errors.New("audio.silence_duration must be positive"))
	}
	if cfg.Audio.MaxPhrase < cfg.Audio.SilenceDuration {
		errs = append(errs, errors.New("audio.max_phrase must not be shorter than audio.silence_duration"))
	}
	if cfg.Audio.OutputRate <= 0 {
		errs = append(errs, errors.New("audio.output_rate must be positive"))
	}
	if d := cfg.Audio.Duck; d.Enabled {
		if d.Factor <= 0 || d.Factor > 1 {
			errs = append(errs, fmt.Errorf("audio.duck.factor %v must be in (0, 1]", d.Factor))
		}
		if d.MinVolume < 0 || d.MinVolume > 100 {
			errs = append(errs, fmt.Errorf("audio.duck.min_volume %d must be in [0, 100]", d.MinVolume))
		}
	}

	errs = append(errs, oneOf("stt.backend", cfg.STT.Backend, sttBackends))
	if cfg.STT.Backend == "whisper" && cfg.STT.WhisperModel == "" {
		errs = append(errs, errors.New("stt.whisper_model is required when stt.backend is whisper"))
	}

	errs = append(errs, oneOf("tts.backend", cfg.TTS.Backend, ttsBackends))
	if cfg.TTS.Speed != 0 && (cfg.TTS.Speed < 0.25 || cfg.TTS.Speed > 4) {
		errs = append(errs, fmt.Errorf("tts.speed %v must be in [0.25, 4]", cfg.TTS.Speed))
	}

	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if cfg.LLM.MaxTokens < 0 {
		errs = append(errs, errors.New("llm.max_tokens must not be negative"))
	}
	if cfg.OpenAI.Timeout < 0 {
		errs = append(errs, errors.New("openai.timeout must not be negative"))
	}
	if cfg.OpenAI.MaxRetries < 0 {
		errs = append(errs, errors.New("openai.max_retries must not be negative"))
	}

	errs = append(errs, oneOf("display.driver", cfg.Display.Driver, displayDrivers))
	if cfg.Display.Width <= 0 || cfg.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display size %dx%d must be positive", cfg.Display.Width, cfg.Display.Height))
	}

	if cfg.Network.PollInterval <= 0 {
		errs = append(errs, errors.New("network.poll_interval must be positive"))
	}

	return errors.Join(errs...)
}

func oneOf(field, v string, valid []string) error {
	if slices.Contains(valid, v) {
		return nil
	}
	return fmt.Errorf("%s %q is invalid; valid values: %v", field, v, valid)
}
