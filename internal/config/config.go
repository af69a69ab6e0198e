// Package config defines the YAML configuration of the assistant.
package config

import (
	log "log/slog"
	"time"
)

type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level; unknown values map to info.
func (l LogLevel) Level() log.Level {
	switch l {
	case LogDebug:
		return log.LevelDebug
	case LogWarn:
		return log.LevelWarn
	case LogError:
		return log.LevelError
	}
	return log.LevelInfo
}

type Config struct {
	LogLevel LogLevel `yaml:"log_level"`
	EventLog string   `yaml:"event_log"`

	Wake    WakeConfig    `yaml:"wake"`
	Audio   AudioConfig   `yaml:"audio"`
	STT     STTConfig     `yaml:"stt"`
	TTS     TTSConfig     `yaml:"tts"`
	LLM     LLMConfig     `yaml:"llm"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Display DisplayConfig `yaml:"display"`
	Network NetworkConfig `yaml:"network"`
	Web     WebConfig     `yaml:"web"`
	IPC     IPCConfig     `yaml:"ipc"`
}

// WakeConfig selects the wake word. ignore_case is advisable with the whisper
// and openai backends, which capitalise the start of a sentence.
type WakeConfig struct {
	Keyword    string `yaml:"keyword"`
	IgnoreCase bool   `yaml:"ignore_case"`
	Phonetic   bool   `yaml:"phonetic"`
}

type AudioConfig struct {
	// Source is "mic" or "files".
	Source     string `yaml:"source"`
	ReplayDir  string `yaml:"replay_dir"`
	ReplayLoop bool   `yaml:"replay_loop"`

	SilenceThreshold float64       `yaml:"silence_threshold"`
	SilenceDuration  time.Duration `yaml:"silence_duration"`
	MaxPhrase        time.Duration `yaml:"max_phrase"`

	// Chime is an MP3 played when listening starts; empty disables it.
	Chime      string     `yaml:"chime"`
	OutputRate int        `yaml:"output_rate"`
	Duck       DuckConfig `yaml:"duck"`
}

type DuckConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Factor    float64       `yaml:"factor"`
	Fade      time.Duration `yaml:"fade"`
	MinVolume int           `yaml:"min_volume"`
}

type STTConfig struct {
	// Backend is "openai" or "whisper".
	Backend  string `yaml:"backend"`
	Language string `yaml:"language"`
	Prompt   string `yaml:"prompt"`

	Model        string `yaml:"model"`
	WhisperModel string `yaml:"whisper_model"`
	Threads      int    `yaml:"threads"`
}

type TTSConfig struct {
	// Backend is "espeak", "openai" or "silent".
	Backend string `yaml:"backend"`

	Language string `yaml:"language"`
	Rate     int    `yaml:"rate"`

	Model        string  `yaml:"model"`
	Voice        string  `yaml:"voice"`
	Speed        float64 `yaml:"speed"`
	Instructions string  `yaml:"instructions"`
}

type LLMConfig struct {
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTokens    int64  `yaml:"max_tokens"`
}

// OpenAIConfig holds transport settings. The API key comes from
// OPENAI_API_KEY, never from the file.
type OpenAIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	SocksProxy string        `yaml:"socks_proxy"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type DisplayConfig struct {
	// Driver is "ssd1306", "terminal" or "none".
	Driver     string        `yaml:"driver"`
	Bus        string        `yaml:"bus"`
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	Rotated    bool          `yaml:"rotated"`
	ScrollStep int           `yaml:"scroll_step"`
	FrameDelay time.Duration `yaml:"frame_delay"`
}

type NetworkConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type WebConfig struct {
	// Listen is the dashboard API address; empty disables it.
	Listen string `yaml:"listen"`
}

type IPCConfig struct {
	// Socket is the control socket path; empty disables it.
	Socket string `yaml:"socket"`
}

func Defaults() *Config {
	return &Config{
		LogLevel: LogInfo,
		EventLog: "events.log",
		Wake: WakeConfig{
			Keyword: "computer",
		},
		Audio: AudioConfig{
			Source:           "mic",
			SilenceThreshold: 0.015,
			SilenceDuration:  600 * time.Millisecond,
			MaxPhrase:        10 * time.Second,
			OutputRate:       44100,
			Duck: DuckConfig{
				Factor:    0.3,
				Fade:      200 * time.Millisecond,
				MinVolume: 10,
			},
		},
		STT: STTConfig{
			Backend:  "openai",
			Language: "en",
			Model:    "whisper-1",
		},
		TTS: TTSConfig{
			Backend:  "espeak",
			Language: "en",
			Model:    "tts-1",
			Voice:    "alloy",
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		OpenAI: OpenAIConfig{
			MaxRetries: 2,
		},
		Display: DisplayConfig{
			Driver:     "ssd1306",
			Width:      128,
			Height:     32,
			Rotated:    true,
			ScrollStep: 2,
			FrameDelay: 40 * time.Millisecond,
		},
		Network: NetworkConfig{
			PollInterval: time.Second,
		},
		Web: WebConfig{
			Listen: ":8000",
		},
		IPC: IPCConfig{
			Socket: "/tmp/gpthome.sock",
		},
	}
}
