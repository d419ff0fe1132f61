package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultSilenceMS     = 1500
	defaultSubframeMS    = 30
	defaultLookback      = 5
	defaultMaxSpeechSecs = 20.0
	defaultEnergyThresh  = 0.005
	defaultFrameSamples  = 512
	defaultJoinTimeout   = 2.0
	defaultStateDirLinux = ".local/state/palaver"
	defaultConfigDir     = ".config/palaver"
)

// DefaultSystemPrompt keeps the companion terse and conversational.
const DefaultSystemPrompt = `You are a conversational companion, like a friend over coffee. Keep it short.
Use casual contractions. Ask tiny follow-up questions. Offer brief advice.
Acknowledge briefly. No lists, no formalities, no emoji. Match the user's language.`

// Config holds user configuration loaded from TOML.
type Config struct {
	Audio struct {
		DeviceName   string `toml:"device_name"`
		SampleRate   int    `toml:"sample_rate"`
		Channels     int    `toml:"channels"`
		FrameSamples int    `toml:"frame_samples"`
	} `toml:"audio"`

	VAD struct {
		Aggressiveness int     `toml:"aggressiveness"`
		SubframeMS     int     `toml:"subframe_ms"`
		SilenceMS      int     `toml:"silence_ms"`
		EnergyThresh   float64 `toml:"energy_threshold"`
	} `toml:"vad"`

	Segment struct {
		LookbackFrames int     `toml:"lookback_frames"`
		MaxSpeechSecs  float64 `toml:"max_speech_secs"`
	} `toml:"segment"`

	ASR struct {
		ModelPath string `toml:"model_path"`
		Language  string `toml:"language"`
	} `toml:"asr"`

	Pipeline struct {
		Workers        int     `toml:"workers"`
		PollMS         int     `toml:"poll_ms"`
		JoinTimeoutSec float64 `toml:"join_timeout_sec"`
	} `toml:"pipeline"`

	LLM struct {
		Provider     string  `toml:"provider"` // ollama, openai, anthropic, ...
		Model        string  `toml:"model"`
		BaseURL      string  `toml:"base_url"`
		SystemPrompt string  `toml:"system_prompt"`
		Temperature  float64 `toml:"temperature"`
		MaxTokens    int     `toml:"max_tokens"`
	} `toml:"llm"`

	TTS struct {
		Enabled       bool    `toml:"enabled"`
		URL           string  `toml:"url"`
		Model         string  `toml:"model"`
		Voice         string  `toml:"voice"`
		Speed         float64 `toml:"speed"`
		PlayerCommand string  `toml:"player_command"` // empty = autodetect afplay/aplay
		TimeoutSec    float64 `toml:"timeout_sec"`
	} `toml:"tts"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir       string `toml:"state_dir"`
		LogPath        string `toml:"log_path"`
		TranscriptPath string `toml:"transcript_path"`
		ConfigPath     string `toml:"-"`
	} `toml:"paths"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`

	Transcripts struct {
		Enabled bool `toml:"enabled"`
	} `toml:"transcripts"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/palaver for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "palaver")
	}

	cfg := &Config{}

	cfg.Audio.SampleRate = 16000
	cfg.Audio.Channels = 1
	cfg.Audio.FrameSamples = defaultFrameSamples

	cfg.VAD.Aggressiveness = 2
	cfg.VAD.SubframeMS = defaultSubframeMS
	cfg.VAD.SilenceMS = defaultSilenceMS
	cfg.VAD.EnergyThresh = defaultEnergyThresh

	cfg.Segment.LookbackFrames = defaultLookback
	cfg.Segment.MaxSpeechSecs = defaultMaxSpeechSecs

	cfg.ASR.ModelPath = filepath.Join(stateDir, "models", "ggml-tiny-q5_1.bin")
	cfg.ASR.Language = "auto"

	cfg.Pipeline.Workers = 1
	cfg.Pipeline.PollMS = 500
	cfg.Pipeline.JoinTimeoutSec = defaultJoinTimeout

	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "cogito:14b"
	cfg.LLM.SystemPrompt = DefaultSystemPrompt

	cfg.TTS.Enabled = true
	cfg.TTS.URL = "http://127.0.0.1:8880/v1/audio/speech"
	cfg.TTS.Model = "kokoro"
	cfg.TTS.Voice = "af_heart"
	cfg.TTS.Speed = 1.0
	cfg.TTS.TimeoutSec = 30

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "palaver.log")
	cfg.Paths.TranscriptPath = filepath.Join(stateDir, "transcripts.log")

	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = "127.0.0.1:9321"

	cfg.Transcripts.Enabled = true

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects parameter combinations the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.Audio.Channels != 1 {
		return fmt.Errorf("only mono input supported; set audio.channels = 1")
	}
	switch cfg.Audio.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("sample_rate must be 8k/16k/32k/48k for webrtc VAD (got %d)", cfg.Audio.SampleRate)
	}
	if cfg.VAD.SubframeMS != 10 && cfg.VAD.SubframeMS != 20 && cfg.VAD.SubframeMS != 30 {
		return fmt.Errorf("vad.subframe_ms must be 10, 20, or 30 (got %d)", cfg.VAD.SubframeMS)
	}
	if cfg.VAD.SilenceMS <= 0 {
		return fmt.Errorf("vad.silence_ms must be positive (got %d)", cfg.VAD.SilenceMS)
	}
	if cfg.Audio.FrameSamples <= 0 {
		return fmt.Errorf("audio.frame_samples must be positive (got %d)", cfg.Audio.FrameSamples)
	}
	if cfg.Segment.MaxSpeechSecs <= 0 {
		return fmt.Errorf("segment.max_speech_secs must be positive (got %v)", cfg.Segment.MaxSpeechSecs)
	}
	if cfg.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1 (got %d)", cfg.Pipeline.Workers)
	}
	return nil
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath), filepath.Dir(cfg.Paths.TranscriptPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PALAVER_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("PALAVER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PALAVER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PALAVER_TTS_ENABLED"); v != "" {
		cfg.TTS.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
	if v := os.Getenv("PALAVER_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PALAVER_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("PALAVER_TRANSCRIPTS_ENABLED"); v != "" {
		cfg.Transcripts.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
}
