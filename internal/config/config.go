// Package config loads player configuration from a YAML file with sane
// defaults when no file exists.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Recognizer names accepted in the config.
const (
	RecognizerWhisperCLI = "whisper_cli"
	RecognizerOpenAI     = "openai"
	RecognizerStreamWS   = "stream_ws"
)

// Config is the full player configuration.
type Config struct {
	Recognizer    string   `yaml:"recognizer"`           // primary recognizer
	Fallback      string   `yaml:"fallback,omitempty"`   // optional fallback recognizer
	WindowSeconds int      `yaml:"window_seconds"`       // 0 = recognizer's own window
	WorkerPollMs  int      `yaml:"worker_poll_ms"`       // audio worker stop-flag poll interval
	Volume        int      `yaml:"volume"`               // initial volume 0-100
	ExportFormats []string `yaml:"export_formats"`       // transcript export: txt, srt, vtt

	WhisperCLI WhisperCLIConfig `yaml:"whisper_cli"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	StreamWS   StreamWSConfig   `yaml:"stream_ws"`
}

// WhisperCLIConfig configures the local whisper CLI recognizer.
type WhisperCLIConfig struct {
	BinaryPath     string `yaml:"binary_path"`
	ModelPath      string `yaml:"model_path"`
	Threads        int    `yaml:"threads"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// OpenAIConfig configures the OpenAI API recognizer. An empty APIKey falls
// back to the OPENAI_API_KEY env var.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// StreamWSConfig configures the streaming WebSocket recognizer.
type StreamWSConfig struct {
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	WindowSeconds int    `yaml:"window_seconds"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Recognizer:    RecognizerWhisperCLI,
		WorkerPollMs:  50,
		Volume:        100,
		ExportFormats: []string{"txt"},
		WhisperCLI: WhisperCLIConfig{
			BinaryPath:     "whisper-cpp",
			TimeoutSeconds: 300,
		},
	}
}

// DefaultPath is the user config location.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "tapedeck", "config.yaml")
}

// Load reads and validates the YAML config at path. A missing file yields
// the defaults rather than an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// Validate checks field ranges and recognizer names.
func (c *Config) Validate() error {
	switch c.Recognizer {
	case RecognizerWhisperCLI, RecognizerOpenAI, RecognizerStreamWS:
	default:
		return fmt.Errorf("config: unknown recognizer %q", c.Recognizer)
	}
	if c.Fallback != "" {
		switch c.Fallback {
		case RecognizerWhisperCLI, RecognizerOpenAI, RecognizerStreamWS:
		default:
			return fmt.Errorf("config: unknown fallback recognizer %q", c.Fallback)
		}
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("config: volume %d out of range 0-100", c.Volume)
	}
	if c.WindowSeconds < 0 {
		return fmt.Errorf("config: window_seconds must not be negative")
	}
	if c.WorkerPollMs < 0 {
		return fmt.Errorf("config: worker_poll_ms must not be negative")
	}
	for _, f := range c.ExportFormats {
		switch f {
		case "txt", "srt", "vtt":
		default:
			return fmt.Errorf("config: unknown export format %q", f)
		}
	}
	return nil
}
