// Package config provides configuration management for the Nova backend.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all process configuration. It is built once at startup and
// passed by reference to every subsystem; nothing mutates it afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LMStudio LMStudioConfig `mapstructure:"lmstudio"`
	Whisper  WhisperConfig  `mapstructure:"whisper"`
	Piper    PiperConfig    `mapstructure:"piper"`
	LogLevel string         `mapstructure:"log_level"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LMStudioConfig configures the chat-completion backend.
type LMStudioConfig struct {
	URL          string        `mapstructure:"url"`           // base URL, e.g. http://127.0.0.1:1234
	DefaultModel string        `mapstructure:"default_model"` // model id used when a request omits one
	Timeout      time.Duration `mapstructure:"timeout"`       // per-completion timeout
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"` // health probe timeout
}

// WhisperConfig configures the local transcription engine.
type WhisperConfig struct {
	BinaryPath  string `mapstructure:"binary_path"`  // whisper-cli binary; resolved via PATH when empty
	Model       string `mapstructure:"model"`        // model name (e.g. "base") or path to a ggml file
	ComputeType string `mapstructure:"compute_type"` // compute precision hint: auto, cpu, ...
	VADModel    string `mapstructure:"vad_model"`    // optional VAD model path for silence filtering
}

// PiperConfig configures the speech-synthesis binary.
type PiperConfig struct {
	Binary string `mapstructure:"binary"` // binary name or path; resolved via PATH
	Voice  string `mapstructure:"voice"`  // path to a *.onnx voice file
}

// DefaultConfig returns the defaults matching a stock local setup.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		LMStudio: LMStudioConfig{
			URL:          "http://127.0.0.1:1234",
			DefaultModel: "default",
			Timeout:      120 * time.Second,
			ProbeTimeout: 3 * time.Second,
		},
		Whisper: WhisperConfig{
			Model:       "base",
			ComputeType: "auto",
		},
		Piper: PiperConfig{
			Binary: "piper",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults and environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("lmstudio.url", cfg.LMStudio.URL)
	v.SetDefault("lmstudio.default_model", cfg.LMStudio.DefaultModel)
	v.SetDefault("lmstudio.timeout", cfg.LMStudio.Timeout)
	v.SetDefault("lmstudio.probe_timeout", cfg.LMStudio.ProbeTimeout)
	v.SetDefault("whisper.model", cfg.Whisper.Model)
	v.SetDefault("whisper.compute_type", cfg.Whisper.ComputeType)
	v.SetDefault("piper.binary", cfg.Piper.Binary)
	v.SetDefault("log_level", cfg.LogLevel)

	// Environment variable names match the existing deployment scripts.
	bindings := map[string]string{
		"server.host":            "NOVA_HOST",
		"server.port":            "NOVA_PORT",
		"lmstudio.url":           "LMSTUDIO_URL",
		"lmstudio.default_model": "LMSTUDIO_MODEL",
		"whisper.binary_path":    "WHISPER_BIN",
		"whisper.model":          "WHISPER_MODEL",
		"whisper.compute_type":   "WHISPER_COMPUTE_TYPE",
		"whisper.vad_model":      "WHISPER_VAD_MODEL",
		"piper.binary":           "PIPER_BIN",
		"piper.voice":            "PIPER_VOICE",
		"log_level":              "NOVA_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
