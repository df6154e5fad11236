package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:1234", cfg.LMStudio.URL)
	assert.Equal(t, "default", cfg.LMStudio.DefaultModel)
	assert.Equal(t, 120*time.Second, cfg.LMStudio.Timeout)
	assert.Equal(t, 3*time.Second, cfg.LMStudio.ProbeTimeout)
	assert.Equal(t, "base", cfg.Whisper.Model)
	assert.Equal(t, "auto", cfg.Whisper.ComputeType)
	assert.Equal(t, "piper", cfg.Piper.Binary)
	assert.Empty(t, cfg.Piper.Voice)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LMSTUDIO_URL", "http://10.0.0.5:1234")
	t.Setenv("LMSTUDIO_MODEL", "qwen2.5-7b-instruct")
	t.Setenv("WHISPER_MODEL", "small")
	t.Setenv("WHISPER_COMPUTE_TYPE", "cpu")
	t.Setenv("PIPER_BIN", "/opt/piper/piper")
	t.Setenv("PIPER_VOICE", "/opt/piper/en_US-amy-medium.onnx")
	t.Setenv("NOVA_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:1234", cfg.LMStudio.URL)
	assert.Equal(t, "qwen2.5-7b-instruct", cfg.LMStudio.DefaultModel)
	assert.Equal(t, "small", cfg.Whisper.Model)
	assert.Equal(t, "cpu", cfg.Whisper.ComputeType)
	assert.Equal(t, "/opt/piper/piper", cfg.Piper.Binary)
	assert.Equal(t, "/opt/piper/en_US-amy-medium.onnx", cfg.Piper.Voice)
	assert.Equal(t, 9100, cfg.Server.Port)
}
