// Package tts provides speech synthesis via the local Piper binary.
// Piper is a fast neural text-to-speech system with ONNX voices.
// https://github.com/rhasspy/piper
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Common errors
var (
	// ErrNotConfigured means no usable synthesizer exists: the binary was not
	// resolved or no voice file is available. The HTTP layer maps it to 501.
	ErrNotConfigured = errors.New("piper TTS not configured")

	// ErrSynthesis means the synthesizer process ran and failed.
	ErrSynthesis = errors.New("piper synthesis failed")
)

// Synthesizer converts text to a WAV file on disk. Callers own the returned
// file and must remove it after consuming it.
type Synthesizer interface {
	// Ready reports whether synthesis can be attempted right now. The check
	// is fresh on every call; a voice file deleted at runtime flips this.
	Ready() error

	// Synthesize speaks text into a newly allocated WAV file and returns its
	// path.
	Synthesize(ctx context.Context, text string) (string, error)
}

// Config holds Piper configuration.
type Config struct {
	Binary string // binary name or path; resolved via PATH at startup
	Voice  string // path to a *.onnx voice file (with its *.json alongside)
}

// Piper runs the piper binary as a blocking subprocess per request.
type Piper struct {
	binaryPath string // empty when the binary could not be resolved
	voicePath  string
	logger     zerolog.Logger
}

// NewPiper resolves the binary and returns the synthesizer. Missing
// configuration is not an error here; it surfaces per request via Ready so
// the rest of the service can run without TTS.
func NewPiper(cfg Config, logger zerolog.Logger) *Piper {
	binaryPath, err := exec.LookPath(cfg.Binary)
	if err != nil {
		binaryPath = ""
	}

	return &Piper{
		binaryPath: binaryPath,
		voicePath:  cfg.Voice,
		logger:     logger.With().Str("component", "tts").Logger(),
	}
}

// BinaryPath returns the resolved binary path for status reporting.
func (p *Piper) BinaryPath() string {
	return p.binaryPath
}

// VoicePath returns the configured voice file path for status reporting.
func (p *Piper) VoicePath() string {
	return p.voicePath
}

// Ready checks binary resolution, voice configuration and the voice file's
// existence on disk.
func (p *Piper) Ready() error {
	if p.binaryPath == "" || p.voicePath == "" {
		return fmt.Errorf("%w: set PIPER_BIN and PIPER_VOICE", ErrNotConfigured)
	}
	if _, err := os.Stat(p.voicePath); err != nil {
		return fmt.Errorf("%w: voice file %s does not exist; set PIPER_BIN and PIPER_VOICE", ErrNotConfigured, p.voicePath)
	}
	return nil
}

// Synthesize invokes piper with the voice file, a fresh output path, and the
// literal text. On success the returned path holds a complete WAV file.
func (p *Piper) Synthesize(ctx context.Context, text string) (string, error) {
	if err := p.Ready(); err != nil {
		return "", err
	}

	outPath := filepath.Join(os.TempDir(), "nova-tts-"+uuid.NewString()+".wav")

	cmd := exec.CommandContext(ctx, p.binaryPath,
		"-m", p.voicePath,
		"-f", outPath,
		"-t", text,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		p.logger.Error().Err(err).Str("stderr", stderr.String()).Msg("Piper failed")
		return "", fmt.Errorf("%w: %v: %s", ErrSynthesis, err, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return "", fmt.Errorf("%w: no output produced: %v", ErrSynthesis, err)
	}

	p.logger.Debug().
		Str("voice", p.voicePath).
		Int64("audioBytes", info.Size()).
		Int("textLen", len(text)).
		Msg("Synthesis complete")

	return outPath, nil
}
