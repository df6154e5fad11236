package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WhisperConfig holds whisper.cpp CLI configuration.
type WhisperConfig struct {
	BinaryPath  string // whisper-cli binary; resolved via PATH when empty
	Model       string // model name (e.g. "base") or path to an existing ggml file
	ComputeType string // compute precision hint: "cpu" forces CPU inference
	VADModel    string // optional VAD model path; enables silence filtering
}

// WhisperCLI implements Engine on top of the whisper.cpp command-line tool.
// The binary and model are resolved once at construction; a missing engine is
// fatal at startup rather than reported per request.
type WhisperCLI struct {
	binaryPath  string
	modelPath   string
	modelName   string
	computeType string
	vadModel    string
	logger      zerolog.Logger
}

// NewWhisperCLI resolves the whisper binary and model and returns the engine.
func NewWhisperCLI(cfg WhisperConfig, logger zerolog.Logger) (*WhisperCLI, error) {
	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath = findWhisperBinary()
	} else if _, err := exec.LookPath(binaryPath); err != nil {
		return nil, fmt.Errorf("%w: binary %q not found", ErrEngineUnavailable, cfg.BinaryPath)
	}
	if binaryPath == "" {
		return nil, fmt.Errorf("%w: whisper-cli binary not found", ErrEngineUnavailable)
	}

	modelPath, err := resolveModelPath(cfg.Model)
	if err != nil {
		return nil, err
	}

	return &WhisperCLI{
		binaryPath:  binaryPath,
		modelPath:   modelPath,
		modelName:   cfg.Model,
		computeType: cfg.ComputeType,
		vadModel:    cfg.VADModel,
		logger:      logger.With().Str("component", "stt").Logger(),
	}, nil
}

// findWhisperBinary locates the whisper.cpp CLI, preferring whisper-cli over
// the older whisper name.
func findWhisperBinary() string {
	for _, name := range []string{"whisper-cli", "whisper"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	locations := []string{
		"/opt/homebrew/bin/whisper-cli",
		"/usr/local/bin/whisper-cli",
		"/usr/local/bin/whisper",
		"/usr/bin/whisper",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// resolveModelPath accepts either an existing file path or a bare model name
// looked up under ~/.nova/whisper as ggml-<name>.bin.
func resolveModelPath(model string) (string, error) {
	if model == "" {
		return "", fmt.Errorf("%w: model is required", ErrEngineUnavailable)
	}
	if _, err := os.Stat(model); err == nil {
		return model, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	path := filepath.Join(homeDir, ".nova", "whisper", "ggml-"+model+".bin")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: model %q not found (looked at %s)", ErrEngineUnavailable, model, path)
	}
	return path, nil
}

// ModelName returns the configured model name for status reporting.
func (w *WhisperCLI) ModelName() string {
	return w.modelName
}

// Transcribe runs whisper.cpp on the audio file and parses its JSON output.
func (w *WhisperCLI) Transcribe(ctx context.Context, path string, opts Options) (Result, error) {
	start := time.Now()

	language := opts.Language
	if language == "" {
		language = "en"
	}

	outBase := filepath.Join(os.TempDir(), "nova-whisper-"+uuid.NewString())
	jsonPath := outBase + ".json"
	defer os.Remove(jsonPath)

	args := []string{
		"--model", w.modelPath,
		"--language", language,
		"--output-json",
		"--output-file", outBase,
		"--no-prints",
	}
	if strings.EqualFold(w.computeType, "cpu") {
		args = append(args, "--no-gpu")
	}
	if w.vadModel != "" {
		args = append(args, "--vad", "--vad-model", w.vadModel)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, w.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		w.logger.Error().Err(err).Str("stderr", stderr.String()).Msg("whisper-cli failed")
		return Result{}, fmt.Errorf("%w: %v: %s", ErrTranscribe, err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read output: %v", ErrTranscribe, err)
	}

	result, err := parseTranscript(data)
	if err != nil {
		return Result{}, err
	}

	// whisper.cpp only reports timing for voiced segments; the container
	// header is authoritative for total duration when it can be read.
	if d := wavDuration(path); d > 0 {
		result.Duration = d
	}
	if result.Language == "" {
		result.Language = language
	}

	w.logger.Info().
		Str("language", result.Language).
		Float64("duration", result.Duration).
		Int("textLen", len(result.Text)).
		Dur("elapsed", time.Since(start)).
		Msg("Transcription complete")

	return result, nil
}

// parseTranscript decodes whisper.cpp's JSON output: segment texts are joined
// in order with no separator, then trimmed.
func parseTranscript(data []byte) (Result, error) {
	var out struct {
		Result struct {
			Language string `json:"language"`
		} `json:"result"`
		Transcription []struct {
			Offsets struct {
				From int64 `json:"from"`
				To   int64 `json:"to"`
			} `json:"offsets"`
			Text string `json:"text"`
		} `json:"transcription"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("%w: parse output: %v", ErrTranscribe, err)
	}

	var sb strings.Builder
	var lastEnd int64
	for _, seg := range out.Transcription {
		sb.WriteString(seg.Text)
		if seg.Offsets.To > lastEnd {
			lastEnd = seg.Offsets.To
		}
	}

	return Result{
		Text:     strings.TrimSpace(sb.String()),
		Language: out.Result.Language,
		Duration: float64(lastEnd) / 1000.0,
	}, nil
}
