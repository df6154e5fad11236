// Package stt provides speech-to-text transcription for the Nova backend.
package stt

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrEngineUnavailable = errors.New("transcription engine unavailable")
	ErrTranscribe        = errors.New("transcription failed")
)

// Engine converts a staged audio file into text. Implementations treat the
// file as opaque input; callers own the file's lifetime.
type Engine interface {
	// Transcribe runs the engine on the audio file at path.
	Transcribe(ctx context.Context, path string, opts Options) (Result, error)
}

// Options tune a single transcription call.
type Options struct {
	Language string // language hint, e.g. "en"; "auto" lets the engine detect
}

// Result is the outcome of one transcription.
type Result struct {
	Text     string  // segment texts concatenated in order, trimmed
	Language string  // engine-detected language code
	Duration float64 // total audio duration in seconds
}
