// novad is the Nova offline backend: a local HTTP façade over an LM Studio
// compatible chat server, a whisper.cpp transcription engine, and the Piper
// speech synthesizer.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/normanking/novabackend/internal/chat"
	"github.com/normanking/novabackend/internal/config"
	"github.com/normanking/novabackend/internal/logging"
	"github.com/normanking/novabackend/internal/server"
	"github.com/normanking/novabackend/internal/stt"
	"github.com/normanking/novabackend/internal/tts"
)

func main() {
	// .env first so config.Load sees its variables.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, true)

	chatClient := chat.NewLMStudio(chat.Config{
		BaseURL:      cfg.LMStudio.URL,
		DefaultModel: cfg.LMStudio.DefaultModel,
		Timeout:      cfg.LMStudio.Timeout,
	}, logger)

	// A missing transcription engine is fatal; /health reports it as always
	// ok precisely because the process refuses to start without it.
	engine, err := stt.NewWhisperCLI(stt.WhisperConfig{
		BinaryPath:  cfg.Whisper.BinaryPath,
		Model:       cfg.Whisper.Model,
		ComputeType: cfg.Whisper.ComputeType,
		VADModel:    cfg.Whisper.VADModel,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Transcription engine init failed")
	}

	// Piper is optional: missing config only disables /tts and the voice
	// pipeline's synthesis stage.
	synth := tts.NewPiper(tts.Config{
		Binary: cfg.Piper.Binary,
		Voice:  cfg.Piper.Voice,
	}, logger)
	if err := synth.Ready(); err != nil {
		logger.Warn().Err(err).Msg("Speech synthesis disabled")
	}

	srv := server.New(cfg, logger, server.Deps{
		Chat: chatClient,
		STT:  engine,
		TTS:  synth,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Str("addr", addr).
			Str("lmStudio", cfg.LMStudio.URL).
			Str("whisperModel", cfg.Whisper.Model).
			Msg("Nova backend listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}
