// Package server exposes the Nova backend's HTTP surface: health, chat,
// pseudo-streaming chat, transcription, synthesis, and the combined voice
// pipeline.
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/normanking/novabackend/internal/chat"
	"github.com/normanking/novabackend/internal/config"
	"github.com/normanking/novabackend/internal/stt"
	"github.com/normanking/novabackend/internal/tts"
)

// ChatBackend is what the handlers need from the chat adapter: full
// completions plus a reachability probe for /health.
type ChatBackend interface {
	chat.Completer
	Ping(ctx context.Context) error
}

// Deps carries the three engines behind the façade.
type Deps struct {
	Chat ChatBackend
	STT  stt.Engine
	TTS  tts.Synthesizer
}

// Server holds the handlers' shared, read-only state.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	chat   ChatBackend
	stt    stt.Engine
	tts    tts.Synthesizer
}

// New creates a Server. cfg is treated as immutable.
func New(cfg *config.Config, logger zerolog.Logger, deps Deps) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
		chat:   deps.Chat,
		stt:    deps.STT,
		tts:    deps.TTS,
	}
}

// Handler builds the route table wrapped in CORS, metrics and request
// logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.methodOnly(http.MethodGet, s.handleHealth))
	mux.HandleFunc("/chat", s.methodOnly(http.MethodPost, s.handleChat))
	mux.HandleFunc("/chat_stream", s.methodOnly(http.MethodGet, s.handleChatStream))
	mux.HandleFunc("/stt", s.methodOnly(http.MethodPost, s.handleSTT))
	mux.HandleFunc("/tts", s.methodOnly(http.MethodPost, s.handleTTS))
	mux.HandleFunc("/voice-chat", s.methodOnly(http.MethodPost, s.handleVoiceChat))
	mux.Handle("/metrics", promhttp.Handler())

	return withCORS(s.withObservability(mux))
}

// methodOnly rejects every method but the given one.
func (s *Server) methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}
