package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/normanking/novabackend/internal/chat"
	"github.com/normanking/novabackend/internal/metrics"
	"github.com/normanking/novabackend/internal/stt"
	"github.com/normanking/novabackend/internal/tts"
)

// wavChunkSize is the unit in which synthesized audio is streamed back.
const wavChunkSize = 8192

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps engine errors onto HTTP statuses: missing synthesis
// configuration is 501, everything else is a server error.
func errorStatus(err error) int {
	if errors.Is(err, tts.ErrNotConfigured) {
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// uploadErrorStatus distinguishes a malformed request from an engine failure.
func uploadErrorStatus(err error) int {
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// healthResponse reports the three engines independently; probing never
// fails the request itself.
type healthResponse struct {
	Mode     string         `json:"mode"`
	LMStudio lmStudioStatus `json:"lm_studio"`
	Whisper  whisperStatus  `json:"whisper"`
	Piper    piperStatus    `json:"piper"`
}

type lmStudioStatus struct {
	URL          string `json:"url"`
	OK           bool   `json:"ok"`
	Note         string `json:"note"`
	DefaultModel string `json:"default_model"`
}

type whisperStatus struct {
	Model   string `json:"model"`
	Compute string `json:"compute"`
	OK      bool   `json:"ok"`
}

type piperStatus struct {
	Bin   string `json:"bin"`
	Voice string `json:"voice"`
	OK    bool   `json:"ok"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LMStudio.ProbeTimeout)
	defer cancel()

	lm := lmStudioStatus{
		URL:          s.cfg.LMStudio.URL,
		DefaultModel: s.cfg.LMStudio.DefaultModel,
	}
	if err := s.chat.Ping(ctx); err != nil {
		lm.Note = err.Error()
	} else {
		lm.OK = true
		lm.Note = "ok"
	}

	piperBin := ""
	if sp, ok := s.tts.(interface{ BinaryPath() string }); ok {
		piperBin = sp.BinaryPath()
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Mode: "offline",
		LMStudio: lm,
		Whisper: whisperStatus{
			Model:   s.cfg.Whisper.Model,
			Compute: s.cfg.Whisper.ComputeType,
			OK:      true, // engine init failure is fatal at startup
		},
		Piper: piperStatus{
			Bin:   piperBin,
			Voice: s.cfg.Piper.Voice,
			OK:    s.tts.Ready() == nil,
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	model := r.FormValue("model")
	if model == "" {
		model = s.cfg.LMStudio.DefaultModel
	}

	start := time.Now()
	text, err := s.chat.Complete(r.Context(), prompt, model)
	metrics.EngineLatency.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"provider": "lmstudio",
		"model":    model,
		"text":     text,
	})
}

// handleChatStream fakes incremental delivery: one full completion is
// fetched off the handler goroutine, then re-chunked into token events.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	model := r.URL.Query().Get("model")

	ew, ok := NewEventWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ew.Send("start", `{"status":"starting"}`)

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		start := time.Now()
		text, err := s.chat.Complete(r.Context(), prompt, model)
		metrics.EngineLatency.WithLabelValues("chat").Observe(time.Since(start).Seconds())
		done <- outcome{text: text, err: err}
	}()

	res := <-done
	if res.err != nil {
		payload, _ := json.Marshal(map[string]string{"message": res.err.Error()})
		ew.Send("error", string(payload))
		ew.Send("end", `{"status":"error"}`)
		return
	}

	for _, piece := range chat.Chunks(res.text, chat.ChunkSize) {
		ew.Send("token", piece)
	}
	ew.Send("done", `{"status":"ok"}`)
	ew.Send("end", `{"status":"complete"}`)
}

// stageUpload persists the multipart upload to a uniquely named temp file,
// keeping the original extension so the engine can infer the container
// format. The returned cleanup runs on every exit path.
func stageUpload(r *http.Request) (string, func(), error) {
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	path := filepath.Join(os.TempDir(), "nova-stt-"+uuid.NewString()+filepath.Ext(hdr.Filename))
	out, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return "", nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}

	return path, func() { os.Remove(path) }, nil
}

func (s *Server) transcribeUpload(r *http.Request) (stt.Result, error) {
	path, cleanup, err := stageUpload(r)
	if err != nil {
		return stt.Result{}, err
	}
	defer cleanup()

	language := r.FormValue("language")
	if language == "" {
		language = "en"
	}

	start := time.Now()
	res, err := s.stt.Transcribe(r.Context(), path, stt.Options{Language: language})
	metrics.EngineLatency.WithLabelValues("stt").Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	res, err := s.transcribeUpload(r)
	if err != nil {
		writeError(w, uploadErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":     res.Text,
		"language": res.Language,
		"duration": res.Duration,
	})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if err := s.tts.Ready(); err != nil {
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	}

	start := time.Now()
	path, err := s.tts.Synthesize(r.Context(), r.FormValue("text"))
	metrics.EngineLatency.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)

	// Chunked copy; the file is removed only after the deferred remove runs,
	// i.e. once every byte has been handed to the connection.
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, wavChunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return // client went away; fail silently
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			return
		}
	}
}

func (s *Server) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	// Stage 1: transcription.
	res, err := s.transcribeUpload(r)
	if err != nil {
		writeError(w, uploadErrorStatus(err), err.Error())
		return
	}

	// Stage 2: chat.
	model := r.FormValue("model")
	if model == "" {
		model = s.cfg.LMStudio.DefaultModel
	}
	start := time.Now()
	reply, err := s.chat.Complete(r.Context(), res.Text, model)
	metrics.EngineLatency.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Stage 3: synthesis, encoded delivery.
	if err := s.tts.Ready(); err != nil {
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	}
	start = time.Now()
	path, err := s.tts.Synthesize(r.Context(), reply)
	metrics.EngineLatency.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	data, err := os.ReadFile(path)
	os.Remove(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"text":         reply,
		"mime":         "audio/wav",
		"audio_base64": base64.StdEncoding.EncodeToString(data),
		"prompt":       res.Text,
	})
}
