package server

import (
	"bufio"
	"io"
	"net/http"
	"strings"
)

// EventWriter emits server-sent-event frames. Each frame is an optional
// event: line, one data: line per physical payload line, and a terminating
// blank line; an event is never split across frames. The stream has already
// committed success headers by the time frames flow, so write failures (a
// disconnected client) are swallowed.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEventWriter prepares w for event-stream output and returns the writer.
// Returns false when the ResponseWriter cannot flush incrementally.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &EventWriter{w: w, flusher: flusher}, true
}

// Send writes one complete frame and flushes it.
func (e *EventWriter) Send(event, data string) {
	var sb strings.Builder
	if event != "" {
		sb.WriteString("event: ")
		sb.WriteString(event)
		sb.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	if _, err := io.WriteString(e.w, sb.String()); err != nil {
		return
	}
	e.flusher.Flush()
}

// Event is a parsed server-sent event.
type Event struct {
	Event string
	Data  string
}

// EventReader parses an event stream frame by frame. It exists for clients
// and tests consuming /chat_stream output.
type EventReader struct {
	reader *bufio.Reader
}

// NewEventReader creates a reader over an event stream.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{reader: bufio.NewReader(r)}
}

// Next returns the next event, or io.EOF at end of stream.
func (r *EventReader) Next() (*Event, error) {
	event := &Event{Event: "message"}
	var dataLines []string
	sawField := false

	for {
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && sawField {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			return nil, err
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		// Blank line terminates the frame.
		if line == "" {
			if sawField {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			continue
		}

		// Comment lines start with a colon.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := line, ""
		if idx := strings.Index(line, ":"); idx >= 0 {
			field = line[:idx]
			value = strings.TrimPrefix(line[idx+1:], " ")
		}

		switch field {
		case "event":
			event.Event = value
			sawField = true
		case "data":
			dataLines = append(dataLines, value)
			sawField = true
		}
	}
}
