package server

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWriter_FrameFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, ok := NewEventWriter(rec)
	require.True(t, ok)

	ew.Send("start", `{"status":"starting"}`)
	ew.Send("token", "hello")
	ew.Send("", "no event name")

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"event: start\n"+
			"data: {\"status\":\"starting\"}\n"+
			"\n"+
			"event: token\n"+
			"data: hello\n"+
			"\n"+
			"data: no event name\n"+
			"\n",
		rec.Body.String())
}

func TestEventWriter_MultiLineData(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, ok := NewEventWriter(rec)
	require.True(t, ok)

	ew.Send("token", "line one\nline two")

	assert.Equal(t,
		"event: token\n"+
			"data: line one\n"+
			"data: line two\n"+
			"\n",
		rec.Body.String())
}

func TestEventRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, ok := NewEventWriter(rec)
	require.True(t, ok)

	payloads := []struct{ event, data string }{
		{"start", `{"status":"starting"}`},
		{"token", "first piece"},
		{"token", "with\nembedded\nnewlines"},
		{"done", `{"status":"ok"}`},
		{"end", `{"status":"complete"}`},
	}
	for _, p := range payloads {
		ew.Send(p.event, p.data)
	}

	reader := NewEventReader(strings.NewReader(rec.Body.String()))
	for _, want := range payloads {
		got, err := reader.Next()
		require.NoError(t, err)
		assert.Equal(t, want.event, got.Event)
		assert.Equal(t, want.data, got.Data)
	}

	_, err := reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEventReader_CommentsAndDefaults(t *testing.T) {
	stream := ": heartbeat\n" +
		"data: plain\n" +
		"\n"

	reader := NewEventReader(strings.NewReader(stream))
	ev, err := reader.Next()
	require.NoError(t, err)

	assert.Equal(t, "message", ev.Event, "missing event field defaults to message")
	assert.Equal(t, "plain", ev.Data)
}
