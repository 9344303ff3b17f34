package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nmoreau/askme/internal/chat"
)

// eventWriter serializes StreamEvents onto an SSE response. Once a
// terminal event (done or error) has been written, further writes are
// no-ops.
type eventWriter struct {
	w          http.ResponseWriter
	flusher    http.Flusher
	terminated bool
}

// newEventWriter commits SSE headers on the response. After this point
// errors can only be reported in-stream.
func newEventWriter(w http.ResponseWriter) (*eventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &eventWriter{w: w, flusher: flusher}, nil
}

func (ew *eventWriter) WriteContent(text string) error {
	if ew.terminated {
		return nil
	}
	return ew.write(chat.StreamEvent{Type: chat.EventContent, Data: text})
}

func (ew *eventWriter) WriteDone() {
	if ew.terminated {
		return
	}
	ew.terminated = true
	ew.write(chat.StreamEvent{Type: chat.EventDone})
}

func (ew *eventWriter) WriteError(code, msg string) {
	if ew.terminated {
		return
	}
	ew.terminated = true
	ew.write(chat.StreamEvent{Type: chat.EventError, Error: msg, Code: code})
}

func (ew *eventWriter) write(ev chat.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(ew.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	ew.flusher.Flush()
	return nil
}
