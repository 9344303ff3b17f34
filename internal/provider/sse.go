package provider

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// doneMarker is the OpenAI-style end-of-stream sentinel.
var doneMarker = []byte("[DONE]")

// sseStream reads server-sent `data: <json>` frames from an upstream
// response body and turns each into a text delta via parse. parse reports
// done=true when the frame signals end-of-stream.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	parse   func(payload []byte) (text string, done bool, err error)

	finished bool
}

func newSSEStream(body io.ReadCloser, cancel context.CancelFunc, parse func([]byte) (string, bool, error)) *sseStream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: body, scanner: sc, cancel: cancel, parse: parse}
}

func (s *sseStream) Recv() (string, error) {
	if s.finished {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data:")) {
			continue // comments, event names, keep-alives
		}
		payload := bytes.TrimSpace(line[len("data:"):])
		if bytes.Equal(payload, doneMarker) {
			s.finished = true
			return "", io.EOF
		}
		text, done, err := s.parse(payload)
		if err != nil {
			s.finished = true
			return "", Classify(err)
		}
		if done {
			s.finished = true
			return "", io.EOF
		}
		if text == "" {
			continue
		}
		return text, nil
	}

	s.finished = true
	if err := s.scanner.Err(); err != nil {
		return "", Classify(err)
	}
	return "", io.EOF
}

// Close releases the underlying connection and cancels the per-call context.
// Safe to call multiple times and after Recv returned io.EOF.
func (s *sseStream) Close() error {
	s.finished = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.body != nil {
		drainAndClose(s.body)
		s.body = nil
	}
	return nil
}
