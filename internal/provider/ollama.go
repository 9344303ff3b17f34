package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nmoreau/askme/internal/chat"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
)

// ollamaAdapter talks to a local Ollama server. Ollama streams NDJSON rather
// than SSE: one JSON object per line, with done=true on the final line. No
// credential is required.
type ollamaAdapter struct {
	settings   Settings
	httpClient *http.Client
}

func newOllama(s Settings) (Adapter, error) {
	s = s.withDefaults()
	if s.BaseURL == "" {
		s.BaseURL = defaultOllamaBaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Model == "" {
		s.Model = defaultOllamaModel
	}
	return &ollamaAdapter{settings: s, httpClient: newHTTPClient(s.Timeout)}, nil
}

func (a *ollamaAdapter) Name() string { return NameOllama }

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

type ollamaChatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func (a *ollamaAdapter) StreamChat(ctx context.Context, messages []chat.Message) (Stream, error) {
	msgs, err := prepareMessages(messages, a.settings.MaxMessageLength)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(ollamaChatRequest{Model: a.settings.Model, Messages: msgs, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	return openWithRetry(ctx, a.settings.MaxRetries, a.settings.InitialBackoff, func(ctx context.Context) (Stream, error) {
		return a.open(ctx, body)
	})
}

func (a *ollamaAdapter) open(ctx context.Context, body []byte) (Stream, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.settings.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp.Body)
		cancel()
		return nil, classifyStatus(resp.StatusCode)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ndjsonStream{body: resp.Body, scanner: sc, cancel: cancel}, nil
}

// ndjsonStream reads Ollama's line-delimited JSON chat stream.
type ndjsonStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc

	finished bool
}

func (s *ndjsonStream) Recv() (string, error) {
	if s.finished {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.finished = true
			return "", Classify(fmt.Errorf("decoding stream chunk: %w", err))
		}
		if chunk.Error != "" {
			s.finished = true
			return "", &Error{Code: CodeUpstreamError, Message: "ollama reported a generation error", Retryable: false}
		}
		if chunk.Done && chunk.Message.Content == "" {
			s.finished = true
			return "", io.EOF
		}
		if chunk.Message.Content == "" {
			continue
		}
		if chunk.Done {
			// Final line may still carry text; deliver it and end on the
			// next Recv.
			s.finished = true
		}
		return chunk.Message.Content, nil
	}

	s.finished = true
	if err := s.scanner.Err(); err != nil {
		return "", Classify(err)
	}
	return "", io.EOF
}

func (s *ndjsonStream) Close() error {
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
