package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nmoreau/askme/internal/chat"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.3-70b-versatile"
)

// groqAdapter speaks the OpenAI-compatible chat completions API that Groq
// exposes, with stream: true and SSE framing.
type groqAdapter struct {
	settings   Settings
	httpClient *http.Client
}

func newGroq(s Settings) (Adapter, error) {
	if s.APIKey == "" {
		return nil, &Error{Code: CodeMissingCredential, Message: "groq API key is not configured"}
	}
	s = s.withDefaults()
	if s.BaseURL == "" {
		s.BaseURL = defaultGroqBaseURL
	}
	if s.Model == "" {
		s.Model = defaultGroqModel
	}
	return &groqAdapter{settings: s, httpClient: newHTTPClient(s.Timeout)}, nil
}

func (a *groqAdapter) Name() string { return NameGroq }

type openAIChatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (a *groqAdapter) StreamChat(ctx context.Context, messages []chat.Message) (Stream, error) {
	msgs, err := prepareMessages(messages, a.settings.MaxMessageLength)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(openAIChatRequest{Model: a.settings.Model, Messages: msgs, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	return openWithRetry(ctx, a.settings.MaxRetries, a.settings.InitialBackoff, func(ctx context.Context) (Stream, error) {
		return a.open(ctx, body)
	})
}

func (a *groqAdapter) open(ctx context.Context, body []byte) (Stream, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.settings.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.settings.APIKey)
	req.Header.Set("Accept", "text/event-stream")

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

	return newSSEStream(resp.Body, cancel, parseOpenAIChunk), nil
}

func parseOpenAIChunk(payload []byte) (string, bool, error) {
	var chunk openAIChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return "", false, fmt.Errorf("decoding stream chunk: %w", err)
	}
	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	choice := chunk.Choices[0]
	if choice.FinishReason != nil && choice.Delta.Content == "" {
		return "", true, nil
	}
	return choice.Delta.Content, false, nil
}
