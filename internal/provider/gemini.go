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
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
)

// geminiAdapter speaks the native Gemini streamGenerateContent API with SSE
// framing (alt=sse). Gemini separates the system instruction from the
// conversation and names the assistant role "model".
type geminiAdapter struct {
	settings   Settings
	httpClient *http.Client
}

func newGemini(s Settings) (Adapter, error) {
	if s.APIKey == "" {
		return nil, &Error{Code: CodeMissingCredential, Message: "gemini API key is not configured"}
	}
	s = s.withDefaults()
	if s.BaseURL == "" {
		s.BaseURL = defaultGeminiBaseURL
	}
	if s.Model == "" {
		s.Model = defaultGeminiModel
	}
	return &geminiAdapter{settings: s, httpClient: newHTTPClient(s.Timeout)}, nil
}

func (a *geminiAdapter) Name() string { return NameGemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (a *geminiAdapter) StreamChat(ctx context.Context, messages []chat.Message) (Stream, error) {
	msgs, err := prepareMessages(messages, a.settings.MaxMessageLength)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(toGeminiRequest(msgs))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	return openWithRetry(ctx, a.settings.MaxRetries, a.settings.InitialBackoff, func(ctx context.Context) (Stream, error) {
		return a.open(ctx, body)
	})
}

// toGeminiRequest lifts system messages into the systemInstruction field and
// renames assistant to model.
func toGeminiRequest(msgs []chat.Message) geminiRequest {
	var req geminiRequest
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			if req.SystemInstruction == nil {
				req.SystemInstruction = &geminiContent{}
			}
			req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, geminiPart{Text: m.Content})
		case chat.RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	return req
}

func (a *geminiAdapter) open(ctx context.Context, body []byte) (Stream, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", a.settings.BaseURL, a.settings.Model)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.settings.APIKey)

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

	return newSSEStream(resp.Body, cancel, parseGeminiChunk), nil
}

func parseGeminiChunk(payload []byte) (string, bool, error) {
	var chunk geminiChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return "", false, fmt.Errorf("decoding stream chunk: %w", err)
	}
	if len(chunk.Candidates) == 0 {
		return "", false, nil
	}
	cand := chunk.Candidates[0]
	var text string
	for _, p := range cand.Content.Parts {
		text += p.Text
	}
	// A finish reason on a chunk that still carries text must not swallow
	// the text; the next Recv hits natural EOF.
	if cand.FinishReason != "" && text == "" {
		return "", true, nil
	}
	return text, false, nil
}
