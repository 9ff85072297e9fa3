package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"

	// maxErrorBody caps how much of a failed response is kept in the error text.
	maxErrorBody = 2048
)

// ─── Ollama JSON types ──────────────────────────────────────────────────────

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message    ollamaChatMessage `json:"message"`
	DoneReason string            `json:"done_reason"`
	Done       bool              `json:"done"`
	Error      string            `json:"error"`
}

// chatOllama performs a non-streaming chat via POST {base}/api/chat.
func (d *Dispatcher) chatOllama(ctx context.Context, t target, model string, history []Message, cfg GenerationConfig) (string, error) {
	msgs := make([]ollamaChatMessage, len(history))
	for i, m := range history {
		msgs[i] = ollamaChatMessage{Role: string(m.Role), Content: m.Content}
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Options:  ollamaOptions(cfg),
	})
	if err != nil {
		return "", err
	}

	headers := map[string]string{}
	if t.apiKey != "" {
		headers["Authorization"] = "Bearer " + t.apiKey
	}

	var resp ollamaChatResponse
	if err := d.postJSON(ctx, t.baseURL+"/api/chat", headers, body, &resp); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", resp.Error)
	}
	return resp.Message.Content, nil
}

func ollamaOptions(cfg GenerationConfig) map[string]any {
	opts := map[string]any{"temperature": cfg.Temperature}
	if cfg.MaxTokens > 0 {
		opts["num_predict"] = cfg.MaxTokens
	}
	if cfg.TopP != nil {
		opts["top_p"] = *cfg.TopP
	}
	return opts
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// postJSON sends body to url and decodes a 2xx JSON response into out.
// Non-2xx responses become a *statusError carrying the (truncated) body.
func (d *Dispatcher) postJSON(ctx context.Context, url string, headers map[string]string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(headerContentType, mimeJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
