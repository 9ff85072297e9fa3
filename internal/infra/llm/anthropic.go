package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	TopP        *float64           `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// chatAnthropic calls the Messages API: POST {base}/v1/messages.
func (d *Dispatcher) chatAnthropic(ctx context.Context, t target, model string, history []Message, cfg GenerationConfig) (string, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultGenerationConfig().MaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    toAnthropicMessages(history),
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	})
	if err != nil {
		return "", err
	}

	headers := map[string]string{
		"x-api-key":         t.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := d.postJSON(ctx, strings.TrimRight(t.baseURL, "/")+"/v1/messages", headers, body, &resp); err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), nil
}

// toAnthropicMessages merges consecutive same-role entries; the Messages API requires alternating roles.
func toAnthropicMessages(history []Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(history))
	for _, m := range history {
		role := string(RoleUser)
		if m.Role == RoleAssistant {
			role = string(RoleAssistant)
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, anthropicMessage{Role: role, Content: m.Content})
	}
	return out
}
