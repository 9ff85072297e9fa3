package llm

import (
	"context"
	"math"

	goopenai "github.com/sashabaranov/go-openai"
)

// chatCompat serves the OpenAI-compatible backends (Groq, Mistral) with go-openai.
func (d *Dispatcher) chatCompat(ctx context.Context, t target, model string, history []Message, cfg GenerationConfig) (string, error) {
	conf := goopenai.DefaultConfig(t.apiKey)
	conf.BaseURL = t.baseURL
	conf.HTTPClient = d.httpClient
	cli := goopenai.NewClientWithConfig(conf)

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toCompatMessages(history),
		Temperature: compatTemperature(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	}
	if cfg.TopP != nil {
		req.TopP = float32(*cfg.TopP)
	}

	resp, err := cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// compatTemperature keeps an explicit 0 on the wire; go-openai omits a zero float32.
func compatTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func toCompatMessages(history []Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(history))
	for i, m := range history {
		role := goopenai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		out[i] = goopenai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}
