// Package llm turns a provider variant, a model name and a message history into exactly
// one completion request against the backend's wire-scheme, and classifies its failures.
package llm

// Role is the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the request history.
type Message struct {
	Role    Role
	Content string
}

// GenerationConfig carries the sampling parameters of a single request.
// TopP is nil when the backend default should apply.
type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
	TopP        *float64
}

// DefaultGenerationConfig is used for conversation turns.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.7, MaxTokens: 4096}
}

// TitleGenerationConfig is used for the auto-titling request: deterministic and short.
func TitleGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0, MaxTokens: 32}
}
