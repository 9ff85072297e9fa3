package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
)

// maxFallbackTitle bounds the title taken from the user text when the model returns nothing usable.
const maxFallbackTitle = 32

const titlePrompt = `Please respond with the topic of the thread for these two messages:
'user': '%s',
'assistant': '%s'
Your response will be used to name the chat, therefore omit any other content from your response, keep it short (3 to 6 words) and use the language used in the prompt.
Do not use quotation marks. Capitalize the first letter of your answer.`

// TitlePrompt is the single synthetic message sent to name a conversation.
func TitlePrompt(userText, answer string) string {
	return fmt.Sprintf(titlePrompt, userText, answer)
}

// generateTitle asks v for a short topic. On dispatch failure the error text is the title.
func (o *Orchestrator) generateTitle(ctx context.Context, v llm.Variant, model, userText, answer string) string {
	history := []llm.Message{{Role: llm.RoleUser, Content: TitlePrompt(userText, answer)}}
	title, err := o.llm.Dispatch(ctx, v, model, history, llm.TitleGenerationConfig())
	if err != nil {
		o.logger.Warn("auto-title failed", "model", model, "error", err)
		return err.Error()
	}
	return cleanTitle(title, userText)
}

func cleanTitle(title, userText string) string {
	t := strings.TrimSpace(title)
	t = strings.Trim(t, "\"'`“”‘’")
	t = strings.TrimSpace(t)
	if t != "" {
		return t
	}
	return truncateRunes(strings.TrimSpace(userText), maxFallbackTitle)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
