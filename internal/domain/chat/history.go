package chat

import (
	"github.com/matiasleandrokruk/genhub/internal/domain/conversation"
	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
)

// AdaptHistory converts stored messages into request messages, one for one and in order.
// Roles other than user and assistant are sent as user messages prefixed with "[<role>] ".
func AdaptHistory(msgs []conversation.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case conversation.RoleUser:
			out[i] = llm.Message{Role: llm.RoleUser, Content: m.Content}
		case conversation.RoleAssistant:
			out[i] = llm.Message{Role: llm.RoleAssistant, Content: m.Content}
		default:
			out[i] = llm.Message{Role: llm.RoleUser, Content: "[" + m.Role + "] " + m.Content}
		}
	}
	return out
}
