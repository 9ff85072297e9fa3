package chat

import (
	"context"

	"github.com/matiasleandrokruk/genhub/internal/domain/conversation"
	"github.com/matiasleandrokruk/genhub/internal/domain/provider"
	"github.com/matiasleandrokruk/genhub/internal/domain/render"
	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
)

// Store is the persistence the orchestrator needs; satisfied by *conversation.Service.
type Store interface {
	InsertMessage(ctx context.Context, m conversation.Message) (conversation.Message, error)
	InsertBlocks(ctx context.Context, messageID string, blocks []render.Block) error
	GetMessages(ctx context.Context, conversationID string) ([]conversation.Message, error)
	GetDisplayName(ctx context.Context, conversationID string) (string, error)
	InsertConversation(ctx context.Context, c conversation.Conversation) error
	UpdateDisplayName(ctx context.Context, conversationID, name string) error
	UpdateTimestamp(ctx context.Context, conversationID string) error
}

// Credentials resolves a provider name to its record; satisfied by *provider.Service.
type Credentials interface {
	GetCredential(ctx context.Context, name string) (*provider.Provider, error)
}

// LLM sends one completion request; satisfied by *llm.Dispatcher.
type LLM interface {
	Dispatch(ctx context.Context, v llm.Variant, model string, history []llm.Message, cfg llm.GenerationConfig) (string, error)
}

// Renderer splits and renders message content; satisfied by *render.Renderer.
type Renderer interface {
	Render(raw, theme string) ([]render.Block, error)
}

// ThemeSource yields the current code theme; satisfied by *settings.Store.
type ThemeSource interface {
	CodeTheme() string
}

// Notifier publishes UI notifications; satisfied by *eventbus.Bus.
type Notifier interface {
	Publish(topic string, payload any)
}
