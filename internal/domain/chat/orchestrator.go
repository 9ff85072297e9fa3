// Package chat runs a conversation turn: persist the user message, dispatch the history
// to the chosen backend, persist the answer and auto-title new conversations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/domain/conversation"
	"github.com/matiasleandrokruk/genhub/internal/infra/eventbus"
	"github.com/matiasleandrokruk/genhub/internal/infra/llm"
	"github.com/matiasleandrokruk/genhub/internal/infra/settings"
)

var ErrInvalidTurn = errors.New("invalid turn")

// TurnInput is one user utterance addressed to provider/model in a conversation.
type TurnInput struct {
	ConversationID string `json:"-"`
	Text           string `json:"message"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

// Deps are the collaborators of an Orchestrator. Renderer, Theme and Events are optional.
type Deps struct {
	Store       Store
	Credentials Credentials
	LLM         LLM
	Renderer    Renderer
	Theme       ThemeSource
	Events      Notifier
	Logger      *slog.Logger
}

// Orchestrator holds no per-turn state; concurrent SendTurn calls are independent.
type Orchestrator struct {
	store  Store
	creds  Credentials
	llm    LLM
	render Renderer
	theme  ThemeSource
	events Notifier
	logger *slog.Logger
}

// NewOrchestrator wires an Orchestrator from d.
func NewOrchestrator(d Deps) *Orchestrator {
	o := &Orchestrator{
		store:  d.Store,
		creds:  d.Credentials,
		llm:    d.LLM,
		render: d.Renderer,
		theme:  d.Theme,
		events: d.Events,
		logger: d.Logger,
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// SendTurn runs one turn and returns the answer text. Backend failures are not errors:
// their message becomes the answer. An error means the turn could not run at all.
func (o *Orchestrator) SendTurn(ctx context.Context, in TurnInput) (string, error) {
	if strings.TrimSpace(in.ConversationID) == "" || strings.TrimSpace(in.Text) == "" {
		return "", fmt.Errorf("%w: conversation id and message are required", ErrInvalidTurn)
	}
	log := o.logger.With("conversation_id", in.ConversationID, "provider", in.Provider, "model", in.Model)

	// 1. user message; a storage failure is logged and the turn proceeds
	o.persistMessage(ctx, log, in.ConversationID, conversation.RoleUser, in.Text, "")

	// 2. conversation row
	if err := o.ensureConversation(ctx, log, in.ConversationID, in.Model); err != nil {
		return "", fmt.Errorf("send turn: %w", err)
	}

	// 3. credentials
	cred, err := o.creds.GetCredential(ctx, in.Provider)
	if err != nil {
		return "", fmt.Errorf("send turn: resolve provider %q: %w", in.Provider, err)
	}

	// 4. history, including the message from step 1
	stored, err := o.store.GetMessages(ctx, in.ConversationID)
	if err != nil {
		return "", fmt.Errorf("send turn: %w", err)
	}
	history := AdaptHistory(stored)

	// 5. dispatch
	variant, variantErr := cred.Variant()
	var answer string
	if variantErr != nil {
		log.Warn("provider variant unavailable", "error", variantErr)
		answer = variantErr.Error()
	} else {
		answer, err = o.llm.Dispatch(ctx, variant, in.Model, history, llm.DefaultGenerationConfig())
		if err != nil {
			answer = err.Error()
		}
	}

	// 6. assistant message
	o.persistMessage(ctx, log, in.ConversationID, conversation.RoleAssistant, answer, in.Model)

	// 7. title or touch
	o.finishConversation(ctx, log, in, variant, variantErr, answer)

	return answer, nil
}

// persistMessage stores one message with its display blocks. Every failure is logged, never returned:
// the turn goes on without the stored copy.
func (o *Orchestrator) persistMessage(ctx context.Context, log *slog.Logger, conversationID, role, content, model string) {
	m, err := o.store.InsertMessage(ctx, conversation.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		ModelName:      model,
	})
	if err != nil {
		log.Error("store message", "role", role, "error", err)
		return
	}

	if o.render != nil {
		blocks, renderErr := o.render.Render(content, o.codeTheme())
		if renderErr != nil {
			log.Warn("render message", "message_id", m.ID, "error", renderErr)
		}
		if err := o.store.InsertBlocks(ctx, m.ID, blocks); err != nil {
			log.Warn("store message blocks", "message_id", m.ID, "error", err)
		}
	}

	o.publish(eventbus.TopicNewMessage, conversationID)
}

// ensureConversation creates the conversation with its placeholder name on the first turn.
func (o *Orchestrator) ensureConversation(ctx context.Context, log *slog.Logger, id, model string) error {
	_, err := o.store.GetDisplayName(ctx, id)
	if err == nil {
		return nil
	}
	if !apperr.IsNotFound(err) {
		return fmt.Errorf("look up conversation: %w", err)
	}

	err = o.store.InsertConversation(ctx, conversation.Conversation{
		ID:          id,
		Model:       model,
		DisplayName: conversation.PlaceholderName(id),
	})
	switch {
	case err == nil:
		o.publish(eventbus.TopicNewChat, id)
	case apperr.IsDuplicate(err):
		log.Debug("conversation created by a concurrent turn")
	default:
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (o *Orchestrator) finishConversation(ctx context.Context, log *slog.Logger, in TurnInput, v llm.Variant, variantErr error, answer string) {
	name, err := o.store.GetDisplayName(ctx, in.ConversationID)
	if err != nil {
		log.Warn("conversation vanished before titling", "error", err)
		return
	}

	if !conversation.IsPlaceholder(name) {
		if err := o.store.UpdateTimestamp(ctx, in.ConversationID); err != nil {
			log.Warn("touch conversation", "error", err)
		}
		return
	}

	var title string
	if variantErr != nil {
		title = variantErr.Error()
	} else {
		title = o.generateTitle(ctx, v, in.Model, in.Text, answer)
	}
	if err := o.store.UpdateDisplayName(ctx, in.ConversationID, title); err != nil {
		log.Warn("store conversation title", "error", err)
		return
	}
	o.publish(eventbus.TopicNewChat, in.ConversationID)
}

func (o *Orchestrator) codeTheme() string {
	if o.theme == nil {
		return settings.DefaultCodeTheme
	}
	return o.theme.CodeTheme()
}

func (o *Orchestrator) publish(topic, conversationID string) {
	if o.events != nil {
		o.events.Publish(topic, conversationID)
	}
}
