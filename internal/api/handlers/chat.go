package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/genhub/internal/domain/chat"
	"github.com/matiasleandrokruk/genhub/internal/domain/conversation"
)

// TurnSender runs one chat turn; satisfied by *chat.Orchestrator.
type TurnSender interface {
	SendTurn(ctx context.Context, in chat.TurnInput) (string, error)
}

// ConversationService is the conversation storage used by the chat endpoints.
type ConversationService interface {
	List(ctx context.Context) ([]*conversation.Conversation, error)
	GetMessagesWithBlocks(ctx context.Context, conversationID string) ([]conversation.Message, error)
	UpdateDisplayName(ctx context.Context, id, name string) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ChatHandler serves conversations and turns.
type ChatHandler struct {
	turns TurnSender
	convs ConversationService
}

// NewChatHandler creates a new ChatHandler instance.
func NewChatHandler(turns TurnSender, convs ConversationService) *ChatHandler {
	return &ChatHandler{turns: turns, convs: convs}
}

// TurnResponse is the body returned by SendTurn.
type TurnResponse struct {
	ConversationID string `json:"chat_id"`
	Answer         string `json:"answer"`
}

type renameRequest struct {
	DisplayName string `json:"display_name"`
}

// SendTurn handles POST /api/v1/chats/{id}/turns.
// Backend failures arrive as the answer with 200; only a turn that could not run is an error.
func (h *ChatHandler) SendTurn(w http.ResponseWriter, r *http.Request) {
	var in chat.TurnInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.ConversationID = chi.URLParam(r, "id")

	answer, err := h.turns.SendTurn(r.Context(), in)
	if err != nil {
		writeServiceError(w, "send turn", err)
		return
	}
	writeJSON(w, http.StatusOK, TurnResponse{ConversationID: in.ConversationID, Answer: answer})
}

// ListChats handles GET /api/v1/chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	convs, err := h.convs.List(r.Context())
	if err != nil {
		writeServiceError(w, "list chats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": convs})
}

// ListMessages handles GET /api/v1/chats/{id}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.convs.GetMessagesWithBlocks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "load messages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": msgs})
}

// RenameChat handles PUT /api/v1/chats/{id}
func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	if err := h.convs.UpdateDisplayName(r.Context(), chi.URLParam(r, "id"), req.DisplayName); err != nil {
		writeServiceError(w, "rename chat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveChat handles POST /api/v1/chats/{id}/archive
func (h *ChatHandler) ArchiveChat(w http.ResponseWriter, r *http.Request) {
	if err := h.convs.Archive(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "archive chat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteChat handles DELETE /api/v1/chats/{id}
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.convs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete chat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
