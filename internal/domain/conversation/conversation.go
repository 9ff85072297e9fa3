// Package conversation stores chats, their messages and the rendered blocks of each message.
package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/domain/render"
	"github.com/matiasleandrokruk/genhub/pkg/uuid"
)

const (
	entityChat    = "Chat"
	entityMessage = "Message"

	// PlaceholderPrefix marks a conversation that has not been auto-titled yet.
	PlaceholderPrefix = "unnamed_new_chat_"

	// NoAPIKeyID is stored in chats.api_key_id; credentials are resolved per turn, not per chat.
	NoAPIKeyID = "NA"

	// Fixed-width UTC timestamps sort lexicographically in SQL.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// Message roles as stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is one chat thread.
type Conversation struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	Model        string    `json:"model"`
	Archived     bool      `json:"archived"`
	CreationDate time.Time `json:"creation_date"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Message is one utterance. ModelName is empty for user messages.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"chat_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	ModelName      string         `json:"model_name"`
	CreatedAt      time.Time      `json:"created_at"`
	Blocks         []render.Block `json:"blocks,omitempty"`
}

// PlaceholderName is the display name of a conversation created by its first turn.
func PlaceholderName(id string) string { return PlaceholderPrefix + id }

// IsPlaceholder reports whether name is still the placeholder.
func IsPlaceholder(name string) bool { return strings.HasPrefix(name, PlaceholderPrefix) }

// Service is the storage collaborator of the chat core.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service on db.
func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) stamp() string { return s.now().UTC().Format(timeLayout) }

func parseTime(v string) time.Time {
	t, _ := time.Parse(timeLayout, v)
	return t
}

// InsertConversation creates a chat. An existing id yields a *apperr.DuplicateError.
func (s *Service) InsertConversation(ctx context.Context, c Conversation) error {
	now := s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (id, model, api_key_id, display_name, archived, creation_date, last_updated)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, c.ID, c.Model, NoAPIKeyID, c.DisplayName, now, now)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", apperr.FromSQL(err, entityChat, c.ID))
	}
	return nil
}

// Get returns one conversation, archived or not.
func (s *Service) Get(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, model, archived, creation_date, last_updated
		FROM chats WHERE id = ?
	`, id)
	c, err := scanConversation(row)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", apperr.FromSQL(err, entityChat, id))
	}
	return c, nil
}

// GetDisplayName returns the conversation's name, or a *apperr.NotFoundError.
func (s *Service) GetDisplayName(ctx context.Context, id string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT display_name FROM chats WHERE id = ?`, id).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("get display name: %w", apperr.FromSQL(err, entityChat, id))
	}
	return name, nil
}

// List returns non-archived conversations, most recently updated first.
func (s *Service) List(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, model, archived, creation_date, last_updated
		FROM chats
		WHERE archived = 0
		ORDER BY last_updated DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []*Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateDisplayName renames a conversation and touches last_updated.
func (s *Service) UpdateDisplayName(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET display_name = ?, last_updated = ? WHERE id = ?`, name, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	if err := apperr.RequireAffected(res, entityChat, id); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

// UpdateTimestamp sets last_updated to now.
func (s *Service) UpdateTimestamp(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chats SET last_updated = ? WHERE id = ?`, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("update timestamp: %w", err)
	}
	if err := apperr.RequireAffected(res, entityChat, id); err != nil {
		return fmt.Errorf("update timestamp: %w", err)
	}
	return nil
}

// Archive hides a conversation from List. Its messages are kept.
func (s *Service) Archive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chats SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	if err := apperr.RequireAffected(res, entityChat, id); err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation with its messages; blocks cascade.
func (s *Service) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete conversation: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if err := apperr.RequireAffected(res, entityChat, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(r rowScanner) (*Conversation, error) {
	var (
		c                 Conversation
		archived          int
		created, modified string
	)
	if err := r.Scan(&c.ID, &c.DisplayName, &c.Model, &archived, &created, &modified); err != nil {
		return nil, err
	}
	c.Archived = archived != 0
	c.CreationDate = parseTime(created)
	c.LastUpdated = parseTime(modified)
	return &c, nil
}

// newID is swapped in tests.
var newID = uuid.NewString
