package conversation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matiasleandrokruk/genhub/internal/domain/apperr"
	"github.com/matiasleandrokruk/genhub/internal/domain/render"
)

// InsertMessage stores m and returns it with ID and CreatedAt filled in.
// A message may reference a conversation that does not exist yet.
func (s *Service) InsertMessage(ctx context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	m.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, role, content, model_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.ConversationID, m.Role, m.Content, m.ModelName, m.CreatedAt.Format(timeLayout))
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", apperr.FromSQL(err, entityMessage, m.ID))
	}
	return m, nil
}

// InsertBlocks stores the rendered blocks of one message in order, atomically.
func (s *Service) InsertBlocks(ctx context.Context, messageID string, blocks []render.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert blocks: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO message_blocks (message_id, position, type_, language, raw_content, rendered_content, copied)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert blocks: prepare: %w", err)
	}
	defer stmt.Close()

	for i, b := range blocks {
		var lang sql.NullString
		if b.Kind == render.KindCode {
			lang = sql.NullString{String: b.Language, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, messageID, i, string(b.Kind), lang, b.RawContent, b.RenderedContent, boolInt(b.Copied)); err != nil {
			return fmt.Errorf("insert block %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetMessages returns every message of a conversation in insertion order.
func (s *Service) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, model_name, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY seq ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var (
			m       Message
			created string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ModelName, &created); err != nil {
			return nil, fmt.Errorf("get messages: %w", err)
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMessagesWithBlocks is GetMessages plus each message's rendered blocks.
func (s *Service) GetMessagesWithBlocks(ctx context.Context, conversationID string) ([]Message, error) {
	msgs, err := s.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.message_id, b.type_, b.language, b.raw_content, b.rendered_content, b.copied
		FROM message_blocks b
		JOIN messages m ON m.id = b.message_id
		WHERE m.chat_id = ?
		ORDER BY b.message_id, b.position
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get message blocks: %w", err)
	}
	defer rows.Close()

	byMessage := map[string][]render.Block{}
	for rows.Next() {
		var (
			msgID, kind string
			lang        sql.NullString
			b           render.Block
			copied      int
		)
		if err := rows.Scan(&msgID, &kind, &lang, &b.RawContent, &b.RenderedContent, &copied); err != nil {
			return nil, fmt.Errorf("get message blocks: %w", err)
		}
		b.Kind = render.Kind(kind)
		b.Language = lang.String
		b.Copied = copied != 0
		byMessage[msgID] = append(byMessage[msgID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get message blocks: %w", err)
	}

	for i := range msgs {
		msgs[i].Blocks = byMessage[msgs[i].ID]
	}
	return msgs, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
