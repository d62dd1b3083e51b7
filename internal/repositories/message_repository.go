package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// MessageRepository defines interactions with the message store.
type MessageRepository interface {
	Append(ctx context.Context, conversationID uuid.UUID, senderID int64, content string, msgType models.MessageType) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	SearchByContent(ctx context.Context, userID int64, query string) (map[uuid.UUID]models.Message, error)
	Delete(ctx context.Context, messageID uuid.UUID, senderID int64) (models.Message, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, message_type, created_at`

// Append stores a message and bumps the conversation's updated_at to the
// message timestamp so feed ordering stays correct. The sender must be a
// current participant; both checks run inside the insert transaction.
func (r *MessageRepo) Append(ctx context.Context, conversationID uuid.UUID, senderID int64, content string, msgType models.MessageType) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1)`, conversationID)
	if err != nil {
		return models.Message{}, err
	}
	if !exists {
		err = ErrConversationNotFound
		return models.Message{}, err
	}

	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2)`,
		conversationID, senderID)
	if err != nil {
		return models.Message{}, err
	}
	if !exists {
		err = ErrNotAParticipant
		return models.Message{}, err
	}

	var msg models.Message
	err = tx.GetContext(ctx, &msg,
		`INSERT INTO messages (id, conversation_id, sender_id, content, message_type) VALUES ($1, $2, $3, $4, $5)
         RETURNING `+messageColumns,
		uuid.New(), conversationID, senderID, content, msgType)
	if err != nil {
		return models.Message{}, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE conversations SET updated_at=$1 WHERE id=$2`, msg.CreatedAt, conversationID)
	if err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListByConversation returns all messages of a conversation, oldest first.
// Ties on created_at are broken by id so the order is total.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`,
		conversationID)
	return msgs, err
}

// SearchByContent finds, per conversation the user participates in, the most
// recent message whose content contains the query (case-insensitive).
// Whitespace-only messages never match; conversations without a match are
// omitted from the result.
func (r *MessageRepo) SearchByContent(ctx context.Context, userID int64, query string) (map[uuid.UUID]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT DISTINCT ON (m.conversation_id) m.id, m.conversation_id, m.sender_id, m.content, m.message_type, m.created_at
         FROM messages m
         INNER JOIN conversation_participants cp
             ON cp.conversation_id = m.conversation_id AND cp.user_id = $1
         WHERE m.content ILIKE '%' || $2 || '%' AND btrim(m.content) <> ''
         ORDER BY m.conversation_id, m.created_at DESC, m.id DESC`,
		userID, query)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]models.Message, len(msgs))
	for _, m := range msgs {
		result[m.ConversationID] = m
	}
	return result, nil
}

// Delete hard-deletes a message and returns the deleted row. Only the sender
// may delete; a message owned by someone else reads as not found so the
// endpoint does not leak message existence.
func (r *MessageRepo) Delete(ctx context.Context, messageID uuid.UUID, senderID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`DELETE FROM messages WHERE id=$1 AND sender_id=$2 RETURNING `+messageColumns,
		messageID, senderID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
