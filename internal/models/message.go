package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies message content.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageReply MessageType = "reply"
	MessageDoc   MessageType = "doc"
	MessageLink  MessageType = "link"
	MessageMedia MessageType = "media"
)

// Valid reports whether the type is one of the known values.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageReply, MessageDoc, MessageLink, MessageMedia:
		return true
	}
	return false
}

// Message is an immutable entry in a conversation. Content may be empty only
// for non-text types.
type Message struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	ConversationID uuid.UUID   `db:"conversation_id" json:"conversation_id"`
	SenderID       int64       `db:"sender_id" json:"sender_id"`
	Content        string      `db:"content" json:"content"`
	Type           MessageType `db:"message_type" json:"message_type"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}
