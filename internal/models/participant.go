package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant links a user to a conversation and carries the user's
// per-conversation flags. One row per (conversation, user) pair.
type Participant struct {
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	IsPinned       bool      `db:"is_pinned" json:"is_pinned"`
	IsArchived     bool      `db:"is_archived" json:"is_archived"`
}

// LastSeen is a user's read-position marker within a conversation. Upserts
// are last-writer-wins.
type LastSeen struct {
	UserID         int64     `db:"user_id" json:"user_id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	MessageID      uuid.UUID `db:"message_id" json:"message_id"`
	SeenAt         time.Time `db:"seen_at" json:"seen_at"`
}

// Peer is another participant of a conversation as surfaced to clients.
// IsOnline and IsTyping are live signals overlaid by the realtime dispatcher
// at read time; they default to false when unknown.
type Peer struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	PhotoURL  *string   `db:"photo_url" json:"photo_url,omitempty"`
	IsOnline  bool      `db:"-" json:"is_online"`
	IsTyping  bool      `db:"-" json:"is_typing"`
	LastSeen  *LastSeen `db:"-" json:"last_seen,omitempty"`
}
