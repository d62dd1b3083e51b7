package models

import "github.com/google/uuid"

// Realtime event type values emitted to clients.
const (
	EventMessageCreated  = "message"
	EventTypingState     = "typing"
	EventSeenReceipt     = "seen"
	EventPresenceList    = "presence"
	EventNewConversation = "new_conversation"
)

// RealtimeEvent is broadcast through websocket rooms.
type RealtimeEvent struct {
	Type           string        `json:"type"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	Message        *Message      `json:"message,omitempty"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	UserID         int64         `json:"user_id,omitempty"`
	IsTyping       bool          `json:"is_typing,omitempty"`
	Receipt        *LastSeen     `json:"receipt,omitempty"`
	OnlineUserIDs  []int64       `json:"online_user_ids,omitempty"`
}
