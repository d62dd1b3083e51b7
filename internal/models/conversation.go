package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationType distinguishes two-party conversations from named groups.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Valid reports whether the type is one of the known values.
func (t ConversationType) Valid() bool {
	return t == ConversationDirect || t == ConversationGroup
}

// Conversation is a direct or group conversation. A direct conversation has
// exactly two participants and carries a canonical sorted-pair key enforcing
// at most one conversation per pair.
type Conversation struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	Type      ConversationType `db:"conversation_type" json:"conversation_type"`
	Name      *string          `db:"name" json:"name,omitempty"`
	Thumbnail *string          `db:"thumbnail" json:"thumbnail,omitempty"`
	DirectKey *string          `db:"direct_key" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// FeedScope narrows the inbox view to one conversation type.
type FeedScope string

const (
	FeedScopeAll    FeedScope = "all"
	FeedScopeDirect FeedScope = "direct"
	FeedScopeGroup  FeedScope = "group"
)

// ParseFeedScope validates a scope string from the boundary. An empty value
// means "all"; anything unrecognized is rejected.
func ParseFeedScope(s string) (FeedScope, error) {
	switch FeedScope(s) {
	case "":
		return FeedScopeAll, nil
	case FeedScopeAll, FeedScopeDirect, FeedScopeGroup:
		return FeedScope(s), nil
	}
	return "", fmt.Errorf("invalid feed scope %q", s)
}

// SearchScope selects which ledgers a search request covers.
type SearchScope string

const (
	SearchScopeAll    SearchScope = "all"
	SearchScopePeople SearchScope = "people"
	SearchScopeChats  SearchScope = "chats"
)

// ParseSearchScope validates a search scope string from the boundary.
func ParseSearchScope(s string) (SearchScope, error) {
	switch SearchScope(s) {
	case "":
		return SearchScopeAll, nil
	case SearchScopeAll, SearchScopePeople, SearchScopeChats:
		return SearchScope(s), nil
	}
	return "", fmt.Errorf("invalid search scope %q", s)
}

// FeedMessage is the last-message preview embedded in a feed row.
type FeedMessage struct {
	ID        uuid.UUID   `json:"id"`
	SenderID  int64       `json:"sender_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"message_type"`
	CreatedAt time.Time   `json:"created_at"`
}

// FeedRow is one inbox entry: a conversation the user belongs to, enriched
// with the other participants, the latest message and the caller's flags.
type FeedRow struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	Type           ConversationType `json:"conversation_type"`
	Name           *string          `json:"name,omitempty"`
	Thumbnail      *string          `json:"thumbnail,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	IsPinned       bool             `json:"is_pinned"`
	IsArchived     bool             `json:"is_archived"`
	LastMessage    *FeedMessage     `json:"last_message,omitempty"`
	Peers          []Peer           `json:"peers"`
	// Recipient is the other participant, set on direct conversations only.
	Recipient *Peer `json:"recipient,omitempty"`
}
