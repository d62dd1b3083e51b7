package repositories

import "errors"

var (
	// ErrConversationNotFound is returned when a referenced conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound is returned when a referenced message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotAParticipant is returned when the actor lacks membership required
	// for the action.
	ErrNotAParticipant = errors.New("not a conversation participant")
	// ErrInvalidParticipants is returned for malformed participant sets: a
	// self-pair, a group below two members, or a group without a name.
	ErrInvalidParticipants = errors.New("invalid participants")
	// ErrConversationConflict is returned when a concurrent direct-conversation
	// creation race could not be resolved by re-fetching the winner.
	ErrConversationConflict = errors.New("conflicting conversation")
)
