package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

const uniqueViolation = "23505"

// ConversationRepository resolves and creates conversations.
type ConversationRepository interface {
	ResolveOrCreateDirect(ctx context.Context, userA, userB int64) (models.Conversation, error)
	FindDirect(ctx context.Context, userA, userB int64) (models.Conversation, error)
	CreateGroup(ctx context.Context, creatorID int64, memberIDs []int64, name string) (models.Conversation, error)
	CreateWithMessage(ctx context.Context, creatorID int64, peerIDs []int64, content string, msgType models.MessageType) (models.Message, error)
	GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, conversation_type, name, thumbnail, direct_key, created_at, updated_at`

// directPairKey canonicalizes an unordered user pair. The unique constraint on
// this key is what makes concurrent direct-conversation creation safe.
func directPairKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

// FindDirect looks up the direct conversation between two users, if any.
func (r *ConversationRepo) FindDirect(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	var convo models.Conversation
	err := r.db.GetContext(ctx, &convo,
		`SELECT `+conversationColumns+` FROM conversations WHERE direct_key=$1`,
		directPairKey(userA, userB))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return convo, err
}

// ResolveOrCreateDirect returns the direct conversation between two users,
// creating it together with both participant rows when absent. Concurrent
// calls for the same pair converge on one conversation: the loser of the
// insert race re-fetches the winner's row.
func (r *ConversationRepo) ResolveOrCreateDirect(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	if userA == userB {
		return models.Conversation{}, ErrInvalidParticipants
	}

	convo, err := r.FindDirect(ctx, userA, userB)
	if err == nil {
		return convo, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return models.Conversation{}, err
	}

	convo, err = r.createDirect(ctx, userA, userB)
	if err == nil {
		return convo, nil
	}
	if isUniqueViolation(err) {
		convo, err = r.FindDirect(ctx, userA, userB)
		if errors.Is(err, ErrConversationNotFound) {
			return models.Conversation{}, ErrConversationConflict
		}
		return convo, err
	}
	return models.Conversation{}, err
}

func (r *ConversationRepo) createDirect(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var convo models.Conversation
	err = tx.GetContext(ctx, &convo,
		`INSERT INTO conversations (id, conversation_type, direct_key) VALUES ($1, 'direct', $2)
         RETURNING `+conversationColumns,
		uuid.New(), directPairKey(userA, userB))
	if err != nil {
		return models.Conversation{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2), ($1, $3)`,
		convo.ID, userA, userB)
	if err != nil {
		return models.Conversation{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return convo, nil
}

// CreateGroup creates a named group conversation and its participant rows in
// one transaction. The creator is always a member; the final member set must
// contain at least two distinct users.
func (r *ConversationRepo) CreateGroup(ctx context.Context, creatorID int64, memberIDs []int64, name string) (models.Conversation, error) {
	ids := dedupeMembers(creatorID, memberIDs)
	if len(ids) < 2 || name == "" {
		return models.Conversation{}, ErrInvalidParticipants
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var convo models.Conversation
	err = tx.GetContext(ctx, &convo,
		`INSERT INTO conversations (id, conversation_type, name) VALUES ($1, 'group', $2)
         RETURNING `+conversationColumns,
		uuid.New(), name)
	if err != nil {
		return models.Conversation{}, err
	}

	if err = insertParticipants(ctx, tx, convo.ID, ids); err != nil {
		return models.Conversation{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return convo, nil
}

// CreateWithMessage creates a conversation and appends its first message in a
// single transaction: direct for one peer, group otherwise. If a concurrent
// caller wins the direct insert race, the message lands in the winner's
// conversation instead.
func (r *ConversationRepo) CreateWithMessage(ctx context.Context, creatorID int64, peerIDs []int64, content string, msgType models.MessageType) (models.Message, error) {
	members := dedupeMembers(creatorID, peerIDs)
	if len(members) < 2 {
		return models.Message{}, ErrInvalidParticipants
	}

	direct := len(members) == 2
	msg, err := r.createWithMessage(ctx, creatorID, members, direct, content, msgType)
	if err == nil {
		return msg, nil
	}
	if direct && isUniqueViolation(err) {
		convo, ferr := r.FindDirect(ctx, members[0], members[1])
		if ferr != nil {
			return models.Message{}, ErrConversationConflict
		}
		return r.appendInExisting(ctx, convo.ID, creatorID, content, msgType)
	}
	return models.Message{}, err
}

func (r *ConversationRepo) createWithMessage(ctx context.Context, creatorID int64, members []int64, direct bool, content string, msgType models.MessageType) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var convoID uuid.UUID
	if direct {
		err = tx.GetContext(ctx, &convoID,
			`INSERT INTO conversations (id, conversation_type, direct_key) VALUES ($1, 'direct', $2) RETURNING id`,
			uuid.New(), directPairKey(members[0], members[1]))
	} else {
		err = tx.GetContext(ctx, &convoID,
			`INSERT INTO conversations (id, conversation_type) VALUES ($1, 'group') RETURNING id`,
			uuid.New())
	}
	if err != nil {
		return models.Message{}, err
	}

	if err = insertParticipants(ctx, tx, convoID, members); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = tx.GetContext(ctx, &msg,
		`INSERT INTO messages (id, conversation_id, sender_id, content, message_type) VALUES ($1, $2, $3, $4, $5)
         RETURNING id, conversation_id, sender_id, content, message_type, created_at`,
		uuid.New(), convoID, creatorID, content, msgType)
	if err != nil {
		return models.Message{}, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE conversations SET updated_at=$1 WHERE id=$2`, msg.CreatedAt, convoID)
	if err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (r *ConversationRepo) appendInExisting(ctx context.Context, conversationID uuid.UUID, senderID int64, content string, msgType models.MessageType) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	err = tx.GetContext(ctx, &msg,
		`INSERT INTO messages (id, conversation_id, sender_id, content, message_type) VALUES ($1, $2, $3, $4, $5)
         RETURNING id, conversation_id, sender_id, content, message_type, created_at`,
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

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	var convo models.Conversation
	err := r.db.GetContext(ctx, &convo,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return convo, err
}

func insertParticipants(ctx context.Context, tx *sqlx.Tx, conversationID uuid.UUID, memberIDs []int64) error {
	for _, id := range memberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`,
			conversationID, id); err != nil {
			return err
		}
	}
	return nil
}

func dedupeMembers(creatorID int64, memberIDs []int64) []int64 {
	set := map[int64]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		set[id] = struct{}{}
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
