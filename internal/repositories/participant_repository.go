package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// ParticipantRepository is the membership, flag and read-position ledger.
type ParticipantRepository interface {
	SetPinned(ctx context.Context, userID int64, conversationID uuid.UUID, value bool) (bool, error)
	SetArchived(ctx context.Context, userID int64, conversationID uuid.UUID, value bool) (bool, error)
	ListConversationIDsForUser(ctx context.Context, userID int64) ([]uuid.UUID, error)
	IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error)
	RecordSeen(ctx context.Context, userID int64, conversationID, messageID uuid.UUID, seenAt time.Time) (models.LastSeen, error)
	ListPeers(ctx context.Context, conversationID uuid.UUID, userID int64) ([]models.Peer, error)
}

// ParticipantRepo is a sqlx implementation of ParticipantRepository.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// SetPinned updates the pin flag on the participant row and returns the new value.
func (r *ParticipantRepo) SetPinned(ctx context.Context, userID int64, conversationID uuid.UUID, value bool) (bool, error) {
	return r.setFlag(ctx, `UPDATE conversation_participants SET is_pinned=$1
        WHERE conversation_id=$2 AND user_id=$3 RETURNING is_pinned`, userID, conversationID, value)
}

// SetArchived updates the archive flag on the participant row and returns the new value.
func (r *ParticipantRepo) SetArchived(ctx context.Context, userID int64, conversationID uuid.UUID, value bool) (bool, error) {
	return r.setFlag(ctx, `UPDATE conversation_participants SET is_archived=$1
        WHERE conversation_id=$2 AND user_id=$3 RETURNING is_archived`, userID, conversationID, value)
}

func (r *ParticipantRepo) setFlag(ctx context.Context, query string, userID int64, conversationID uuid.UUID, value bool) (bool, error) {
	var updated bool
	err := r.db.GetContext(ctx, &updated, query, value, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotAParticipant
	}
	return updated, err
}

// ListConversationIDsForUser returns every conversation the user belongs to.
// An empty result is valid, not an error.
func (r *ParticipantRepo) ListConversationIDsForUser(ctx context.Context, userID int64) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids,
		`SELECT conversation_id FROM conversation_participants WHERE user_id=$1`, userID)
	return ids, err
}

// IsParticipant checks membership of a user in a conversation.
func (r *ParticipantRepo) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND user_id=$2)`,
		conversationID, userID)
	return exists, err
}

// RecordSeen upserts the user's read position in a conversation. The newest
// call wins unconditionally; no ordering check against the stored seen_at.
func (r *ParticipantRepo) RecordSeen(ctx context.Context, userID int64, conversationID, messageID uuid.UUID, seenAt time.Time) (models.LastSeen, error) {
	var receipt models.LastSeen
	err := r.db.GetContext(ctx, &receipt,
		`INSERT INTO last_seen (user_id, conversation_id, message_id, seen_at) VALUES ($1, $2, $3, $4)
         ON CONFLICT (user_id, conversation_id) DO UPDATE SET message_id=EXCLUDED.message_id, seen_at=EXCLUDED.seen_at
         RETURNING user_id, conversation_id, message_id, seen_at`,
		userID, conversationID, messageID, seenAt)
	return receipt, err
}

// ListPeers returns the other participants of a conversation together with
// their read positions. Presence and typing default to false here; the
// realtime dispatcher overlays live values.
func (r *ParticipantRepo) ListPeers(ctx context.Context, conversationID uuid.UUID, userID int64) ([]models.Peer, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT u.id, u.first_name, u.last_name, u.photo_url, ls.message_id, ls.seen_at
         FROM conversation_participants cp
         INNER JOIN users u ON u.id = cp.user_id
         LEFT JOIN last_seen ls ON ls.user_id = u.id AND ls.conversation_id = cp.conversation_id
         WHERE cp.conversation_id=$1 AND cp.user_id <> $2`,
		conversationID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []models.Peer
	for rows.Next() {
		var (
			peer      models.Peer
			messageID *uuid.UUID
			seenAt    *time.Time
		)
		if err := rows.Scan(&peer.ID, &peer.FirstName, &peer.LastName, &peer.PhotoURL, &messageID, &seenAt); err != nil {
			return nil, err
		}
		if messageID != nil && seenAt != nil {
			peer.LastSeen = &models.LastSeen{
				UserID:         peer.ID,
				ConversationID: conversationID,
				MessageID:      *messageID,
				SeenAt:         *seenAt,
			}
		}
		peers = append(peers, peer)
	}
	return peers, rows.Err()
}
