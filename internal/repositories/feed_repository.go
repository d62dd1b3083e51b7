package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

// FeedRepository builds the per-user inbox projection.
type FeedRepository interface {
	BuildFeed(ctx context.Context, userID int64, scope models.FeedScope) ([]models.FeedRow, error)
}

// FeedRepo assembles feed rows from the conversation, message and participant
// ledgers. It is a read-only projection with no side effects.
type FeedRepo struct {
	db *sqlx.DB
}

// NewFeedRepo constructs a FeedRepo.
func NewFeedRepo(db *sqlx.DB) *FeedRepo {
	return &FeedRepo{db: db}
}

type feedScanRow struct {
	ID          uuid.UUID               `db:"id"`
	Type        models.ConversationType `db:"conversation_type"`
	Name        *string                 `db:"name"`
	Thumbnail   *string                 `db:"thumbnail"`
	CreatedAt   time.Time               `db:"created_at"`
	UpdatedAt   time.Time               `db:"updated_at"`
	IsPinned    bool                    `db:"is_pinned"`
	IsArchived  bool                    `db:"is_archived"`
	LastID      *uuid.UUID              `db:"last_message_id"`
	LastSender  *int64                  `db:"last_sender_id"`
	LastContent *string                 `db:"last_message_content"`
	LastType    *models.MessageType     `db:"last_message_type"`
	LastAt      *time.Time              `db:"last_message_created_at"`
}

// BuildFeed returns one row per conversation matching scope that the user
// belongs to, most recently active first. The latest message is resolved per
// conversation by maximum created_at with id as tiebreak.
func (r *FeedRepo) BuildFeed(ctx context.Context, userID int64, scope models.FeedScope) ([]models.FeedRow, error) {
	var scanned []feedScanRow
	err := r.db.SelectContext(ctx, &scanned,
		`SELECT c.id, c.conversation_type, c.name, c.thumbnail, c.created_at, c.updated_at,
                p.is_pinned, p.is_archived,
                lm.id AS last_message_id, lm.sender_id AS last_sender_id,
                lm.content AS last_message_content, lm.message_type AS last_message_type,
                lm.created_at AS last_message_created_at
         FROM conversations c
         INNER JOIN conversation_participants p ON p.conversation_id = c.id AND p.user_id = $1
         LEFT JOIN LATERAL (
             SELECT id, sender_id, content, message_type, created_at
             FROM messages WHERE conversation_id = c.id
             ORDER BY created_at DESC, id DESC LIMIT 1
         ) lm ON TRUE
         WHERE ($2 = 'all' OR c.conversation_type = $2)
         ORDER BY c.updated_at DESC`,
		userID, string(scope))
	if err != nil {
		return nil, err
	}
	if len(scanned) == 0 {
		return []models.FeedRow{}, nil
	}

	conversationIDs := make([]string, 0, len(scanned))
	for _, row := range scanned {
		conversationIDs = append(conversationIDs, row.ID.String())
	}
	peersByConversation, err := r.peersFor(ctx, conversationIDs, userID)
	if err != nil {
		return nil, err
	}

	feed := make([]models.FeedRow, 0, len(scanned))
	for _, row := range scanned {
		feedRow := models.FeedRow{
			ConversationID: row.ID,
			Type:           row.Type,
			Name:           row.Name,
			Thumbnail:      row.Thumbnail,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			IsPinned:       row.IsPinned,
			IsArchived:     row.IsArchived,
			Peers:          peersByConversation[row.ID],
		}
		if feedRow.Peers == nil {
			feedRow.Peers = []models.Peer{}
		}
		if row.LastID != nil {
			feedRow.LastMessage = &models.FeedMessage{
				ID:        *row.LastID,
				SenderID:  *row.LastSender,
				Content:   *row.LastContent,
				Type:      *row.LastType,
				CreatedAt: *row.LastAt,
			}
		}
		// Direct conversations surface the other participant directly and
		// borrow their avatar as the thumbnail.
		if row.Type == models.ConversationDirect && len(feedRow.Peers) > 0 {
			recipient := feedRow.Peers[0]
			feedRow.Recipient = &recipient
			if feedRow.Thumbnail == nil {
				feedRow.Thumbnail = recipient.PhotoURL
			}
		}
		feed = append(feed, feedRow)
	}
	return feed, nil
}

func (r *FeedRepo) peersFor(ctx context.Context, conversationIDs []string, userID int64) (map[uuid.UUID][]models.Peer, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT cp.conversation_id, u.id, u.first_name, u.last_name, u.photo_url
         FROM conversation_participants cp
         INNER JOIN users u ON u.id = cp.user_id
         WHERE cp.conversation_id = ANY($1::uuid[]) AND cp.user_id <> $2`,
		pq.Array(conversationIDs), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]models.Peer)
	for rows.Next() {
		var (
			conversationID uuid.UUID
			peer           models.Peer
		)
		if err := rows.Scan(&conversationID, &peer.ID, &peer.FirstName, &peer.LastName, &peer.PhotoURL); err != nil {
			return nil, err
		}
		result[conversationID] = append(result[conversationID], peer)
	}
	return result, rows.Err()
}
