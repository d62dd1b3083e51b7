package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

// ConversationHandler manages conversation endpoints: inbox feed, creation,
// flags, peers and read receipts.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	participants  repositories.ParticipantRepository
	feed          repositories.FeedRepository
	users         repositories.UserRepository
	hub           *ws.Hub
	audit         *telemetry.AuditEmitter
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(conversations repositories.ConversationRepository, participants repositories.ParticipantRepository, feed repositories.FeedRepository, users repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		participants:  participants,
		feed:          feed,
		users:         users,
		hub:           hub,
		audit:         audit,
	}
}

// GetFeed returns the caller's inbox, most recently active first.
func (h *ConversationHandler) GetFeed(c *gin.Context) {
	userID := c.GetInt64("userID")

	scope, err := models.ParseFeedScope(c.Query("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feed, err := h.feed.BuildFeed(c.Request.Context(), userID, scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	if h.hub != nil {
		for i := range feed {
			overlayPresence(h.hub, feed[i].Peers)
			if feed[i].Recipient != nil {
				feed[i].Recipient.IsOnline = h.hub.IsOnline(feed[i].Recipient.ID)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": feed})
}

// ResolveDirect returns the direct conversation with a peer, creating it if
// it does not exist yet.
func (h *ConversationHandler) ResolveDirect(c *gin.Context) {
	userID := c.GetInt64("userID")

	var req struct {
		PeerID int64 `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exists, err := h.users.Exists(c.Request.Context(), req.PeerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify peer"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
		return
	}

	convo, err := h.conversations.ResolveOrCreateDirect(c.Request.Context(), userID, req.PeerID)
	switch {
	case errors.Is(err, repositories.ErrInvalidParticipants):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
		return
	case errors.Is(err, repositories.ErrConversationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflicting conversation"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve conversation"})
		return
	}

	h.emitAudit(c, "INFO", "Direct conversation resolved")
	c.JSON(http.StatusOK, gin.H{"conversation_id": convo.ID, "conversation": convo})
}

// CreateGroup creates a named group conversation.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt64("userID")

	var req struct {
		Name      string  `json:"name" binding:"required"`
		MemberIDs []int64 `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.MemberIDs) > 0 {
		known, err := h.users.AllExist(c.Request.Context(), req.MemberIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate members"})
			return
		}
		if !known {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown member"})
			return
		}
	}

	convo, err := h.conversations.CreateGroup(c.Request.Context(), userID, req.MemberIDs, req.Name)
	if errors.Is(err, repositories.ErrInvalidParticipants) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a group needs a name and at least one other member"})
		return
	}
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastNewConversation(convo, nil, append([]int64{userID}, req.MemberIDs...))
	}
	h.emitAudit(c, "INFO", "Group conversation created")
	c.JSON(http.StatusCreated, gin.H{"conversation": convo})
}

// GetConversation fetches one conversation the caller belongs to.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	member, err := h.participants.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	convo, err := h.conversations.GetConversation(c.Request.Context(), conversationID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": convo})
}

// ListPeers returns the other participants with read positions and live
// presence.
func (h *ConversationHandler) ListPeers(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	member, err := h.participants.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	peers, err := h.participants.ListPeers(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load peers"})
		return
	}
	if h.hub != nil {
		overlayPresence(h.hub, peers)
	}

	c.JSON(http.StatusOK, gin.H{"peers": peers})
}

// SetPinned toggles the caller's pin flag for a conversation.
func (h *ConversationHandler) SetPinned(c *gin.Context) {
	h.setFlag(c, "is_pinned", h.participants.SetPinned)
}

// SetArchived toggles the caller's archive flag for a conversation.
func (h *ConversationHandler) SetArchived(c *gin.Context) {
	h.setFlag(c, "is_archived", h.participants.SetArchived)
}

func (h *ConversationHandler) setFlag(c *gin.Context, field string, update func(ctx context.Context, userID int64, conversationID uuid.UUID, value bool) (bool, error)) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	var req struct {
		Value *bool `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := update(c.Request.Context(), userID, conversationID, *req.Value)
	if errors.Is(err, repositories.ErrNotAParticipant) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update conversation"})
		return
	}

	h.emitAudit(c, "INFO", "Conversation flag updated")
	c.JSON(http.StatusOK, gin.H{field: updated, "conversation_id": conversationID})
}

// MarkSeen records the caller's read position and notifies the room.
func (h *ConversationHandler) MarkSeen(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	var req struct {
		MessageID uuid.UUID `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.participants.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	receipt, err := h.participants.RecordSeen(c.Request.Context(), userID, conversationID, req.MessageID, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record read position"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastSeen(conversationID, receipt, nil)
	}
	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func overlayPresence(hub *ws.Hub, peers []models.Peer) {
	for i := range peers {
		peers[i].IsOnline = hub.IsOnline(peers[i].ID)
	}
}

func parseConversationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return uuid.Nil, false
	}
	return id, true
}
