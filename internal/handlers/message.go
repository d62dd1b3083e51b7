package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

// MessageHandler manages message endpoints: history, appends, the composite
// create-conversation-with-first-message operation and deletion.
type MessageHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	participants  repositories.ParticipantRepository
	users         repositories.UserRepository
	hub           *ws.Hub
	audit         *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, participants repositories.ParticipantRepository, users repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		messages:      messages,
		participants:  participants,
		users:         users,
		hub:           hub,
		audit:         audit,
	}
}

// ListMessages returns a conversation's full history, oldest first.
func (h *MessageHandler) ListMessages(c *gin.Context) {
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

	msgs, err := h.messages.ListByConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message to an existing conversation and broadcasts it.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID := c.GetInt64("userID")

	var req struct {
		Content     string             `json:"content"`
		MessageType models.MessageType `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := validateMessagePayload(req.Content, req.MessageType); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	msg, err := h.messages.Append(c.Request.Context(), conversationID, userID, req.Content, req.MessageType)
	switch {
	case errors.Is(err, repositories.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	case errors.Is(err, repositories.ErrNotAParticipant):
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	case err != nil:
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastMessage(conversationID, msg)
	}
	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

// CreateWithMessage starts a conversation with its first message: direct for
// a single peer, group otherwise. When the direct conversation already
// exists the message is appended there instead.
func (h *MessageHandler) CreateWithMessage(c *gin.Context) {
	userID := c.GetInt64("userID")

	var req struct {
		PeerIDs     []int64            `json:"peer_ids" binding:"required"`
		Content     string             `json:"content"`
		MessageType models.MessageType `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := validateMessagePayload(req.Content, req.MessageType); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	known, err := h.users.AllExist(c.Request.Context(), req.PeerIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate peers"})
		return
	}
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown peer"})
		return
	}

	// An existing direct conversation just receives the message.
	if len(req.PeerIDs) == 1 {
		convo, err := h.conversations.FindDirect(c.Request.Context(), userID, req.PeerIDs[0])
		if err == nil {
			msg, err := h.messages.Append(c.Request.Context(), convo.ID, userID, req.Content, req.MessageType)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
				return
			}
			if h.hub != nil {
				h.hub.BroadcastMessage(convo.ID, msg)
			}
			h.emitAudit(c, "INFO", "Message sent")
			c.JSON(http.StatusOK, gin.H{"message": msg, "conversation_id": convo.ID, "is_new": false})
			return
		}
		if !errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve conversation"})
			return
		}
	}

	msg, err := h.conversations.CreateWithMessage(c.Request.Context(), userID, req.PeerIDs, req.Content, req.MessageType)
	switch {
	case errors.Is(err, repositories.ErrInvalidParticipants):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participants"})
		return
	case errors.Is(err, repositories.ErrConversationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflicting conversation"})
		return
	case err != nil:
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	if h.hub != nil {
		if convo, err := h.conversations.GetConversation(c.Request.Context(), msg.ConversationID); err == nil {
			h.hub.BroadcastNewConversation(convo, &msg, append([]int64{userID}, req.PeerIDs...))
		}
		h.hub.BroadcastMessage(msg.ConversationID, msg)
	}
	h.emitAudit(c, "INFO", "Conversation started")
	c.JSON(http.StatusCreated, gin.H{"message": msg, "conversation_id": msg.ConversationID, "is_new": true})
}

// DeleteMessage hard-deletes one of the caller's own messages and returns the
// deleted row.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID := c.GetInt64("userID")

	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messages.Delete(c.Request.Context(), messageID, userID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		h.emitAudit(c, "ERROR", "message not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	h.emitAudit(c, "INFO", "Message deleted")
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// validateMessagePayload enforces the content rules: a known message type,
// and non-blank content for text messages.
func validateMessagePayload(content string, msgType models.MessageType) string {
	if !msgType.Valid() {
		return "invalid message type"
	}
	if msgType == models.MessageText && strings.TrimSpace(content) == "" {
		return "text messages need content"
	}
	return ""
}
