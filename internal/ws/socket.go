package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SocketHandler serves the realtime endpoint: it admits sockets into the
// rooms of their conversations and translates client events into core
// operations plus room broadcasts.
type SocketHandler struct {
	hub           *Hub
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	participants  repositories.ParticipantRepository
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, conversations repositories.ConversationRepository, messages repositories.MessageRepository, participants repositories.ParticipantRepository) *SocketHandler {
	return &SocketHandler{
		hub:           hub,
		conversations: conversations,
		messages:      messages,
		participants:  participants,
	}
}

// clientEvent is the envelope read from client sockets.
type clientEvent struct {
	Event          string             `json:"event"`
	ConversationID uuid.UUID          `json:"conversation_id"`
	MessageID      uuid.UUID          `json:"message_id"`
	PeerIDs        []int64            `json:"peer_ids"`
	Content        string             `json:"content"`
	MessageType    models.MessageType `json:"message_type"`
	IsTyping       bool               `json:"is_typing"`
	IsOnline       bool               `json:"is_online"`
}

// Handle upgrades the connection, marks the user online, joins all of the
// user's conversation rooms and then serves the event loop until disconnect.
func (h *SocketHandler) Handle(c *gin.Context) {
	userID := c.GetInt64("userID")

	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishConnEvent(info, "ws_connect", "")

	conversationIDs, err := h.participants.ListConversationIDsForUser(context.Background(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("list conversations on connect")
	}
	h.hub.JoinAll(conn, conversationIDs)
	if h.hub.SetOnline(userID) {
		h.hub.BroadcastPresence(conversationIDs)
	}

	var closeReason string
	defer func() {
		h.hub.Leave(conn)
		if h.hub.SetOffline(userID) {
			h.hub.BroadcastPresence(conversationIDs)
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishConnEvent(info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		var event clientEvent
		if err := conn.ReadJSON(&event); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishConnEvent(info, "ws_error", closeReason)
			}
			return
		}
		h.dispatch(conn, userID, event)
	}
}

func (h *SocketHandler) dispatch(conn *websocket.Conn, userID int64, event clientEvent) {
	ctx := context.Background()

	switch event.Event {
	case "join":
		member, err := h.participants.IsParticipant(ctx, event.ConversationID, userID)
		if err != nil || !member {
			log.Warn().Err(err).Int64("user_id", userID).Stringer("conversation_id", event.ConversationID).Msg("join refused")
			return
		}
		h.hub.Join(event.ConversationID, conn)

	case "join_all":
		ids, err := h.participants.ListConversationIDsForUser(ctx, userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("join_all failed")
			return
		}
		h.hub.JoinAll(conn, ids)

	case "message":
		msg, err := h.messages.Append(ctx, event.ConversationID, userID, event.Content, event.MessageType)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Stringer("conversation_id", event.ConversationID).Msg("append via socket failed")
			return
		}
		h.hub.BroadcastMessage(msg.ConversationID, msg)

	case "start":
		msg, err := h.conversations.CreateWithMessage(ctx, userID, event.PeerIDs, event.Content, event.MessageType)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("create conversation via socket failed")
			return
		}
		h.hub.Join(msg.ConversationID, conn)
		if convo, err := h.conversations.GetConversation(ctx, msg.ConversationID); err == nil {
			h.hub.BroadcastNewConversation(convo, &msg, append([]int64{userID}, event.PeerIDs...))
		}
		h.hub.BroadcastMessage(msg.ConversationID, msg)

	case "seen":
		receipt, err := h.participants.RecordSeen(ctx, userID, event.ConversationID, event.MessageID, time.Now().UTC())
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Stringer("conversation_id", event.ConversationID).Msg("record seen via socket failed")
			return
		}
		h.hub.BroadcastSeen(event.ConversationID, receipt, conn)

	case "typing":
		h.hub.BroadcastTyping(event.ConversationID, userID, event.IsTyping)

	case "presence":
		ids, err := h.participants.ListConversationIDsForUser(ctx, userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("presence fan-out failed")
			return
		}
		var changed bool
		if event.IsOnline {
			changed = h.hub.SetOnline(userID)
		} else {
			changed = h.hub.SetOffline(userID)
		}
		if changed {
			h.hub.BroadcastPresence(ids)
		}

	default:
		log.Debug().Str("event", event.Event).Msg("unknown socket event ignored")
	}
}

func publishConnEvent(info ConnInfo, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.messaging", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}
