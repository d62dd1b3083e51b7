package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// Hub maintains conversation rooms and the process-wide online-user set.
// Rooms multicast events to every socket of a conversation's participants;
// delivery is best-effort and never fails the state mutation that caused it.
type Hub struct {
	mu sync.RWMutex
	// rooms maps conversation id to the sockets admitted to it.
	rooms map[uuid.UUID]map[*websocket.Conn]bool
	// memberships is the reverse index used to clean up on disconnect.
	memberships map[*websocket.Conn]map[uuid.UUID]bool
	connInfo    map[*websocket.Conn]ConnInfo
	// userConns indexes sockets by user so freshly created conversations can
	// be fanned out to members whose sockets predate the room.
	userConns map[int64]map[*websocket.Conn]bool
	// online counts open connections per user; a user is online while >= 1.
	online map[int64]int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[uuid.UUID]map[*websocket.Conn]bool),
		memberships: make(map[*websocket.Conn]map[uuid.UUID]bool),
		connInfo:    make(map[*websocket.Conn]ConnInfo),
		userConns:   make(map[int64]map[*websocket.Conn]bool),
		online:      make(map[int64]int),
	}
}

// Register stores connection metadata. Called once per accepted socket.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connInfo[conn] = info
	if _, ok := h.userConns[info.UserID]; !ok {
		h.userConns[info.UserID] = make(map[*websocket.Conn]bool)
	}
	h.userConns[info.UserID][conn] = true
}

// Join admits the socket to a conversation's room. Idempotent.
func (h *Hub) Join(conversationID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(conversationID, conn)
}

// JoinAll bulk-admits the socket, e.g. on reconnect, so the client does not
// miss events for any of its conversations.
func (h *Hub) JoinAll(conn *websocket.Conn, conversationIDs []uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range conversationIDs {
		h.joinLocked(id, conn)
	}
}

func (h *Hub) joinLocked(conversationID uuid.UUID, conn *websocket.Conn) {
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[conversationID][conn] = true
	if _, ok := h.memberships[conn]; !ok {
		h.memberships[conn] = make(map[uuid.UUID]bool)
	}
	h.memberships[conn][conversationID] = true
}

// Leave removes the socket from every room and drops its metadata.
func (h *Hub) Leave(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conversationID := range h.memberships[conn] {
		h.removeLocked(conversationID, conn)
	}
	if info, ok := h.connInfo[conn]; ok {
		delete(h.userConns[info.UserID], conn)
		if len(h.userConns[info.UserID]) == 0 {
			delete(h.userConns, info.UserID)
		}
	}
	delete(h.memberships, conn)
	delete(h.connInfo, conn)
}

func (h *Hub) removeLocked(conversationID uuid.UUID, conn *websocket.Conn) {
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	if rooms, ok := h.memberships[conn]; ok {
		delete(rooms, conversationID)
	}
}

// SetOnline records one more open connection for the user. Returns true when
// the user just transitioned to online.
func (h *Hub) SetOnline(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.online[userID]++
	if h.online[userID] == 1 {
		observability.SetOnlineUsers(len(h.online))
		return true
	}
	return false
}

// SetOffline records a closed connection for the user. Returns true when the
// last connection went away and the user transitioned to offline. Calling it
// for a user who is already offline is a no-op.
func (h *Hub) SetOffline(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	count, ok := h.online[userID]
	if !ok {
		return false
	}
	if count <= 1 {
		delete(h.online, userID)
		observability.SetOnlineUsers(len(h.online))
		return true
	}
	h.online[userID]--
	return false
}

// IsOnline reports whether the user has at least one open connection.
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID] > 0
}

// OnlineUserIDs snapshots the online set.
func (h *Hub) OnlineUserIDs() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int64, 0, len(h.online))
	for id := range h.online {
		ids = append(ids, id)
	}
	return ids
}

// RoomSize reports the number of sockets in a conversation's room.
func (h *Hub) RoomSize(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// BroadcastMessage relays a stored message to every socket in the room,
// including the sender's, so multi-device clients stay in sync.
func (h *Hub) BroadcastMessage(conversationID uuid.UUID, msg models.Message) {
	h.broadcast(conversationID, models.RealtimeEvent{
		Type:           models.EventMessageCreated,
		ConversationID: conversationID,
		Message:        &msg,
	}, nil)
	observability.IncWSEvent(models.EventMessageCreated)
}

// BroadcastTyping relays typing state to the room. Fire and forget.
func (h *Hub) BroadcastTyping(conversationID uuid.UUID, userID int64, isTyping bool) {
	h.broadcast(conversationID, models.RealtimeEvent{
		Type:           models.EventTypingState,
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
	}, nil)
	observability.IncWSEvent(models.EventTypingState)
}

// BroadcastSeen relays a read receipt to the room, excluding the originating
// socket; the sender already knows its own position.
func (h *Hub) BroadcastSeen(conversationID uuid.UUID, receipt models.LastSeen, origin *websocket.Conn) {
	h.broadcast(conversationID, models.RealtimeEvent{
		Type:           models.EventSeenReceipt,
		ConversationID: conversationID,
		UserID:         receipt.UserID,
		Receipt:        &receipt,
	}, origin)
	observability.IncWSEvent(models.EventSeenReceipt)
}

// BroadcastPresence pushes the current online-id list to the rooms of the
// given conversations.
func (h *Hub) BroadcastPresence(conversationIDs []uuid.UUID) {
	online := h.OnlineUserIDs()
	for _, id := range conversationIDs {
		h.broadcast(id, models.RealtimeEvent{
			Type:           models.EventPresenceList,
			ConversationID: id,
			OnlineUserIDs:  online,
		}, nil)
	}
	observability.IncWSEvent(models.EventPresenceList)
}

// BroadcastNewConversation announces a freshly created conversation to its
// members. Their sockets predate the room, so every open socket of a member
// is admitted to the room first and then receives the event.
func (h *Hub) BroadcastNewConversation(convo models.Conversation, firstMessage *models.Message, memberIDs []int64) {
	h.mu.Lock()
	for _, userID := range memberIDs {
		for conn := range h.userConns[userID] {
			h.joinLocked(convo.ID, conn)
		}
	}
	h.mu.Unlock()

	h.broadcast(convo.ID, models.RealtimeEvent{
		Type:           models.EventNewConversation,
		ConversationID: convo.ID,
		Conversation:   &convo,
		Message:        firstMessage,
	}, nil)
	observability.IncWSEvent(models.EventNewConversation)
}

func (h *Hub) broadcast(conversationID uuid.UUID, event models.RealtimeEvent, exclude *websocket.Conn) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[conversationID]))
	for conn := range h.rooms[conversationID] {
		if conn != exclude {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", event.Type).Msg("marshal realtime event")
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warn().Err(err).Str("event", event.Type).Msg("websocket write failed, evicting connection")
			conn.Close()
			h.evict(conversationID, conn, err)
		}
	}
}

// evict drops a broken connection from one room and publishes a ws_error
// event for it. The failure never propagates to the caller.
func (h *Hub) evict(conversationID uuid.UUID, conn *websocket.Conn, cause error) {
	h.mu.Lock()
	info, known := h.connInfo[conn]
	h.removeLocked(conversationID, conn)
	h.mu.Unlock()

	observability.IncWSEvent("ws_error")
	if known {
		publishConnEvent(info, "ws_error", cause.Error())
	}
}
