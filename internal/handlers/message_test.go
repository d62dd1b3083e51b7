package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/ws"
)

type messageFixture struct {
	conversations *mocks.ConversationRepositoryMock
	messages      *mocks.MessageRepositoryMock
	participants  *mocks.ParticipantRepositoryMock
	users         *mocks.UserRepositoryMock
	router        *gin.Engine
}

func setupMessageRouter(t *testing.T) *messageFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &messageFixture{
		conversations: new(mocks.ConversationRepositoryMock),
		messages:      new(mocks.MessageRepositoryMock),
		participants:  new(mocks.ParticipantRepositoryMock),
		users:         new(mocks.UserRepositoryMock),
	}
	handler := NewMessageHandler(f.conversations, f.messages, f.participants, f.users, ws.NewHub(), nil)

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Next()
	})
	f.router.GET("/conversations/:conversation_id/messages", handler.ListMessages)
	f.router.POST("/conversations/:conversation_id/messages", handler.PostMessage)
	f.router.POST("/messages", handler.CreateWithMessage)
	f.router.DELETE("/messages/:message_id", handler.DeleteMessage)
	return f
}

func TestListMessagesOldestFirst(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	msgs := []models.Message{
		{ID: uuid.New(), ConversationID: conversationID, SenderID: 1, Content: "first", Type: models.MessageText, CreatedAt: time.Now().Add(-time.Minute)},
		{ID: uuid.New(), ConversationID: conversationID, SenderID: 2, Content: "second", Type: models.MessageText, CreatedAt: time.Now()},
	}
	f.participants.On("IsParticipant", mock.Anything, conversationID, int64(1)).Return(true, nil).Once()
	f.messages.On("ListByConversation", mock.Anything, conversationID).Return(msgs, nil).Once()

	w := performJSON(t, f.router, http.MethodGet, "/conversations/"+conversationID.String()+"/messages", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "first", resp.Messages[0].Content)
	assert.Equal(t, "second", resp.Messages[1].Content)
}

func TestListMessagesEmptyConversation(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	f.participants.On("IsParticipant", mock.Anything, conversationID, int64(1)).Return(true, nil).Once()
	f.messages.On("ListByConversation", mock.Anything, conversationID).Return(nil, nil).Once()

	w := performJSON(t, f.router, http.MethodGet, "/conversations/"+conversationID.String()+"/messages", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestListMessagesRequiresMembership(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	f.participants.On("IsParticipant", mock.Anything, conversationID, int64(1)).Return(false, nil).Once()

	w := performJSON(t, f.router, http.MethodGet, "/conversations/"+conversationID.String()+"/messages", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	f.messages.AssertNotCalled(t, "ListByConversation")
}

func TestPostMessage(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	stored := models.Message{ID: uuid.New(), ConversationID: conversationID, SenderID: 1, Content: "hey", Type: models.MessageText}
	f.messages.On("Append", mock.Anything, conversationID, int64(1), "hey", models.MessageText).Return(stored, nil).Once()

	w := performJSON(t, f.router, http.MethodPost, "/conversations/"+conversationID.String()+"/messages",
		gin.H{"content": "hey", "message_type": "text"})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, stored.ID, resp.ID)
	f.messages.AssertExpectations(t)
}

func TestPostMessageRejectsBlankText(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()

	w := performJSON(t, f.router, http.MethodPost, "/conversations/"+conversationID.String()+"/messages",
		gin.H{"content": "   ", "message_type": "text"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.messages.AssertNotCalled(t, "Append")
}

func TestPostMessageRejectsUnknownType(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()

	w := performJSON(t, f.router, http.MethodPost, "/conversations/"+conversationID.String()+"/messages",
		gin.H{"content": "hi", "message_type": "sticker"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.messages.AssertNotCalled(t, "Append")
}

func TestPostMessageConversationGone(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	f.messages.On("Append", mock.Anything, conversationID, int64(1), "hi", models.MessageText).
		Return(nil, repositories.ErrConversationNotFound).Once()

	w := performJSON(t, f.router, http.MethodPost, "/conversations/"+conversationID.String()+"/messages",
		gin.H{"content": "hi", "message_type": "text"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessageAsNonParticipant(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	f.messages.On("Append", mock.Anything, conversationID, int64(1), "hi", models.MessageText).
		Return(nil, repositories.ErrNotAParticipant).Once()

	w := performJSON(t, f.router, http.MethodPost, "/conversations/"+conversationID.String()+"/messages",
		gin.H{"content": "hi", "message_type": "text"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateWithMessageReusesExistingDirect(t *testing.T) {
	f := setupMessageRouter(t)
	convo := models.Conversation{ID: uuid.New(), Type: models.ConversationDirect}
	stored := models.Message{ID: uuid.New(), ConversationID: convo.ID, SenderID: 1, Content: "hello again", Type: models.MessageText}

	f.users.On("AllExist", mock.Anything, []int64{2}).Return(true, nil).Once()
	f.conversations.On("FindDirect", mock.Anything, int64(1), int64(2)).Return(convo, nil).Once()
	f.messages.On("Append", mock.Anything, convo.ID, int64(1), "hello again", models.MessageText).Return(stored, nil).Once()

	w := performJSON(t, f.router, http.MethodPost, "/messages",
		gin.H{"peer_ids": []int64{2}, "content": "hello again", "message_type": "text"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		ConversationID uuid.UUID `json:"conversation_id"`
		IsNew          bool      `json:"is_new"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, convo.ID, resp.ConversationID)
	assert.False(t, resp.IsNew)
	f.conversations.AssertNotCalled(t, "CreateWithMessage")
}

func TestCreateWithMessageStartsDirect(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	stored := models.Message{ID: uuid.New(), ConversationID: conversationID, SenderID: 1, Content: "hello", Type: models.MessageText}

	f.users.On("AllExist", mock.Anything, []int64{2}).Return(true, nil).Once()
	f.conversations.On("FindDirect", mock.Anything, int64(1), int64(2)).
		Return(nil, repositories.ErrConversationNotFound).Once()
	f.conversations.On("CreateWithMessage", mock.Anything, int64(1), []int64{2}, "hello", models.MessageText).Return(stored, nil).Once()
	f.conversations.On("GetConversation", mock.Anything, conversationID).
		Return(models.Conversation{ID: conversationID, Type: models.ConversationDirect}, nil).Once()

	w := performJSON(t, f.router, http.MethodPost, "/messages",
		gin.H{"peer_ids": []int64{2}, "content": "hello", "message_type": "text"})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		ConversationID uuid.UUID `json:"conversation_id"`
		IsNew          bool      `json:"is_new"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, conversationID, resp.ConversationID)
	assert.True(t, resp.IsNew)
	f.conversations.AssertExpectations(t)
}

func TestCreateWithMessageStartsGroup(t *testing.T) {
	f := setupMessageRouter(t)
	conversationID := uuid.New()
	stored := models.Message{ID: uuid.New(), ConversationID: conversationID, SenderID: 1, Content: "kickoff", Type: models.MessageText}

	f.users.On("AllExist", mock.Anything, []int64{2, 3}).Return(true, nil).Once()
	f.conversations.On("CreateWithMessage", mock.Anything, int64(1), []int64{2, 3}, "kickoff", models.MessageText).Return(stored, nil).Once()
	f.conversations.On("GetConversation", mock.Anything, conversationID).
		Return(models.Conversation{ID: conversationID, Type: models.ConversationGroup}, nil).Once()

	w := performJSON(t, f.router, http.MethodPost, "/messages",
		gin.H{"peer_ids": []int64{2, 3}, "content": "kickoff", "message_type": "text"})

	assert.Equal(t, http.StatusCreated, w.Code)
	f.conversations.AssertNotCalled(t, "FindDirect")
}

func TestCreateWithMessageUnknownPeer(t *testing.T) {
	f := setupMessageRouter(t)
	f.users.On("AllExist", mock.Anything, []int64{404}).Return(false, nil).Once()

	w := performJSON(t, f.router, http.MethodPost, "/messages",
		gin.H{"peer_ids": []int64{404}, "content": "hi", "message_type": "text"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.conversations.AssertNotCalled(t, "CreateWithMessage")
}

func TestDeleteMessage(t *testing.T) {
	f := setupMessageRouter(t)
	messageID := uuid.New()
	deleted := models.Message{ID: messageID, ConversationID: uuid.New(), SenderID: 1, Content: "oops", Type: models.MessageText}
	f.messages.On("Delete", mock.Anything, messageID, int64(1)).Return(deleted, nil).Once()

	w := performJSON(t, f.router, http.MethodDelete, "/messages/"+messageID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message models.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, messageID, resp.Message.ID)
}

func TestDeleteMessageNotFound(t *testing.T) {
	f := setupMessageRouter(t)
	messageID := uuid.New()
	f.messages.On("Delete", mock.Anything, messageID, int64(1)).Return(nil, repositories.ErrMessageNotFound).Once()

	w := performJSON(t, f.router, http.MethodDelete, "/messages/"+messageID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMessagePassesCallerAsSender(t *testing.T) {
	f := setupMessageRouter(t)
	messageID := uuid.New()
	// The repository scopes the delete to the caller; a foreign message reads
	// as not found.
	f.messages.On("Delete", mock.Anything, messageID, int64(1)).Return(nil, repositories.ErrMessageNotFound).Once()

	w := performJSON(t, f.router, http.MethodDelete, "/messages/"+messageID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	f.messages.AssertExpectations(t)
}

func TestDeleteMessageRejectsMalformedID(t *testing.T) {
	f := setupMessageRouter(t)

	w := performJSON(t, f.router, http.MethodDelete, "/messages/42", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.messages.AssertNotCalled(t, "Delete")
}
