package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
)

// ConversationRepositoryMock mocks repositories.ConversationRepository.
type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) ResolveOrCreateDirect(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Error(1)
}

func (m *ConversationRepositoryMock) FindDirect(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, creatorID int64, memberIDs []int64, name string) (models.Conversation, error) {
	args := m.Called(ctx, creatorID, memberIDs, name)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateWithMessage(ctx context.Context, creatorID int64, peerIDs []int64, content string, msgType models.MessageType) (models.Message, error) {
	args := m.Called(ctx, creatorID, peerIDs, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Error(1)
}

// MessageRepositoryMock mocks repositories.MessageRepository.
type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, conversationID uuid.UUID, senderID int64, content string, msgType models.MessageType) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) SearchByContent(ctx context.Context, userID int64, query string) (map[uuid.UUID]models.Message, error) {
	args := m.Called(ctx, userID, query)
	var matches map[uuid.UUID]models.Message
	if val := args.Get(0); val != nil {
		matches = val.(map[uuid.UUID]models.Message)
	}
	return matches, args.Error(1)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, messageID uuid.UUID, senderID int64) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

// ParticipantRepositoryMock mocks repositories.ParticipantRepository.
type ParticipantRepositoryMock struct {
	mock.Mock
}

func (m *ParticipantRepositoryMock) SetPinned(ctx context.Context, userID int64, conversationID uuid.UUID, value bool) (bool, error) {
	args := m.Called(ctx, userID, conversationID, value)
	return args.Bool(0), args.Error(1)
}

func (m *ParticipantRepositoryMock) SetArchived(ctx context.Context, userID int64, conversationID uuid.UUID, value bool) (bool, error) {
	args := m.Called(ctx, userID, conversationID, value)
	return args.Bool(0), args.Error(1)
}

func (m *ParticipantRepositoryMock) ListConversationIDsForUser(ctx context.Context, userID int64) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	var ids []uuid.UUID
	if val := args.Get(0); val != nil {
		ids = val.([]uuid.UUID)
	}
	return ids, args.Error(1)
}

func (m *ParticipantRepositoryMock) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ParticipantRepositoryMock) RecordSeen(ctx context.Context, userID int64, conversationID, messageID uuid.UUID, seenAt time.Time) (models.LastSeen, error) {
	args := m.Called(ctx, userID, conversationID, messageID, seenAt)
	var receipt models.LastSeen
	if val := args.Get(0); val != nil {
		receipt = val.(models.LastSeen)
	}
	return receipt, args.Error(1)
}

func (m *ParticipantRepositoryMock) ListPeers(ctx context.Context, conversationID uuid.UUID, userID int64) ([]models.Peer, error) {
	args := m.Called(ctx, conversationID, userID)
	var peers []models.Peer
	if val := args.Get(0); val != nil {
		peers = val.([]models.Peer)
	}
	return peers, args.Error(1)
}

// FeedRepositoryMock mocks repositories.FeedRepository.
type FeedRepositoryMock struct {
	mock.Mock
}

func (m *FeedRepositoryMock) BuildFeed(ctx context.Context, userID int64, scope models.FeedScope) ([]models.FeedRow, error) {
	args := m.Called(ctx, userID, scope)
	var feed []models.FeedRow
	if val := args.Get(0); val != nil {
		feed = val.([]models.FeedRow)
	}
	return feed, args.Error(1)
}

// UserRepositoryMock mocks repositories.UserRepository.
type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Exists(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) AllExist(ctx context.Context, userIDs []int64) (bool, error) {
	args := m.Called(ctx, userIDs)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) Search(ctx context.Context, terms []string, excludeIDs []int64, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, terms, excludeIDs, limit, offset)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}
