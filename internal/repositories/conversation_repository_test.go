package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func TestDirectPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3:7", directPairKey(3, 7))
	assert.Equal(t, "3:7", directPairKey(7, 3))
	assert.Equal(t, "5:5", directPairKey(5, 5))
}

func TestDedupeMembersIncludesCreator(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, dedupeMembers(1, []int64{3, 2, 3, 1}))
	assert.Equal(t, []int64{1}, dedupeMembers(1, nil))
	assert.Equal(t, []int64{1, 2}, dedupeMembers(1, []int64{2, 2, 2}))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(errors.Join(errors.New("wrapped"), &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.False(t, isUniqueViolation(nil))
}

func newConversationRepo(t *testing.T) (*ConversationRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewConversationRepo(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func directConversationRows(id uuid.UUID, key string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "conversation_type", "name", "thumbnail", "direct_key", "created_at", "updated_at"}).
		AddRow(id.String(), "direct", nil, nil, key, now, now)
}

func TestResolveOrCreateDirectRejectsSelfPair(t *testing.T) {
	repo, mock := newConversationRepo(t)

	_, err := repo.ResolveOrCreateDirect(context.Background(), 5, 5)

	assert.ErrorIs(t, err, ErrInvalidParticipants)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOrCreateDirectCreatesWhenAbsent(t *testing.T) {
	repo, mock := newConversationRepo(t)
	created := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE direct_key").
		WithArgs("1:2").WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "1:2").
		WillReturnRows(directConversationRows(created, "1:2"))
	mock.ExpectExec("INSERT INTO conversation_participants").
		WithArgs(sqlmock.AnyArg(), int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	convo, err := repo.ResolveOrCreateDirect(context.Background(), 2, 1)

	require.NoError(t, err)
	assert.Equal(t, created, convo.ID)
	assert.Equal(t, models.ConversationDirect, convo.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOrCreateDirectConvergesOnInsertRaceWinner(t *testing.T) {
	repo, mock := newConversationRepo(t)
	winner := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE direct_key").
		WithArgs("1:2").WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO conversations").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE direct_key").
		WithArgs("1:2").WillReturnRows(directConversationRows(winner, "1:2"))

	convo, err := repo.ResolveOrCreateDirect(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Equal(t, winner, convo.ID, "loser of the insert race must return the winner's row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOrCreateDirectConflictWhenWinnerVanishes(t *testing.T) {
	repo, mock := newConversationRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE direct_key").
		WithArgs("1:2").WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO conversations").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE direct_key").
		WithArgs("1:2").WillReturnError(sql.ErrNoRows)

	_, err := repo.ResolveOrCreateDirect(context.Background(), 1, 2)

	assert.ErrorIs(t, err, ErrConversationConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithMessageAppendsInRaceWinner(t *testing.T) {
	repo, mock := newConversationRepo(t)
	winner := uuid.New()
	messageID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO conversations").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE direct_key").
		WithArgs("1:2").WillReturnRows(directConversationRows(winner, "1:2"))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "message_type", "created_at"}).
			AddRow(messageID.String(), winner.String(), int64(1), "hello", "text", now))
	mock.ExpectExec("UPDATE conversations SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := repo.CreateWithMessage(context.Background(), 1, []int64{2}, "hello", models.MessageText)

	require.NoError(t, err)
	assert.Equal(t, winner, msg.ConversationID, "first message must land in the race winner's conversation")
	assert.Equal(t, messageID, msg.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
