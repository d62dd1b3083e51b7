package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsAppliesSchemaInOrder(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	for _, pattern := range []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE TABLE IF NOT EXISTS conversations",
		"CREATE TABLE IF NOT EXISTS conversation_participants",
		"CREATE INDEX IF NOT EXISTS idx_participants_user",
		"CREATE TABLE IF NOT EXISTS messages",
		"CREATE INDEX IF NOT EXISTS idx_messages_conversation_created",
		"CREATE TABLE IF NOT EXISTS last_seen",
	} {
		mock.ExpectExec(pattern).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, runMigrations(sqlx.NewDb(mockDB, "sqlmock")))
	require.NoError(t, mock.ExpectationsWereMet())
}
