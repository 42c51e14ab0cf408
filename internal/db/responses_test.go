package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/circuitbreaker"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

func newMockResponseStore(t *testing.T) (*ResponseStore, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	wrapper := circuitbreaker.NewDatabaseWrapper(sqlx.NewDb(raw, "sqlmock"), zaptest.NewLogger(t))
	return NewResponseStore(wrapper, zaptest.NewLogger(t)), mock
}

func responseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "session_id", "platform", "question_index", "question",
		"answer", "is_error", "response_time_ms", "created_at",
	})
}

func TestResponseStore_CreateAssignsIdentity(t *testing.T) {
	store, mock := newMockResponseStore(t)

	mock.ExpectExec("INSERT INTO responses").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := &models.Response{
		SessionID:     uuid.New(),
		Platform:      models.PlatformClaude,
		QuestionIndex: 0,
		Question:      "q0",
		Answer:        "a0",
	}
	require.NoError(t, store.Create(context.Background(), r))

	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.False(t, r.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseStore_ListBySession(t *testing.T) {
	store, mock := newMockResponseStore(t)
	sessionID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM responses").
		WithArgs(sessionID).
		WillReturnRows(responseRows().
			AddRow(uuid.New(), sessionID, "chatgpt", 0, "q0", "a0", false, 120, now).
			AddRow(uuid.New(), sessionID, "claude", 0, "q0", "[ERROR] Claude 500: boom", true, 0, now))

	list, err := store.ListBySession(context.Background(), sessionID)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.PlatformChatGPT, list[0].Platform)
	assert.True(t, list[1].IsError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseStore_ListBySessionPlatform(t *testing.T) {
	store, mock := newMockResponseStore(t)
	sessionID := uuid.New()

	mock.ExpectQuery("WHERE session_id = (.+) AND platform").
		WithArgs(sessionID, models.PlatformGemini).
		WillReturnRows(responseRows())

	list, err := store.ListBySessionPlatform(context.Background(), sessionID, models.PlatformGemini)

	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}
