package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kanban-board/internal/model"
)

var (
	fixedNow = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	alice    = model.Identity{UserID: 1, Username: "alice"}
)

func fixedClock() time.Time { return fixedNow }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func listRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "user_id", "created_at"})
}

func cardRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "content", "deadline", "completed", "list_id", "name",
		"created_at", "updated_at", "completed_at"})
}
