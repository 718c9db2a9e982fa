package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSummaryRepo(t *testing.T) (*SummaryRepo, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	r := NewSummaryRepo(db)
	r.now = fixedClock
	return r, mock
}

func TestSummaryRepo_Get(t *testing.T) {
	r, mock := newSummaryRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\),.*c\.deadline < \?.*WHERE l\.user_id = \?`).
		WithArgs("2024-03-10", 1).
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed", "overdue"}).AddRow(5, 2, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM lists l LEFT JOIN cards c ON c.list_id = l.id")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total", "completed"}).
			AddRow(1, "To Do", 3, 0).
			AddRow(2, "In Progress", 0, 0).
			AddRow(3, "Done", 2, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DATE(c.completed_at) AS day, COUNT(*)")).
		WithArgs(1, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"day", "n"}).
			AddRow(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), 2).
			AddRow(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 1).
			AddRow(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 1))
	mock.ExpectCommit()

	rep, err := r.Get(context.Background(), alice)
	require.NoError(t, err)

	assert.Equal(t, 5, rep.TotalCards)
	assert.Equal(t, 2, rep.CompletedCards)
	assert.Equal(t, 3, rep.PendingCards)
	assert.Equal(t, rep.TotalCards, rep.CompletedCards+rep.PendingCards)
	assert.Equal(t, 1, rep.OverdueCards)

	require.Len(t, rep.CardsByList, 3)
	assert.Equal(t, "In Progress", rep.CardsByList[1].Name)
	assert.Equal(t, 0, rep.CardsByList[1].Total)

	require.Len(t, rep.CompletionTrend, 3)
	assert.Equal(t, "2024-03-03", rep.CompletionTrend[0].Date.String())
	assert.Equal(t, 2, rep.CompletionTrend[0].Completed)
	assert.Equal(t, "2024-03-05", rep.CompletionTrend[1].Date.String())
	assert.Equal(t, "2024-03-10", rep.CompletionTrend[2].Date.String())
	assert.Equal(t, 1, rep.CompletionTrend[2].Completed)
}

// Overdue only counts open cards with a deadline before today, and the
// completed total only counts completed cards.
func TestSummaryRepo_CountPredicates(t *testing.T) {
	r, mock := newSummaryRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SUM(CASE WHEN NOT c.completed AND c.deadline IS NOT NULL AND c.deadline < ? THEN 1 ELSE 0 END)")).
		WithArgs("2024-03-10", 1).
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed", "overdue"}).AddRow(0, 0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SUM(CASE WHEN c.completed THEN 1 ELSE 0 END)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total", "completed"}))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.user_id = ? AND c.completed AND c.completed_at >= ? AND c.completed_at < ?")).
		WillReturnRows(sqlmock.NewRows([]string{"day", "n"}))
	mock.ExpectCommit()

	_, err := r.Get(context.Background(), alice)
	require.NoError(t, err)
}

func TestSummaryRepo_EmptyBoardHasEmptySlices(t *testing.T) {
	r, mock := newSummaryRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed", "overdue"}).AddRow(0, 0, 0))
	mock.ExpectQuery("FROM lists l LEFT JOIN cards").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total", "completed"}))
	mock.ExpectQuery(`SELECT DATE\(c\.completed_at\)`).WillReturnRows(sqlmock.NewRows([]string{"day", "n"}))
	mock.ExpectCommit()

	rep, err := r.Get(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, rep.CardsByList)
	assert.NotNil(t, rep.CompletionTrend)
	assert.Empty(t, rep.CompletionTrend)
}

func TestSummaryRepo_QueryFailureRollsBack(t *testing.T) {
	r, mock := newSummaryRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(errors.New("server has gone away"))
	mock.ExpectRollback()

	_, err := r.Get(context.Background(), alice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary totals")
}
