package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/kanban-board/internal/dbx"
	"github.com/iliyamo/kanban-board/internal/model"
)

// TrendDays is how many days before today the completion trend reaches
// back. The window runs from midnight of today-TrendDays through the end
// of today.
const TrendDays = 7

// SummaryRepo computes board statistics. Every call reads fresh data from a
// single read-only transaction.
type SummaryRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSummaryRepo(db *sql.DB) *SummaryRepo {
	return &SummaryRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Get builds the summary for one user. "Today" is the current UTC date.
func (r *SummaryRepo) Get(ctx context.Context, who model.Identity) (model.SummaryReport, error) {
	today := model.NewDate(r.now())
	rep := model.SummaryReport{
		CardsByList:     []model.ListBreakdown{},
		CompletionTrend: []model.TrendPoint{},
	}

	err := dbx.WithTx(ctx, r.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx dbx.DBTX) error {
		const qTotals = `SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN c.completed THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN NOT c.completed AND c.deadline IS NOT NULL AND c.deadline < ? THEN 1 ELSE 0 END), 0)
		  FROM cards c JOIN lists l ON l.id = c.list_id
		 WHERE l.user_id = ?`
		if err := tx.QueryRowContext(ctx, qTotals, today, who.UserID).
			Scan(&rep.TotalCards, &rep.CompletedCards, &rep.OverdueCards); err != nil {
			return dbErr("summary totals", err)
		}
		rep.PendingCards = rep.TotalCards - rep.CompletedCards

		var err error
		if rep.CardsByList, err = cardsByList(ctx, tx, who.UserID); err != nil {
			return err
		}
		rep.CompletionTrend, err = completionTrend(ctx, tx, who.UserID, today)
		return err
	})
	if err != nil {
		return model.SummaryReport{}, err
	}
	return rep, nil
}

func cardsByList(ctx context.Context, tx dbx.DBTX, userID uint64) ([]model.ListBreakdown, error) {
	const q = `SELECT l.id, l.name, COUNT(c.id),
	       COALESCE(SUM(CASE WHEN c.completed THEN 1 ELSE 0 END), 0)
	  FROM lists l LEFT JOIN cards c ON c.list_id = l.id
	 WHERE l.user_id = ?
	 GROUP BY l.id, l.name
	 ORDER BY l.id`
	rows, err := tx.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, dbErr("summary by list", err)
	}
	defer rows.Close()

	out := []model.ListBreakdown{}
	for rows.Next() {
		var b model.ListBreakdown
		if err := rows.Scan(&b.ListID, &b.Name, &b.Total, &b.Completed); err != nil {
			return nil, dbErr("scan breakdown", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("summary by list", err)
	}
	return out, nil
}

// completionTrend counts completions per day for [today-TrendDays, today].
// Days with no completions are omitted.
func completionTrend(ctx context.Context, tx dbx.DBTX, userID uint64, today model.Date) ([]model.TrendPoint, error) {
	from := today.AddDays(-TrendDays)
	until := today.AddDays(1)
	const q = `SELECT DATE(c.completed_at) AS day, COUNT(*)
	  FROM cards c JOIN lists l ON l.id = c.list_id
	 WHERE l.user_id = ? AND c.completed AND c.completed_at >= ? AND c.completed_at < ?
	 GROUP BY day
	 ORDER BY day`
	rows, err := tx.QueryContext(ctx, q, userID, from.Time, until.Time)
	if err != nil {
		return nil, dbErr("summary trend", err)
	}
	defer rows.Close()

	out := []model.TrendPoint{}
	for rows.Next() {
		var p model.TrendPoint
		if err := rows.Scan(&p.Date, &p.Completed); err != nil {
			return nil, dbErr("scan trend", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("summary trend", err)
	}
	return out, nil
}
