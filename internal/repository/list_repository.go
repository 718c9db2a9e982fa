package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/kanban-board/internal/dbx"
	"github.com/iliyamo/kanban-board/internal/model"
)

// ListRepo owns the lists of each user's board.
type ListRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewListRepo(db *sql.DB) *ListRepo {
	return &ListRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const qListsByOwner = `SELECT id, name, user_id, created_at FROM lists WHERE user_id = ? ORDER BY id`

// ListByOwner returns the user's lists ordered by id. A user whose board is
// empty gets the default lists created first.
//
// The bootstrap locks the user row before re-counting, so concurrent first
// reads for the same user create exactly one set of defaults.
func (r *ListRepo) ListByOwner(ctx context.Context, who model.Identity) ([]model.List, bool, error) {
	lists, err := queryLists(ctx, r.db, who.UserID)
	if err != nil {
		return nil, false, err
	}
	if len(lists) > 0 {
		return lists, false, nil
	}

	created := false
	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var id uint64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", who.UserID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return dbErr("lock user", err)
		}
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM lists WHERE user_id = ?", who.UserID).Scan(&n); err != nil {
			return dbErr("count lists", err)
		}
		if n == 0 {
			if _, err := insertDefaultLists(ctx, tx, who.UserID, r.now().Truncate(time.Second)); err != nil {
				return err
			}
			created = true
		}
		var err error
		lists, err = queryLists(ctx, tx, who.UserID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return lists, created, nil
}

// Create adds a list named name to the user's board.
func (r *ListRepo) Create(ctx context.Context, who model.Identity, name string) (model.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.List{}, ErrInvalidArgument
	}
	l := model.List{Name: name, UserID: who.UserID, CreatedAt: r.now().Truncate(time.Second)}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO lists (name, user_id, created_at) VALUES (?, ?, ?)", l.Name, l.UserID, l.CreatedAt)
	if err != nil {
		return model.List{}, dbErr("insert list", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.List{}, dbErr("insert list", err)
	}
	l.ID = uint64(id)
	return l, nil
}

// Delete removes the list and all of its cards in a single transaction.
func (r *ListRepo) Delete(ctx context.Context, who model.Identity, listID uint64) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := lockOwnedList(ctx, tx, who.UserID, listID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM cards WHERE list_id = ?", listID); err != nil {
			return dbErr("delete cards", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM lists WHERE id = ?", listID); err != nil {
			return dbErr("delete list", err)
		}
		return nil
	})
}

func queryLists(ctx context.Context, q dbx.DBTX, userID uint64) ([]model.List, error) {
	rows, err := q.QueryContext(ctx, qListsByOwner, userID)
	if err != nil {
		return nil, dbErr("list lists", err)
	}
	defer rows.Close()

	lists := []model.List{}
	for rows.Next() {
		var l model.List
		if err := rows.Scan(&l.ID, &l.Name, &l.UserID, &l.CreatedAt); err != nil {
			return nil, dbErr("scan list", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list lists", err)
	}
	return lists, nil
}

func insertDefaultLists(ctx context.Context, tx dbx.DBTX, userID uint64, at time.Time) ([]model.List, error) {
	out := make([]model.List, 0, len(model.DefaultListNames))
	for _, name := range model.DefaultListNames {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO lists (name, user_id, created_at) VALUES (?, ?, ?)", name, userID, at)
		if err != nil {
			return nil, dbErr("insert default list", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, dbErr("insert default list", err)
		}
		out = append(out, model.List{ID: uint64(id), Name: name, UserID: userID, CreatedAt: at})
	}
	return out, nil
}

// lockOwnedList locks the list row if it belongs to userID and returns its name.
func lockOwnedList(ctx context.Context, tx dbx.DBTX, userID, listID uint64) (string, error) {
	var name string
	err := tx.QueryRowContext(ctx,
		"SELECT name FROM lists WHERE id = ? AND user_id = ? FOR UPDATE", listID, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrListNotFound
		}
		return "", dbErr("lock list", err)
	}
	return name, nil
}
