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

// CardRepo stores cards. Ownership is always resolved through the card's list.
type CardRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewCardRepo(db *sql.DB) *CardRepo {
	return &CardRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const cardColumns = `c.id, c.title, c.content, c.deadline, c.completed, c.list_id, l.name,
	c.created_at, c.updated_at, c.completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(s rowScanner) (model.Card, error) {
	var (
		c           model.Card
		content     sql.NullString
		deadline    sql.NullTime
		completedAt sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.Title, &content, &deadline, &c.Completed, &c.ListID, &c.ListName,
		&c.CreatedAt, &c.UpdatedAt, &completedAt); err != nil {
		return model.Card{}, err
	}
	c.Content = content.String
	if deadline.Valid {
		d := model.NewDate(deadline.Time)
		c.Deadline = &d
	}
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	return c, nil
}

// ListByOwner returns every card on the user's board, newest first, each
// annotated with its list name.
func (r *CardRepo) ListByOwner(ctx context.Context, who model.Identity) ([]model.Card, error) {
	q := `SELECT ` + cardColumns + `
		FROM cards c JOIN lists l ON l.id = c.list_id
		WHERE l.user_id = ?
		ORDER BY c.created_at DESC, c.id DESC`
	rows, err := r.db.QueryContext(ctx, q, who.UserID)
	if err != nil {
		return nil, dbErr("list cards", err)
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, dbErr("scan card", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list cards", err)
	}
	return cards, nil
}

// Create adds a card to one of the user's lists.
func (r *CardRepo) Create(ctx context.Context, who model.Identity, in model.NewCard) (model.Card, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.ListID == 0 {
		return model.Card{}, ErrInvalidArgument
	}
	now := r.now().Truncate(time.Second)
	c := model.Card{
		Title:     title,
		Content:   in.Content,
		Deadline:  in.Deadline,
		ListID:    in.ListID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		name, err := lockOwnedList(ctx, tx, who.UserID, in.ListID)
		if err != nil {
			return err
		}
		c.ListName = name
		const q = `INSERT INTO cards (title, content, deadline, completed, list_id, created_at, updated_at)
		           VALUES (?, ?, ?, FALSE, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q, c.Title, c.Content, c.Deadline, c.ListID, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return dbErr("insert card", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return dbErr("insert card", err)
		}
		c.ID = uint64(id)
		return nil
	})
	if err != nil {
		return model.Card{}, err
	}
	return c, nil
}

// Update merges patch into the card. Moving the card requires the target
// list to be owned by the same user; otherwise nothing is written.
// Concurrent updates of one card resolve as last writer wins.
func (r *CardRepo) Update(ctx context.Context, who model.Identity, cardID uint64, patch model.CardPatch) (model.Card, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return model.Card{}, ErrInvalidArgument
		}
		patch.Title = &t
	}

	var c model.Card
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		q := `SELECT ` + cardColumns + `
			FROM cards c JOIN lists l ON l.id = c.list_id
			WHERE c.id = ? AND l.user_id = ?
			FOR UPDATE`
		var err error
		c, err = scanCard(tx.QueryRowContext(ctx, q, cardID, who.UserID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCardNotFound
			}
			return dbErr("get card", err)
		}

		if patch.ListID != nil && *patch.ListID != c.ListID {
			name, err := lockOwnedList(ctx, tx, who.UserID, *patch.ListID)
			if err != nil {
				return err
			}
			c.ListName = name
		}

		patch.Apply(&c, r.now().Truncate(time.Second))

		const qUpd = `UPDATE cards
		              SET title = ?, content = ?, deadline = ?, completed = ?, list_id = ?, updated_at = ?, completed_at = ?
		              WHERE id = ?`
		if _, err := tx.ExecContext(ctx, qUpd,
			c.Title, c.Content, c.Deadline, c.Completed, c.ListID, c.UpdatedAt, c.CompletedAt, c.ID); err != nil {
			return dbErr("update card", err)
		}
		return nil
	})
	if err != nil {
		return model.Card{}, err
	}
	return c, nil
}

// Delete removes a card owned by the user.
func (r *CardRepo) Delete(ctx context.Context, who model.Identity, cardID uint64) error {
	const q = `DELETE c FROM cards c JOIN lists l ON l.id = c.list_id WHERE c.id = ? AND l.user_id = ?`
	res, err := r.db.ExecContext(ctx, q, cardID, who.UserID)
	if err != nil {
		return dbErr("delete card", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr("delete card", err)
	}
	if n == 0 {
		return ErrCardNotFound
	}
	return nil
}
