package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/kanban-board/internal/dbx"
	"github.com/iliyamo/kanban-board/internal/model"
	"github.com/iliyamo/kanban-board/internal/utils"
)

// Signup carries the fields required to create an account.
type Signup struct {
	Username string
	Email    string
	Phone    string
	Password string
}

// Normalize trims whitespace and lowercases the email.
func (s Signup) Normalize() Signup {
	return Signup{
		Username: strings.TrimSpace(s.Username),
		Email:    strings.ToLower(strings.TrimSpace(s.Email)),
		Phone:    strings.TrimSpace(s.Phone),
		Password: s.Password,
	}
}

// UserRepo is the credential store. Passwords are hashed with bcrypt at the
// configured cost before they reach the database.
type UserRepo struct {
	db   *sql.DB
	cost int
	now  func() time.Time

	// dummyHash is compared against when the username is unknown so that
	// both failure paths cost one bcrypt comparison.
	dummyHash string
}

func NewUserRepo(db *sql.DB, bcryptCost int) *UserRepo {
	r := &UserRepo{db: db, cost: bcryptCost, now: func() time.Time { return time.Now().UTC() }}
	r.dummyHash, _ = utils.HashPassword("kanban-dummy-password", bcryptCost)
	return r
}

const userColumns = "id, username, email, phone, password_hash, created_at"

// Create inserts the user and the default lists in one transaction and
// returns the new user. Any uniqueness violation yields ErrConflict and
// leaves no rows behind.
func (r *UserRepo) Create(ctx context.Context, s Signup) (model.User, error) {
	s = s.Normalize()
	if s.Username == "" || s.Email == "" || s.Phone == "" || s.Password == "" {
		return model.User{}, ErrInvalidArgument
	}
	hash, err := utils.HashPassword(s.Password, r.cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Username:     s.Username,
		Email:        s.Email,
		Phone:        s.Phone,
		PasswordHash: hash,
		CreatedAt:    r.now().Truncate(time.Second),
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		const q = `INSERT INTO users (username, email, phone, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q, u.Username, u.Email, u.Phone, u.PasswordHash, u.CreatedAt)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrConflict
			}
			return dbErr("insert user", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return dbErr("insert user", err)
		}
		u.ID = uint64(id)
		_, err = insertDefaultLists(ctx, tx, u.ID, u.CreatedAt)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Authenticate returns the identity for a matching username and password.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (model.Identity, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.VerifyPassword(r.dummyHash, password)
			return model.Identity{}, ErrInvalidCredentials
		}
		return model.Identity{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.Identity{}, ErrInvalidCredentials
	}
	return model.Identity{UserID: u.ID, Username: u.Username}, nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", strings.TrimSpace(username))
}

// GetByPhone fetches a user by phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE phone = ? LIMIT 1", strings.TrimSpace(phone))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, dbErr("get user", err)
	}
	return u, nil
}

// ChangePassword overwrites the password hash unconditionally.
func (r *UserRepo) ChangePassword(ctx context.Context, userID uint64, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidArgument
	}
	hash, err := utils.HashPassword(newPassword, r.cost)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID)
	if err != nil {
		return dbErr("update password", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}
