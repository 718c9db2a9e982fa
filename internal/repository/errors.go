// Package repository holds the MySQL-backed stores for users, sessions,
// lists and cards, the summary queries, and the OTP code stores.
//
// The sentinel values below let handlers distinguish failure scenarios with
// errors.Is. A resource that exists but belongs to another user is reported
// exactly like a missing one.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when an entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint rejects a write, such
	// as signing up with a username, email or phone that is already taken.
	ErrConflict = errors.New("conflict")

	// ErrInvalidArgument is returned when a required field is missing or empty.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Specific not-found errors. Both match ErrNotFound.
var (
	ErrListNotFound = fmt.Errorf("list %w", ErrNotFound)
	ErrCardNotFound = fmt.Errorf("card %w", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a MySQL duplicate-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%s: db error: %w", op, err)
}
