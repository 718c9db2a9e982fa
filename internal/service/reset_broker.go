// Package service holds the password reset flow and the delivery of reset
// codes over the message broker.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/model"
	"github.com/iliyamo/kanban-board/internal/repository"
	"github.com/iliyamo/kanban-board/internal/utils"
)

var (
	// ErrCodeNotFound means no pending code exists for the phone.
	ErrCodeNotFound = errors.New("otp expired or invalid")
	// ErrCodeInvalid means the code does not match; the entry is kept for a retry.
	ErrCodeInvalid = errors.New("invalid otp")
	// ErrCodeExpired means the code is older than the TTL; the entry is removed.
	ErrCodeExpired = errors.New("otp expired")
	// ErrNotifyFailed means the code could not be handed to the notifier.
	ErrNotifyFailed = errors.New("failed to send otp")
)

// Credentials is the part of the credential store used by the reset flow.
type Credentials interface {
	GetByPhone(ctx context.Context, phone string) (model.User, error)
	ChangePassword(ctx context.Context, userID uint64, newPassword string) error
}

// ResetBroker issues, validates and expires password reset codes.
type ResetBroker struct {
	users    Credentials
	store    repository.OTPStore
	notifier Notifier
	ttl      time.Duration
	log      logging.Logger

	now     func() time.Time
	newCode func() (string, error)
}

func NewResetBroker(users Credentials, store repository.OTPStore, notifier Notifier, ttl time.Duration, log logging.Logger) *ResetBroker {
	return &ResetBroker{
		users:    users,
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  utils.NewOTPCode,
	}
}

// RequestReset issues a new code for the account registered with phone,
// replacing any pending one, and hands it to the notifier.
func (b *ResetBroker) RequestReset(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return repository.ErrInvalidArgument
	}
	u, err := b.users.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	code, err := b.newCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	entry := model.OTPEntry{Code: code, UserID: u.ID, IssuedAt: b.now()}
	if err := b.store.Put(ctx, phone, entry); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := b.notifier.SendOTP(ctx, NewOTPEvent(phone, code, u.ID, entry.IssuedAt)); err != nil {
		b.log.Error(ctx, "otp delivery failed", "user_id", u.ID, "err", err)
		return fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}
	b.log.Info(ctx, "otp issued", "user_id", u.ID)
	return nil
}

// VerifyAndReset checks code for phone and, when it matches and has not
// expired, sets the new password and consumes the code.
func (b *ResetBroker) VerifyAndReset(ctx context.Context, phone, code, newPassword string) error {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" || newPassword == "" {
		return repository.ErrInvalidArgument
	}

	entry, err := b.store.Get(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeNotFound
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return ErrCodeInvalid
	}
	if entry.Expired(b.now(), b.ttl) {
		if err := b.store.Delete(ctx, phone); err != nil {
			b.log.Warn(ctx, "otp delete failed", "err", err)
		}
		return ErrCodeExpired
	}

	if err := b.users.ChangePassword(ctx, entry.UserID, newPassword); err != nil {
		return err
	}
	if err := b.store.Delete(ctx, phone); err != nil {
		b.log.Warn(ctx, "otp delete failed", "err", err)
	}
	b.log.Info(ctx, "password reset", "user_id", entry.UserID)
	return nil
}
