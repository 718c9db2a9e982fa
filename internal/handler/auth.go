package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/config"
	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/middleware"
	"github.com/iliyamo/kanban-board/internal/model"
	"github.com/iliyamo/kanban-board/internal/repository"
	"github.com/iliyamo/kanban-board/internal/service"
	"github.com/iliyamo/kanban-board/internal/utils"
)

// Accounts creates and authenticates users.
type Accounts interface {
	Create(ctx context.Context, s repository.Signup) (model.User, error)
	Authenticate(ctx context.Context, username, password string) (model.Identity, error)
}

// SessionStore persists server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Revoke(ctx context.Context, tokenHash string) error
}

// PasswordReset issues and redeems OTP codes.
type PasswordReset interface {
	RequestReset(ctx context.Context, phone string) error
	VerifyAndReset(ctx context.Context, phone, code, newPassword string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	cfg      config.Config
	users    Accounts
	sessions SessionStore
	reset    PasswordReset
	log      logging.Logger
	now      func() time.Time
}

func NewAuthHandler(cfg config.Config, users Accounts, sessions SessionStore, reset PasswordReset, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		reset:    reset,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotReq struct {
	Phone string `json:"phone"`
}

type verifyReq struct {
	Phone       string `json:"phone"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// Signup creates the account with its default lists and logs the user in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	in := repository.Signup{Username: req.Username, Email: req.Email, Phone: req.Phone, Password: req.Password}.Normalize()
	if in.Username == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "All fields are required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.users.Create(ctx, in)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return errorJSON(c, http.StatusBadRequest, "User with this username, email, or phone already exists")
	case errors.Is(err, repository.ErrInvalidArgument):
		return errorJSON(c, http.StatusBadRequest, "All fields are required")
	case err != nil:
		return internalError(c, h.log, "signup", err)
	}

	who := model.Identity{UserID: u.ID, Username: u.Username}
	if err := h.startSession(ctx, c, who); err != nil {
		return internalError(c, h.log, "signup session", err)
	}
	h.log.Info(ctx, "user signed up", "user_id", u.ID)
	return messageJSON(c, http.StatusCreated, "Account created successfully")
}

// Login verifies the credentials and sets a fresh session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "Username and password are required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	who, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) {
			return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
		}
		return internalError(c, h.log, "login", err)
	}
	if err := h.startSession(ctx, c, who); err != nil {
		return internalError(c, h.log, "login session", err)
	}
	return messageJSON(c, http.StatusOK, "Login successful")
}

// Logout revokes the current session if there is one and clears the
// cookie. It always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(h.cfg.SessionCookieName); err == nil && ck.Value != "" {
		if _, jti, err := utils.ParseSessionToken(h.cfg.SessionSecret, ck.Value); err == nil {
			ctx, cancel := requestContext(c)
			defer cancel()
			if err := h.sessions.Revoke(ctx, utils.HashSessionID(jti)); err != nil {
				h.log.Warn(ctx, "session revoke failed", "err", err)
			}
		}
	}
	h.clearCookie(c)
	return messageJSON(c, http.StatusOK, "Logged out successfully")
}

// Me returns the caller's identity.
func (h *AuthHandler) Me(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	return c.JSON(http.StatusOK, who)
}

// ForgotPassword sends a reset code to the phone number on file.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return errorJSON(c, http.StatusBadRequest, "Phone number is required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.reset.RequestReset(ctx, phone)
	switch {
	case err == nil:
		return messageJSON(c, http.StatusOK, "OTP sent successfully")
	case errors.Is(err, repository.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "No account found with this phone number")
	case errors.Is(err, service.ErrNotifyFailed):
		return errorJSON(c, http.StatusInternalServerError, "Failed to send OTP")
	default:
		return internalError(c, h.log, "forgot password", err)
	}
}

// VerifyOTP redeems a reset code and sets the new password.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.OTP = strings.TrimSpace(req.OTP)
	if req.Phone == "" || req.OTP == "" || req.NewPassword == "" {
		return errorJSON(c, http.StatusBadRequest, "Phone, OTP, and new password are required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.reset.VerifyAndReset(ctx, req.Phone, req.OTP, req.NewPassword)
	switch {
	case err == nil:
		return messageJSON(c, http.StatusOK, "Password reset successfully")
	case errors.Is(err, service.ErrCodeNotFound):
		return errorJSON(c, http.StatusBadRequest, "OTP expired or invalid")
	case errors.Is(err, service.ErrCodeInvalid):
		return errorJSON(c, http.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, service.ErrCodeExpired):
		return errorJSON(c, http.StatusBadRequest, "OTP expired")
	default:
		return internalError(c, h.log, "verify otp", err)
	}
}

func (h *AuthHandler) startSession(ctx context.Context, c echo.Context, who model.Identity) error {
	tok, err := utils.NewSessionToken(h.cfg.SessionSecret, who, h.cfg.SessionTTL, h.now())
	if err != nil {
		return err
	}
	if err := h.sessions.Create(ctx, who.UserID, utils.HashSessionID(tok.ID), tok.Exp); err != nil {
		return err
	}
	c.SetCookie(h.cookie(tok.Token, int(h.cfg.SessionTTL/time.Second)))
	return nil
}

func (h *AuthHandler) clearCookie(c echo.Context) {
	ck := h.cookie("", -1)
	ck.Expires = time.Unix(0, 0)
	c.SetCookie(ck)
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
