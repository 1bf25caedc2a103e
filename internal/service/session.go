// Package service implements the storefront flows on top of the backend API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/repository"
)

const minPasswordLength = 6

// SessionRepository persists sessions.
type SessionRepository interface {
	Get(ctx context.Context, telegramID int64) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, telegramID int64) error
}

// RegisterInput is what a new account needs.
type RegisterInput struct {
	Username         string
	Password         string
	SecurityQuestion string
	SecurityAnswer   string
	InviteCode       string
}

// SessionService owns the bearer token of every Telegram user. It is the
// only writer of the token.
type SessionService struct {
	repo SessionRepository
	api  *api.Client
	now  func() time.Time

	mu       sync.RWMutex
	onLogin  []func(ctx context.Context, telegramID int64) error
	onLogout []func(telegramID int64)
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo SessionRepository, client *api.Client) *SessionService {
	return &SessionService{
		repo: repo,
		api:  client,
		now:  time.Now,
	}
}

// OnLogin registers fn to run after a token is persisted. A failing hook fails the login.
func (s *SessionService) OnLogin(fn func(ctx context.Context, telegramID int64) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogin = append(s.onLogin, fn)
}

// OnLogout registers fn to run after a session is dropped.
func (s *SessionService) OnLogout(fn func(telegramID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Login authenticates against the backend and persists the token.
func (s *SessionService) Login(ctx context.Context, telegramID int64, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "不能为空")
	}
	if password == "" {
		return nil, invalid("password", "不能为空")
	}

	res, err := s.api.Login(ctx, api.Credentials{Username: username, Password: password})
	if err != nil {
		if apiErr, ok := api.AsError(err); ok && apiErr.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return s.establish(ctx, telegramID, username, res.Token)
}

// Register creates an account and leaves the user logged in.
func (s *SessionService) Register(ctx context.Context, telegramID int64, in RegisterInput) (*model.Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.SecurityQuestion = strings.TrimSpace(in.SecurityQuestion)
	in.SecurityAnswer = strings.TrimSpace(in.SecurityAnswer)
	in.InviteCode = strings.TrimSpace(in.InviteCode)

	switch {
	case in.Username == "":
		return nil, invalid("username", "不能为空")
	case len(in.Password) < minPasswordLength:
		return nil, invalid("password", fmt.Sprintf("至少 %d 位", minPasswordLength))
	case in.SecurityQuestion == "":
		return nil, invalid("securityQuestion", "不能为空")
	case in.SecurityAnswer == "":
		return nil, invalid("securityAnswer", "不能为空")
	}

	res, err := s.api.Register(ctx, api.Registration{
		Username:         in.Username,
		Password:         in.Password,
		SecurityQuestion: in.SecurityQuestion,
		SecurityAnswer:   in.SecurityAnswer,
		InviteCode:       in.InviteCode,
	})
	if err != nil {
		switch {
		case api.HasCode(err, api.CodeUsernameTaken), api.IsStatus(err, http.StatusConflict):
			return nil, fmt.Errorf("%w: %v", ErrUsernameTaken, err)
		case api.IsStatus(err, http.StatusBadRequest):
			apiErr, _ := api.AsError(err)
			return nil, invalid("", apiErr.Message)
		}
		return nil, fmt.Errorf("register failed: %w", err)
	}

	if res.Token != "" {
		return s.establish(ctx, telegramID, in.Username, res.Token)
	}
	return s.Login(ctx, telegramID, in.Username, in.Password)
}

// establish persists token and runs login hooks. A missing token persists nothing.
func (s *SessionService) establish(ctx context.Context, telegramID int64, username, token string) (*model.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	sess := &model.Session{
		TelegramID: telegramID,
		Username:   username,
		Token:      token,
		ExpiresAt:  tokenExpiry(token),
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	log.Info().
		Int64("telegram_id", telegramID).
		Str("username", username).
		Msg("Session established")

	s.mu.RLock()
	hooks := slices.Clone(s.onLogin)
	s.mu.RUnlock()
	for _, hook := range hooks {
		if err := hook(ctx, telegramID); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// Logout forgets the token. It is a purely local operation.
func (s *SessionService) Logout(ctx context.Context, telegramID int64) error {
	err := s.repo.Delete(ctx, telegramID)

	s.mu.RLock()
	hooks := slices.Clone(s.onLogout)
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook(telegramID)
	}

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	log.Info().Int64("telegram_id", telegramID).Msg("Session cleared")
	return nil
}

// Session returns the stored session, or ErrNotLoggedIn. Expired sessions are dropped.
func (s *SessionService) Session(ctx context.Context, telegramID int64) (*model.Session, error) {
	sess, err := s.repo.Get(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Expired(s.now()) {
		_ = s.Logout(ctx, telegramID)
		return nil, fmt.Errorf("%w: token expired", ErrNotLoggedIn)
	}
	return sess, nil
}

// Token returns the bearer token of telegramID.
func (s *SessionService) Token(ctx context.Context, telegramID int64) (string, error) {
	sess, err := s.Session(ctx, telegramID)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// checkAuth turns a backend 401 into a forced logout.
func (s *SessionService) checkAuth(ctx context.Context, telegramID int64, err error) error {
	if err == nil || !api.IsUnauthorized(err) {
		return err
	}
	_ = s.Logout(ctx, telegramID)
	return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
}

// tokenExpiry reads the exp claim. The signature is the backend's concern.
func tokenExpiry(token string) *time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.Time
	return &exp
}
