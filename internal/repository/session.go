// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// Common errors for repository operations.
var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository persists one bearer token per Telegram user.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Get returns the session of telegramID or ErrSessionNotFound.
func (r *SessionRepository) Get(ctx context.Context, telegramID int64) (*model.Session, error) {
	const query = `
		SELECT telegram_id, username, token, expires_at, created_at, updated_at
		FROM sessions
		WHERE telegram_id = $1
	`

	var s model.Session
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(
		&s.TelegramID,
		&s.Username,
		&s.Token,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

// Save stores the session, replacing any previous login of the same user.
func (r *SessionRepository) Save(ctx context.Context, s *model.Session) error {
	const query = `
		INSERT INTO sessions (telegram_id, username, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
			token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW(),
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, s.TelegramID, s.Username, s.Token, s.ExpiresAt).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, telegramID int64) error {
	const query = `DELETE FROM sessions WHERE telegram_id = $1`

	if _, err := r.pool.Exec(ctx, query, telegramID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions whose token expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored sessions.
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM sessions`

	var n int64
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
