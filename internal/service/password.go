package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
)

// PasswordService handles security-question password recovery.
type PasswordService struct {
	api *api.Client
}

// NewPasswordService creates a new PasswordService.
func NewPasswordService(client *api.Client) *PasswordService {
	return &PasswordService{api: client}
}

// SecurityQuestion returns the recovery question of username.
func (s *PasswordService) SecurityQuestion(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", invalid("username", "不能为空")
	}
	q, err := s.api.SecurityQuestion(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to fetch security question: %w", err)
	}
	return q, nil
}

// Reset sets a new password when answer matches.
func (s *PasswordService) Reset(ctx context.Context, username, answer, newPassword string) error {
	username = strings.TrimSpace(username)
	answer = strings.TrimSpace(answer)
	switch {
	case username == "":
		return invalid("username", "不能为空")
	case answer == "":
		return invalid("securityAnswer", "不能为空")
	case len(newPassword) < minPasswordLength:
		return invalid("newPassword", fmt.Sprintf("至少 %d 位", minPasswordLength))
	}

	if err := s.api.ResetPassword(ctx, username, answer, newPassword); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	log.Info().Str("username", username).Msg("Password reset")
	return nil
}
