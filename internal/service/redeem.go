package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
)

// RedeemService redeems VIP and payment codes.
type RedeemService struct {
	sessions     *SessionService
	profiles     *ProfileService
	api          *api.Client
	userLock     *lock.UserLock
	refreshDelay time.Duration
}

// NewRedeemService creates a new RedeemService. refreshDelay is how long to
// wait before re-reading the profile after a successful redeem.
func NewRedeemService(sessions *SessionService, profiles *ProfileService, client *api.Client, userLock *lock.UserLock, refreshDelay time.Duration) *RedeemService {
	return &RedeemService{
		sessions:     sessions,
		profiles:     profiles,
		api:          client,
		userLock:     userLock,
		refreshDelay: refreshDelay,
	}
}

// RedeemVIP redeems a VIP code. The cached profile is left alone until the
// scheduled refresh lands.
func (s *RedeemService) RedeemVIP(ctx context.Context, telegramID int64, code string) (*model.VIPRedemption, error) {
	var out *model.VIPRedemption
	err := s.redeem(ctx, telegramID, lock.ActionRedeemVIP, code, func(token, code string) error {
		var err error
		out, err = s.api.RedeemVIP(ctx, token, code)
		return err
	})
	return out, err
}

// RedeemPayment redeems a payment code.
func (s *RedeemService) RedeemPayment(ctx context.Context, telegramID int64, code string) (*model.PaymentRedemption, error) {
	var out *model.PaymentRedemption
	err := s.redeem(ctx, telegramID, lock.ActionRedeemPayment, code, func(token, code string) error {
		var err error
		out, err = s.api.RedeemPayment(ctx, token, code)
		return err
	})
	return out, err
}

func (s *RedeemService) redeem(ctx context.Context, telegramID int64, action, code string, submit func(token, code string) error) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyCode
	}

	return s.userLock.Do(telegramID, action, func() error {
		token, err := s.sessions.Token(ctx, telegramID)
		if err != nil {
			return err
		}
		if err := submit(token, code); err != nil {
			return s.sessions.checkAuth(ctx, telegramID, err)
		}

		log.Info().
			Int64("telegram_id", telegramID).
			Str("action", action).
			Msg("Code redeemed")
		s.profiles.ScheduleRefresh(telegramID, s.refreshDelay)
		return nil
	})
}

// PaymentHistory lists the payment codes the user has redeemed.
func (s *RedeemService) PaymentHistory(ctx context.Context, telegramID int64) ([]model.PaymentCode, error) {
	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	codes, err := s.api.PaymentHistory(ctx, token)
	if err != nil {
		return nil, s.sessions.checkAuth(ctx, telegramID, err)
	}
	return codes, nil
}
