package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
	"github.com/EgoistMa/tokomo-app/internal/stash"
)

// UnlockResult is a revealed game.
type UnlockResult struct {
	Detail model.GameDetail
	// Charged is true when this unlock bought the game.
	Charged bool
}

// CatalogService searches the catalog and unlocks games.
type CatalogService struct {
	sessions *SessionService
	profiles *ProfileService
	api      *api.Client
	results  stash.Stash
	ttl      time.Duration
	userLock *lock.UserLock
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	sessions *SessionService,
	profiles *ProfileService,
	client *api.Client,
	results stash.Stash,
	ttl time.Duration,
	userLock *lock.UserLock,
) *CatalogService {
	c := &CatalogService{
		sessions: sessions,
		profiles: profiles,
		api:      client,
		results:  results,
		ttl:      ttl,
		userLock: userLock,
	}
	sessions.OnLogout(func(telegramID int64) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := results.Clear(ctx, telegramID); err != nil {
			log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("Failed to clear stashed results")
		}
	})
	return c
}

// Search queries the catalog and stashes the results for one read.
func (c *CatalogService) Search(ctx context.Context, telegramID int64, keyword string) ([]model.Game, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	games, err := c.search(ctx, telegramID, keyword)
	if err != nil {
		return nil, err
	}

	if err := c.results.Put(ctx, telegramID, keyword, games, c.ttl); err != nil {
		log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("Failed to stash search results")
	}
	return games, nil
}

func (c *CatalogService) search(ctx context.Context, telegramID int64, keyword string) ([]model.Game, error) {
	token, err := c.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	games, err := c.api.SearchGames(ctx, token, keyword)
	if err != nil {
		return nil, c.sessions.checkAuth(ctx, telegramID, err)
	}
	return games, nil
}

// Results consumes the stashed results of keyword. When there are none it
// searches again and returns the fresh results without stashing them.
func (c *CatalogService) Results(ctx context.Context, telegramID int64, keyword string) ([]model.Game, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	games, ok, err := c.results.Take(ctx, telegramID, keyword)
	if err != nil {
		log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("Failed to read stashed results")
	}
	if ok {
		return games, nil
	}

	return c.search(ctx, telegramID, keyword)
}

// Unlock reveals a game, buying it only when the reveal says it is not owned.
// Owned games and VIP accounts are never charged.
func (c *CatalogService) Unlock(ctx context.Context, telegramID int64, gameID string) (*UnlockResult, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, invalid("gameId", "不能为空")
	}
	var result *UnlockResult
	err := c.userLock.Do(telegramID, lock.ActionUnlock, func() error {
		var err error
		result, err = c.unlock(ctx, telegramID, gameID)
		return err
	})
	return result, err
}

func (c *CatalogService) unlock(ctx context.Context, telegramID int64, gameID string) (*UnlockResult, error) {
	token, err := c.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	detail, revealErr := c.api.GameDetail(ctx, token, gameID)
	if revealErr == nil {
		return &UnlockResult{Detail: *detail}, nil
	}
	if !api.IsForbidden(revealErr) {
		return nil, c.sessions.checkAuth(ctx, telegramID, revealErr)
	}

	detail, err = c.api.PurchaseGame(ctx, token, gameID)
	switch {
	case err == nil:
		log.Info().
			Int64("telegram_id", telegramID).
			Str("game_id", gameID).
			Int64("remaining_points", detail.RemainingPoints).
			Msg("Game purchased")
		if _, err := c.profiles.Refresh(ctx, telegramID); err != nil {
			log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("Profile refresh after purchase failed")
		}
		return &UnlockResult{Detail: *detail, Charged: true}, nil

	case api.HasCode(err, api.CodeAlreadyOwned):
		detail, err = c.api.GameDetail(ctx, token, gameID)
		if err != nil {
			return nil, c.sessions.checkAuth(ctx, telegramID, err)
		}
		return &UnlockResult{Detail: *detail}, nil

	case api.HasCode(err, api.CodeInsufficientPoints):
		return nil, &InsufficientPointsError{Required: requiredPoints(err, revealErr)}
	}
	return nil, c.sessions.checkAuth(ctx, telegramID, err)
}

// requiredPoints prefers the purchase error's figure and falls back to the reveal's.
func requiredPoints(errs ...error) int64 {
	for _, err := range errs {
		if apiErr, ok := api.AsError(err); ok && apiErr.RequiredPoints > 0 {
			return apiErr.RequiredPoints
		}
	}
	return 0
}

// Purchased lists the user's library.
func (c *CatalogService) Purchased(ctx context.Context, telegramID int64) ([]model.Game, error) {
	token, err := c.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	games, err := c.api.PurchasedGames(ctx, token)
	if err != nil {
		return nil, c.sessions.checkAuth(ctx, telegramID, err)
	}
	return games, nil
}

// IsInsufficientPoints extracts the unlock shortfall from err.
func IsInsufficientPoints(err error) (*InsufficientPointsError, bool) {
	var ipe *InsufficientPointsError
	if errors.As(err, &ipe) {
		return ipe, true
	}
	return nil, false
}
