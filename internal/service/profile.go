package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
)

const scheduledRefreshTimeout = 10 * time.Second

// ProfileService keeps the last profile snapshot per user. The snapshot is
// only ever replaced by a fetch, never edited locally.
type ProfileService struct {
	sessions *SessionService
	api      *api.Client

	mu     sync.RWMutex
	cache  map[int64]*model.Profile
	timers map[int64]*time.Timer
}

// NewProfileService creates a ProfileService and hooks it into the session lifecycle.
func NewProfileService(sessions *SessionService, client *api.Client) *ProfileService {
	p := &ProfileService{
		sessions: sessions,
		api:      client,
		cache:    make(map[int64]*model.Profile),
		timers:   make(map[int64]*time.Timer),
	}
	sessions.OnLogin(func(ctx context.Context, telegramID int64) error {
		_, err := p.Refresh(ctx, telegramID)
		return err
	})
	sessions.OnLogout(p.forget)
	return p
}

// Refresh fetches the profile and overwrites the cached copy. Any failure of
// the fetch ends the session.
func (p *ProfileService) Refresh(ctx context.Context, telegramID int64) (*model.Profile, error) {
	token, err := p.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	profile, err := p.api.Profile(ctx, token)
	if err != nil {
		log.Warn().
			Err(err).
			Int64("telegram_id", telegramID).
			Msg("Profile fetch failed, forcing logout")
		_ = p.sessions.Logout(ctx, telegramID)
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	p.mu.Lock()
	p.cache[telegramID] = profile
	p.mu.Unlock()

	cp := *profile
	return &cp, nil
}

// Cached returns a copy of the last snapshot or nil.
func (p *ProfileService) Cached(telegramID int64) *model.Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.cache[telegramID]
	if !ok {
		return nil
	}
	cp := *profile
	return &cp
}

// Current returns the cached snapshot, fetching it first if there is none.
func (p *ProfileService) Current(ctx context.Context, telegramID int64) (*model.Profile, error) {
	if cached := p.Cached(telegramID); cached != nil {
		return cached, nil
	}
	return p.Refresh(ctx, telegramID)
}

// ScheduleRefresh refreshes the profile once after delay. A newer schedule
// for the same user replaces a pending one.
func (p *ProfileService) ScheduleRefresh(telegramID int64, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.timers[telegramID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		if p.timers[telegramID] == timer {
			delete(p.timers, telegramID)
		}
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), scheduledRefreshTimeout)
		defer cancel()
		if _, err := p.Refresh(ctx, telegramID); err != nil {
			log.Debug().Err(err).Int64("telegram_id", telegramID).Msg("Scheduled profile refresh failed")
		}
	})
	p.timers[telegramID] = timer
}

// Pending reports whether a scheduled refresh has not fired yet.
func (p *ProfileService) Pending(telegramID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.timers[telegramID]
	return ok
}

// Stop cancels every scheduled refresh.
func (p *ProfileService) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
}

func (p *ProfileService) forget(telegramID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, telegramID)
	if t, ok := p.timers[telegramID]; ok {
		t.Stop()
		delete(p.timers, telegramID)
	}
}
