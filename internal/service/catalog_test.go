package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
)

const purchaseKey = "POST /api/games/purchase"

func TestSearch_EmptyKeyword(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	before := h.backend.totalCalls()

	for _, kw := range []string{"", "   ", "\t"} {
		_, err := h.catalog.Search(context.Background(), testUserID, kw)
		assert.ErrorIs(t, err, ErrEmptyKeyword)
	}
	assert.Equal(t, before, h.backend.totalCalls())
	assert.Equal(t, 0, h.results.Len())
}

func TestSearch_Mario(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	games, err := h.catalog.Search(context.Background(), testUserID, " mario ")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Mario Bros", games[0].GameName)
	assert.Empty(t, games[0].DownloadURL, "search results carry no secrets")
}

func TestSearch_RequiresSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.catalog.Search(context.Background(), testUserID, "mario")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, 0, h.backend.totalCalls())
}

func TestResults_ConsumedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)

	_, err := h.catalog.Search(ctx, testUserID, "mario")
	require.NoError(t, err)
	searches := h.backend.count("GET /api/games/search")

	games, err := h.catalog.Results(ctx, testUserID, "mario")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, searches, h.backend.count("GET /api/games/search"), "stash hit")
	assert.Equal(t, 0, h.results.Len(), "stash consumed")

	games, err = h.catalog.Results(ctx, testUserID, "mario")
	require.NoError(t, err)
	assert.Len(t, games, 1)
	assert.Equal(t, searches+1, h.backend.count("GET /api/games/search"), "searched again")
	assert.Equal(t, 0, h.results.Len(), "fallback search is not stashed")
}

// brokenStash fails every operation, like an unreachable Redis.
type brokenStash struct{}

var errStashDown = errors.New("redis down")

func (brokenStash) Put(context.Context, int64, string, []model.Game, time.Duration) error {
	return errStashDown
}

func (brokenStash) Take(context.Context, int64, string) ([]model.Game, bool, error) {
	return nil, false, errStashDown
}

func (brokenStash) Clear(context.Context, int64) error { return errStashDown }

func TestResults_StashDownStillReturnsMatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)
	catalog := NewCatalogService(h.sessions, h.profiles, h.client, brokenStash{}, time.Minute, h.userLock)

	games, err := catalog.Search(ctx, testUserID, "mario")
	require.NoError(t, err)
	require.Len(t, games, 1)

	games, err = catalog.Results(ctx, testUserID, "mario")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "1", games[0].ID)
	assert.Equal(t, "Mario Bros", games[0].GameName)
}

func TestResults_ZeroTTLStillReturnsMatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)
	catalog := NewCatalogService(h.sessions, h.profiles, h.client, h.results, 0, h.userLock)

	_, err := catalog.Search(ctx, testUserID, "mario")
	require.NoError(t, err)

	games, err := catalog.Results(ctx, testUserID, "mario")
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestUnlock_OwnedGameIsNeverCharged(t *testing.T) {
	h := newHarness(t)
	h.backend.owned["1"] = true
	h.login(t)

	res, err := h.catalog.Unlock(context.Background(), testUserID, "1")
	require.NoError(t, err)
	assert.False(t, res.Charged)
	assert.Equal(t, "https://dl/mario", res.Detail.Game.DownloadURL)
	assert.Equal(t, 0, h.backend.count(purchaseKey))
	assert.Equal(t, int64(100), h.profiles.Cached(testUserID).Points)
}

func TestUnlock_BuysOnceThenReveals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)

	res, err := h.catalog.Unlock(ctx, testUserID, "1")
	require.NoError(t, err)
	assert.True(t, res.Charged)
	assert.Equal(t, "Mario Bros", res.Detail.Game.GameName)
	assert.Equal(t, 1, h.backend.count(purchaseKey))
	assert.Equal(t, int64(100-gameCost), h.profiles.Cached(testUserID).Points, "profile refreshed after purchase")

	res, err = h.catalog.Unlock(ctx, testUserID, "1")
	require.NoError(t, err)
	assert.False(t, res.Charged)
	assert.Equal(t, 1, h.backend.count(purchaseKey), "second unlock buys nothing")
}

func TestUnlock_InsufficientPoints(t *testing.T) {
	h := newHarness(t)
	h.backend.setPoints(10)
	h.login(t)

	_, err := h.catalog.Unlock(context.Background(), testUserID, "2")
	require.Error(t, err)

	ipe, ok := IsInsufficientPoints(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, gameCost, ipe.Required)
	assert.Equal(t, int64(10), h.profiles.Cached(testUserID).Points)
}

func TestUnlock_VIPNotCharged(t *testing.T) {
	h := newHarness(t)
	h.backend.profile.VIPExpireDate = &model.Timestamp{Time: time.Now().Add(24 * time.Hour)}
	h.login(t)

	res, err := h.catalog.Unlock(context.Background(), testUserID, "3")
	require.NoError(t, err)
	assert.False(t, res.Charged)
	assert.Equal(t, 0, h.backend.count(purchaseKey))
	assert.Equal(t, int64(100), h.profiles.Cached(testUserID).Points)
}

func TestUnlock_BlankGameID(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	before := h.backend.totalCalls()

	_, err := h.catalog.Unlock(context.Background(), testUserID, "  ")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, before, h.backend.totalCalls())
}

func TestUnlock_UnknownGame(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, err := h.catalog.Unlock(context.Background(), testUserID, "missing")
	require.Error(t, err)
	_, insufficient := IsInsufficientPoints(err)
	assert.False(t, insufficient)
	assert.Equal(t, 0, h.backend.count(purchaseKey))
}

func TestUnlock_BusyWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.True(t, h.userLock.TryLock(testUserID, lock.ActionUnlock))
	defer h.userLock.Unlock(testUserID, lock.ActionUnlock)

	_, err := h.catalog.Unlock(context.Background(), testUserID, "1")
	assert.ErrorIs(t, err, lock.ErrBusy)
	assert.Equal(t, 0, h.backend.count(purchaseKey))
}

func TestPurchased(t *testing.T) {
	h := newHarness(t)
	h.backend.owned["2"] = true
	h.login(t)

	games, err := h.catalog.Purchased(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Zelda", games[0].GameName)
}

func TestBackendUnauthorizedForcesLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t)

	h.backend.mu.Lock()
	h.backend.token = "rotated"
	h.backend.mu.Unlock()

	_, err := h.catalog.Purchased(ctx, testUserID)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = h.sessions.Token(ctx, testUserID)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}
