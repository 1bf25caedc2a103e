// Package stash parks a user's latest search results for exactly one read.
package stash

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// Stash hands search results from the search command to the result view.
// Take is get-and-delete: a stored entry is returned at most once.
type Stash interface {
	Put(ctx context.Context, userID int64, keyword string, games []model.Game, ttl time.Duration) error
	Take(ctx context.Context, userID int64, keyword string) ([]model.Game, bool, error)
	Clear(ctx context.Context, userID int64) error
}

func normalize(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

type memKey struct {
	userID  int64
	keyword string
}

type memEntry struct {
	games     []model.Game
	expiresAt time.Time
}

// Memory is an in-process Stash.
type Memory struct {
	mu      sync.Mutex
	entries map[memKey]memEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process stash.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[memKey]memEntry),
		now:     time.Now,
	}
}

func (m *Memory) Put(_ context.Context, userID int64, keyword string, games []model.Game, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked()
	cp := append([]model.Game(nil), games...)
	m.entries[memKey{userID, normalize(keyword)}] = memEntry{games: cp, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Take(_ context.Context, userID int64, keyword string) ([]model.Game, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey{userID, normalize(keyword)}
	e, ok := m.entries[k]
	if !ok {
		return nil, false, nil
	}
	delete(m.entries, k)
	if !m.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.games, true, nil
}

func (m *Memory) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.entries {
		if k.userID == userID {
			delete(m.entries, k)
		}
	}
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.entries)
}

func (m *Memory) sweepLocked() {
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
