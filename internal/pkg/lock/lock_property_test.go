// Property-based tests for the in-flight guard.
package lock

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestSingleFlightProperty checks that for any number of concurrent
// submissions of one action, at most one runs at a time and every other
// submission made while it runs is refused.
func TestSingleFlightProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numSubmits := rapid.IntRange(2, 30).Draw(t, "numSubmits")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		var running, maxRunning, ran, refused int32

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(numSubmits)
		for i := 0; i < numSubmits; i++ {
			go func() {
				defer wg.Done()
				<-start
				err := ul.Do(userID, ActionUnlock, func() error {
					n := atomic.AddInt32(&running, 1)
					for {
						m := atomic.LoadInt32(&maxRunning)
						if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
							break
						}
					}
					atomic.AddInt32(&ran, 1)
					atomic.AddInt32(&running, -1)
					return nil
				})
				if errors.Is(err, ErrBusy) {
					atomic.AddInt32(&refused, 1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if maxRunning > 1 {
			t.Fatalf("action ran %d times concurrently", maxRunning)
		}
		if ran+refused != int32(numSubmits) {
			t.Fatalf("ran=%d refused=%d, want total %d", ran, refused, numSubmits)
		}
		if ran < 1 {
			t.Fatalf("no submission ran")
		}
		if ul.IsLocked(userID, ActionUnlock) {
			t.Fatalf("guard still held after all submissions finished")
		}
	})
}

// TestIndependentKeysProperty checks that different users and different
// actions never block each other.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(1, 10).Draw(t, "numUsers")
		actions := []string{ActionUnlock, ActionRedeemVIP, ActionRedeemPayment, ActionDeposit}

		ul := NewUserLock()
		for u := int64(1); u <= int64(numUsers); u++ {
			for _, a := range actions {
				if !ul.TryLock(u, a) {
					t.Fatalf("user %d action %s unexpectedly busy", u, a)
				}
			}
		}
		for u := int64(1); u <= int64(numUsers); u++ {
			for _, a := range actions {
				if ul.TryLock(u, a) {
					t.Fatalf("user %d action %s acquired twice", u, a)
				}
			}
		}
	})
}

func TestDo_ReleasesOnError(t *testing.T) {
	ul := NewUserLock()
	boom := errors.New("boom")

	err := ul.Do(1, ActionRedeemVIP, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, ul.IsLocked(1, ActionRedeemVIP))
}

func TestDo_ReleasesOnPanic(t *testing.T) {
	ul := NewUserLock()
	assert.Panics(t, func() {
		_ = ul.Do(1, ActionDeposit, func() error { panic("boom") })
	})
	assert.False(t, ul.IsLocked(1, ActionDeposit))
}
