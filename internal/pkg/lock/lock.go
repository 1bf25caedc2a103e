// Package lock provides per-user in-flight guards. While an action is pending
// for a user, a second submission of the same action is refused instead of
// queued, the way a disabled submit button behaves.
package lock

import (
	"sync"
)

// Actions guarded by the storefront.
const (
	ActionUnlock        = "unlock"
	ActionRedeemVIP     = "redeem_vip"
	ActionRedeemPayment = "redeem_payment"
	ActionDeposit       = "deposit"
)

type lockKey struct {
	userID int64
	action string
}

// UserLock tracks which (user, action) pairs are in flight.
type UserLock struct {
	held sync.Map // map[lockKey]struct{}
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{}
}

// TryLock marks the action as pending. It returns false if it already is.
func (ul *UserLock) TryLock(userID int64, action string) bool {
	_, loaded := ul.held.LoadOrStore(lockKey{userID, action}, struct{}{})
	return !loaded
}

// Unlock clears the pending mark.
func (ul *UserLock) Unlock(userID int64, action string) {
	ul.held.Delete(lockKey{userID, action})
}

// IsLocked is a point-in-time check.
func (ul *UserLock) IsLocked(userID int64, action string) bool {
	_, ok := ul.held.Load(lockKey{userID, action})
	return ok
}

// Do runs fn while the action is marked pending. It returns ErrBusy without
// calling fn when the action is already in flight.
func (ul *UserLock) Do(userID int64, action string, fn func() error) error {
	if !ul.TryLock(userID, action) {
		return ErrBusy
	}
	defer ul.Unlock(userID, action)
	return fn()
}
