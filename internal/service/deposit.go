package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
)

// DepositService runs the simulated QR-code top-up. Pending transactions
// live in memory only.
type DepositService struct {
	sessions     *SessionService
	profiles     *ProfileService
	api          *api.Client
	userLock     *lock.UserLock
	maxAmount    int64
	refreshDelay time.Duration

	mu      sync.Mutex
	pending map[int64]*model.Transaction
}

// NewDepositService creates a new DepositService.
func NewDepositService(sessions *SessionService, profiles *ProfileService, client *api.Client, userLock *lock.UserLock, maxAmount int64, refreshDelay time.Duration) *DepositService {
	d := &DepositService{
		sessions:     sessions,
		profiles:     profiles,
		api:          client,
		userLock:     userLock,
		maxAmount:    maxAmount,
		refreshDelay: refreshDelay,
		pending:      make(map[int64]*model.Transaction),
	}
	sessions.OnLogout(d.Cancel)
	return d
}

// Create opens a deposit of amount and remembers it as pending.
func (d *DepositService) Create(ctx context.Context, telegramID, amount int64) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, invalid("amount", "必须大于 0")
	}
	if amount > d.maxAmount {
		return nil, invalid("amount", fmt.Sprintf("不能超过 %d", d.maxAmount))
	}

	var tx *model.Transaction
	err := d.userLock.Do(telegramID, lock.ActionDeposit, func() error {
		token, err := d.sessions.Token(ctx, telegramID)
		if err != nil {
			return err
		}
		tx, err = d.api.CreatePayment(ctx, token, amount)
		if err != nil {
			return d.sessions.checkAuth(ctx, telegramID, err)
		}
		d.mu.Lock()
		d.pending[telegramID] = tx
		d.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("telegram_id", telegramID).
		Int64("amount", amount).
		Int64("transaction_id", tx.TransactionID).
		Msg("Deposit created")
	return tx, nil
}

// Confirm resolves the pending deposit and schedules a profile refresh.
func (d *DepositService) Confirm(ctx context.Context, telegramID int64) (*model.Transaction, error) {
	var resolved *model.Transaction
	err := d.userLock.Do(telegramID, lock.ActionDeposit, func() error {
		tx := d.Pending(telegramID)
		if tx == nil {
			return ErrNoPendingDeposit
		}
		token, err := d.sessions.Token(ctx, telegramID)
		if err != nil {
			return err
		}
		resolved, err = d.api.ResolvePayment(ctx, token, tx.ExternalTransactionKey)
		if err != nil {
			return d.sessions.checkAuth(ctx, telegramID, err)
		}
		if resolved.Status != model.TxStatusCompleted {
			return fmt.Errorf("%w: status %s", ErrDepositNotCompleted, resolved.Status)
		}
		d.Cancel(telegramID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.profiles.ScheduleRefresh(telegramID, d.refreshDelay)
	log.Info().
		Int64("telegram_id", telegramID).
		Int64("transaction_id", resolved.TransactionID).
		Msg("Deposit completed")
	return resolved, nil
}

// Pending returns a copy of the pending deposit or nil.
func (d *DepositService) Pending(telegramID int64) *model.Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx, ok := d.pending[telegramID]
	if !ok {
		return nil
	}
	cp := *tx
	return &cp
}

// Cancel drops the pending deposit locally.
func (d *DepositService) Cancel(telegramID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, telegramID)
}
