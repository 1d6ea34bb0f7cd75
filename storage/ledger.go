package storage

import (
	"sync"

	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"github.com/shopspring/decimal"
)

// LedgerAccount is the process-scoped running balance plus monthly
// accumulators. Exactly one of Settle/FlagBlocked/nothing runs per completed
// assessment; neither operation is reversible and there is no compensating
// transaction if a downstream payment dispatch fails.
//
// The balance has no floor: approvals can drive it negative.
type LedgerAccount struct {
	mu                sync.Mutex
	closed            bool
	balance           decimal.Decimal
	autoPaidThisMonth decimal.Decimal
	blockedThisMonth  decimal.Decimal
}

func NewLedgerAccount(initialBalance decimal.Decimal) *LedgerAccount {
	return &LedgerAccount{balance: initialBalance}
}

func (l *LedgerAccount) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Settle pays an approved invoice: balance decreases, monthly approved
// total increases.
func (l *LedgerAccount) Settle(amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return utils.NewAppError(utils.ErrKindPersistenceFailure, errStoreClosed)
	}
	l.balance = l.balance.Sub(amount)
	l.autoPaidThisMonth = l.autoPaidThisMonth.Add(amount)
	return nil
}

// FlagBlocked accumulates a blocked invoice's amount; the balance is
// untouched.
func (l *LedgerAccount) FlagBlocked(amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return utils.NewAppError(utils.ErrKindPersistenceFailure, errStoreClosed)
	}
	l.blockedThisMonth = l.blockedThisMonth.Add(amount)
	return nil
}

// Deposit adds funds to the balance (treasury top-up).
func (l *LedgerAccount) Deposit(amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return utils.NewAppError(utils.ErrKindPersistenceFailure, errStoreClosed)
	}
	l.balance = l.balance.Add(amount)
	return nil
}

// Snapshot returns the current ledger state.
func (l *LedgerAccount) Snapshot() models.WalletBalance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.WalletBalance{
		Balance:           l.balance,
		Currency:          models.CurrencyUSDC,
		AutoPaidThisMonth: l.autoPaidThisMonth,
		BlockedThisMonth:  l.blockedThisMonth,
	}
}
