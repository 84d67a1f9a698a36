// Package ledger tracks receipts and balance returns for disbursed advances
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/expense-requirement/internal/application/dispatcher"
	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/event"
)

// Account is the sub-ledger entry of one advance
type Account struct {
	RequirementID string
	DisbursedAt   *time.Time
	ReceiptsFiled bool
	SettledAt     *time.Time
}

// MemoryLedger is an in-process sub-ledger
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[string]*Account)}
}

func (l *MemoryLedger) account(id string) *Account {
	a, ok := l.accounts[id]
	if !ok {
		a = &Account{RequirementID: id}
		l.accounts[id] = a
	}
	return a
}

// Disburse marks the advance funds as released
func (l *MemoryLedger) Disburse(requirementID string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account(requirementID).DisbursedAt = &at
}

// FileReceipts records that receipts for the advance were handed in
func (l *MemoryLedger) FileReceipts(requirementID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account(requirementID).ReceiptsFiled = true
}

// SettleBalance records that the unspent balance was returned
func (l *MemoryLedger) SettleBalance(requirementID string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account(requirementID).SettledAt = &at
}

// Account returns a copy of the entry, if any
func (l *MemoryLedger) Account(requirementID string) (Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[requirementID]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// AdvanceStatus implements port.SubLedger. Unknown advances have filed
// nothing and settled nothing.
func (l *MemoryLedger) AdvanceStatus(ctx context.Context, requirementID string) (entity.AdvanceStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[requirementID]
	if !ok {
		return entity.AdvanceStatus{}, nil
	}
	return entity.AdvanceStatus{
		ReceiptsFiled:  a.ReceiptsFiled,
		BalanceSettled: a.SettledAt != nil,
	}, nil
}

// Subscribe opens an account when the finance chief approves an advance
func (l *MemoryLedger) Subscribe(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeRequirementApproved, "ledger.disburse", func(ctx context.Context, evt *event.Event) error {
		if evt.GetPayloadString("stage") != string(entity.RoleFinanceChief) {
			return nil
		}
		if evt.GetPayloadString("kind") != string(entity.KindAdvance) {
			return nil
		}
		l.Disburse(evt.RequirementID, evt.Timestamp)
		return nil
	})
}

var _ port.SubLedger = (*MemoryLedger)(nil)
