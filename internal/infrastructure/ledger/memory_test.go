package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-requirement/internal/application/dispatcher"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/event"
)

func TestMemoryLedger_AdvanceStatus(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	status, err := l.AdvanceStatus(ctx, "adv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ProgressNoReceiptAndBalanceOverdue, status.Progress())

	l.SettleBalance("adv-1", time.Now())
	status, _ = l.AdvanceStatus(ctx, "adv-1")
	assert.Equal(t, entity.ProgressNoReceipt, status.Progress())

	l.FileReceipts("adv-1")
	status, _ = l.AdvanceStatus(ctx, "adv-1")
	assert.Equal(t, entity.ProgressInProgress, status.Progress())

	l.FileReceipts("adv-2")
	status, _ = l.AdvanceStatus(ctx, "adv-2")
	assert.Equal(t, entity.ProgressBalanceOverdue, status.Progress())
}

func TestMemoryLedger_DisbursesOnFinanceChiefApproval(t *testing.T) {
	l := NewMemoryLedger()
	d := dispatcher.NewDispatcher()
	l.Subscribe(d)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	staff := event.NewEvent(event.TypeRequirementApproved, "adv-1", "fs", map[string]interface{}{
		"stage": string(entity.RoleFinanceStaff),
		"kind":  string(entity.KindAdvance),
	}, at)
	require.NoError(t, d.Dispatch(ctx, staff))
	_, ok := l.Account("adv-1")
	assert.False(t, ok)

	chief := event.NewEvent(event.TypeRequirementApproved, "adv-1", "fc", map[string]interface{}{
		"stage": string(entity.RoleFinanceChief),
		"kind":  string(entity.KindAdvance),
	}, at)
	require.NoError(t, d.Dispatch(ctx, chief))

	acct, ok := l.Account("adv-1")
	require.True(t, ok)
	require.NotNil(t, acct.DisbursedAt)
	assert.True(t, acct.DisbursedAt.Equal(at))
}
