package voucher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/workflow"
)

func completed(serial, account string, finalized time.Time) *entity.Requirement {
	return &entity.Requirement{
		ID:           "req-" + serial,
		SubmitterID:  "alice",
		DepartmentID: 7,
		Kind:         entity.KindReimburse,
		State:        workflow.StateComplete,
		SerialNumber: serial,
		Bank: entity.BankAccount{
			BankCode:    "0123",
			BranchCode:  "45678",
			Account:     account,
			AccountName: "Alice",
		},
		FinalizeTime: &finalized,
	}
}

func TestSheetWriter_WriteSheet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	w := NewSheetWriter(dir, "Acme Ltd.", zap.NewNop())
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	finalized := time.Date(2024, 3, 7, 16, 0, 0, 0, time.UTC)

	first := completed("202403050701", "00001111", finalized)
	first.ExpenseReference = "EX-9"
	reqs := []*entity.Requirement{first, completed("202403050702", "00002222", finalized)}

	path, err := w.WriteSheet(context.Background(), reqs, day)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "disbursement_20240308.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	title, _ := f.GetCellValue(sheetName, "A1")
	assert.Equal(t, "Acme Ltd.", title)
	header, _ := f.GetCellValue(sheetName, "A3")
	assert.Equal(t, "Serial No.", header)

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "202403050701", rows[3][0])
	assert.Equal(t, "07", rows[3][2])
	assert.Equal(t, "00001111", rows[3][6])
	assert.Equal(t, "2024-03-07", rows[3][8])
	assert.Equal(t, "EX-9", rows[3][10])
	assert.Equal(t, "00002222", rows[4][6])
}

func TestSheetWriter_Rejects(t *testing.T) {
	w := NewSheetWriter(t.TempDir(), "Acme", zap.NewNop())
	ctx := context.Background()

	_, err := w.WriteSheet(ctx, nil, time.Now())
	assert.ErrorIs(t, err, ErrNoRequirements)

	pending := completed("202403050701", "1", time.Now())
	pending.State = workflow.StateWaitFinanceChief
	_, err = w.WriteSheet(ctx, []*entity.Requirement{pending}, time.Now())
	assert.ErrorIs(t, err, ErrNotComplete)
}
