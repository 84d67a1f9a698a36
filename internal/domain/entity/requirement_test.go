package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-requirement/internal/domain/workflow"
)

func newDraft(t *testing.T) *Requirement {
	t.Helper()
	req, err := NewRequirement(&User{ID: "u-1", DepartmentID: 7, Role: RoleStaff}, KindReimburse, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return req
}

func TestNewRequirement(t *testing.T) {
	req := newDraft(t)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "u-1", req.SubmitterID)
	assert.Equal(t, 7, req.DepartmentID)
	assert.Equal(t, workflow.StateDraft, req.State)
	assert.Equal(t, ProgressUnset, req.Progress)
	assert.Empty(t, req.SerialNumber)
	assert.True(t, req.IsEditable())
	assert.False(t, req.IsClosed())

	_, err := NewRequirement(&User{ID: "u-1"}, Kind("EXECUTE"), time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewRequirement(nil, KindAdvance, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequirement_ApplyEdits(t *testing.T) {
	tests := []struct {
		name    string
		updates map[string]string
		wantErr error
	}{
		{
			name:    "bank fields",
			updates: map[string]string{FieldBankCode: "123", FieldBranchCode: "45678", FieldAccount: "000111222", FieldAccountName: "王小明"},
		},
		{
			name:    "kind change",
			updates: map[string]string{FieldKind: string(KindAdvance)},
		},
		{
			name:    "state is not editable",
			updates: map[string]string{FieldBankCode: "123", "state": "COMPLETE"},
			wantErr: ErrInvalidField,
		},
		{
			name:    "serial number is not editable",
			updates: map[string]string{"serial_number": "2024010101"},
			wantErr: ErrInvalidField,
		},
		{
			name:    "unknown kind",
			updates: map[string]string{FieldKind: "EXECUTE"},
			wantErr: ErrValidation,
		},
		{
			name:    "bank code too long",
			updates: map[string]string{FieldBankCode: "12345"},
			wantErr: ErrValidation,
		},
		{
			name:    "empty update",
			updates: map[string]string{},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newDraft(t)
			before := req.Clone()

			err := req.ApplyEdits(tt.updates)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, before, req, "failed edit must not change the record")
				return
			}
			require.NoError(t, err)
			for name, value := range tt.updates {
				if name == FieldKind {
					assert.Equal(t, Kind(value), req.Kind)
					continue
				}
				assert.Equal(t, value, req.BankFields()[name])
			}
		})
	}
}

func TestRequirement_ApplyEditsIsAllOrNothing(t *testing.T) {
	req := newDraft(t)

	err := req.ApplyEdits(map[string]string{
		FieldBankCode:    "812",
		FieldAccountName: "a name that is far too long",
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, req.Bank.BankCode)
}

func TestRequirement_Approval(t *testing.T) {
	req := newDraft(t)

	slot := req.Approval(RoleFinanceStaff)
	require.NotNil(t, slot)
	slot.Verdict = VerdictRejected
	assert.Equal(t, VerdictRejected, req.FinanceStaff.Verdict)
	assert.True(t, req.FinanceStaff.Decided())

	assert.Nil(t, req.Approval(RoleStaff))
}

func TestRequirement_CloneIsDeep(t *testing.T) {
	req := newDraft(t)
	now := time.Now()
	req.SubmitTime = &now
	req.DeptChief.DecidedAt = &now

	c := req.Clone()
	*c.SubmitTime = now.Add(time.Hour)
	*c.DeptChief.DecidedAt = now.Add(time.Hour)

	assert.Equal(t, now, *req.SubmitTime)
	assert.Equal(t, now, *req.DeptChief.DecidedAt)
}

func TestRequirement_IsDisbursed(t *testing.T) {
	req := newDraft(t)
	req.Kind = KindAdvance
	assert.False(t, req.IsDisbursed())

	req.FinanceChief.Verdict = VerdictApproved
	assert.True(t, req.IsDisbursed())

	req.Kind = KindReimburse
	assert.False(t, req.IsDisbursed())
}

func TestRequiredRole(t *testing.T) {
	tests := []struct {
		state workflow.State
		role  Role
		ok    bool
	}{
		{workflow.StateWaitDeptChief, RoleDeptChief, true},
		{workflow.StateWaitPresident, RolePresident, true},
		{workflow.StateWaitFinanceStaff, RoleFinanceStaff, true},
		{workflow.StateWaitFinanceChief, RoleFinanceChief, true},
		{workflow.StateDraft, "", false},
		{workflow.StateComplete, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			role, ok := RequiredRole(tt.state)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.role, role)
		})
	}
}

func TestAdvanceStatus_Progress(t *testing.T) {
	tests := []struct {
		status AdvanceStatus
		want   Progress
	}{
		{AdvanceStatus{}, ProgressNoReceiptAndBalanceOverdue},
		{AdvanceStatus{BalanceSettled: true}, ProgressNoReceipt},
		{AdvanceStatus{ReceiptsFiled: true}, ProgressBalanceOverdue},
		{AdvanceStatus{ReceiptsFiled: true, BalanceSettled: true}, ProgressInProgress},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.Progress(), "%+v", tt.status)
	}
}
