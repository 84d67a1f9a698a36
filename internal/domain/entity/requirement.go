package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/expense-requirement/internal/domain/workflow"
)

// BankAccount holds the payee details, editable only while DRAFT
type BankAccount struct {
	BankCode    string `json:"bank_code"`
	BranchCode  string `json:"branch_code"`
	Account     string `json:"account"`
	AccountName string `json:"account_name"`
}

// Approval records the decision of one stage in the chain
type Approval struct {
	Verdict   Verdict    `json:"verdict"`
	Reason    string     `json:"reason,omitempty"`
	ActorID   string     `json:"actor_id,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Decided reports whether the stage already has a verdict
func (a Approval) Decided() bool {
	return a.Verdict != VerdictUnset
}

// Requirement is an advance or reimbursement claim moving through approval
type Requirement struct {
	ID           string         `json:"id"`
	SubmitterID  string         `json:"submitter_id"`
	DepartmentID int            `json:"department_id"`
	Kind         Kind           `json:"kind"`
	State        workflow.State `json:"state"`
	Progress     Progress       `json:"progress"`
	SerialNumber string         `json:"serial_number"`
	Bank         BankAccount    `json:"bank"`
	CitedFrom    string         `json:"cited_from,omitempty"`

	CreateTime   time.Time  `json:"create_time"`
	EditTime     *time.Time `json:"edit_time,omitempty"`
	SubmitTime   *time.Time `json:"submit_time,omitempty"`
	FinalizeTime *time.Time `json:"finalize_time,omitempty"`

	DeptChief    Approval `json:"dept_chief"`
	President    Approval `json:"president"`
	FinanceStaff Approval `json:"finance_staff"`
	FinanceChief Approval `json:"finance_chief"`

	PayDate          *time.Time `json:"pay_date,omitempty"`
	ExpenseReference string     `json:"expense_reference,omitempty"`
}

// NewRequirementID returns a fresh opaque identifier
func NewRequirementID() string {
	return uuid.NewString()
}

// NewRequirement creates a DRAFT requirement for submitter
func NewRequirement(submitter *User, kind Kind, now time.Time) (*Requirement, error) {
	if submitter == nil {
		return nil, fmt.Errorf("%w: submitter is required", ErrValidation)
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrValidation, kind)
	}
	return &Requirement{
		ID:           NewRequirementID(),
		SubmitterID:  submitter.ID,
		DepartmentID: submitter.DepartmentID,
		Kind:         kind,
		State:        workflow.StateDraft,
		CreateTime:   now,
	}, nil
}

// IsClosed reports whether a DRAFT was archived through close
func (r *Requirement) IsClosed() bool {
	return r.State == workflow.StateDraft && r.FinalizeTime != nil
}

// IsEditable reports whether edit and submit are still allowed
func (r *Requirement) IsEditable() bool {
	return r.State == workflow.StateDraft && r.FinalizeTime == nil
}

// IsDisbursed reports whether an advance was approved by the finance chief
// and its funds released to the sub-ledger.
func (r *Requirement) IsDisbursed() bool {
	return r.Kind == KindAdvance && r.FinanceChief.Verdict == VerdictApproved
}

// Approval returns the stage slot owned by role, or nil for roles outside the chain
func (r *Requirement) Approval(role Role) *Approval {
	switch role {
	case RoleDeptChief:
		return &r.DeptChief
	case RolePresident:
		return &r.President
	case RoleFinanceStaff:
		return &r.FinanceStaff
	case RoleFinanceChief:
		return &r.FinanceChief
	default:
		return nil
	}
}

// Clone returns a deep copy
func (r *Requirement) Clone() *Requirement {
	c := *r
	c.EditTime = cloneTime(r.EditTime)
	c.SubmitTime = cloneTime(r.SubmitTime)
	c.FinalizeTime = cloneTime(r.FinalizeTime)
	c.PayDate = cloneTime(r.PayDate)
	c.DeptChief.DecidedAt = cloneTime(r.DeptChief.DecidedAt)
	c.President.DecidedAt = cloneTime(r.President.DecidedAt)
	c.FinanceStaff.DecidedAt = cloneTime(r.FinanceStaff.DecidedAt)
	c.FinanceChief.DecidedAt = cloneTime(r.FinanceChief.DecidedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Editable attribute names accepted by ApplyEdits
const (
	FieldKind        = "kind"
	FieldBankCode    = "bank_code"
	FieldBranchCode  = "branch_code"
	FieldAccount     = "account"
	FieldAccountName = "account_name"
)

type fieldSetter func(r *Requirement, value string) error

var editableFields = map[string]fieldSetter{
	FieldKind: func(r *Requirement, v string) error {
		k, err := ParseKind(v)
		if err != nil {
			return err
		}
		r.Kind = k
		return nil
	},
	FieldBankCode:    limitedSetter(FieldBankCode, MaxBankCodeLen, func(r *Requirement) *string { return &r.Bank.BankCode }),
	FieldBranchCode:  limitedSetter(FieldBranchCode, MaxBranchCodeLen, func(r *Requirement) *string { return &r.Bank.BranchCode }),
	FieldAccount:     limitedSetter(FieldAccount, MaxAccountLen, func(r *Requirement) *string { return &r.Bank.Account }),
	FieldAccountName: limitedSetter(FieldAccountName, MaxAccountNameLen, func(r *Requirement) *string { return &r.Bank.AccountName }),
}

func limitedSetter(name string, max int, field func(*Requirement) *string) fieldSetter {
	return func(r *Requirement, v string) error {
		if n := len([]rune(v)); n > max {
			return fmt.Errorf("%w: %s longer than %d characters", ErrValidation, name, max)
		}
		*field(r) = v
		return nil
	}
}

// ApplyEdits validates every update and applies all of them, or none.
// The receiver is left untouched on error.
func (r *Requirement) ApplyEdits(updates map[string]string) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)

	var unknown []string
	for _, name := range names {
		if _, ok := editableFields[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidField, strings.Join(unknown, ", "))
	}

	staged := r.Clone()
	for _, name := range names {
		if err := editableFields[name](staged, updates[name]); err != nil {
			return err
		}
	}
	*r = *staged
	return nil
}

// BankFields returns the banking attributes in ApplyEdits form
func (r *Requirement) BankFields() map[string]string {
	return map[string]string{
		FieldBankCode:    r.Bank.BankCode,
		FieldBranchCode:  r.Bank.BranchCode,
		FieldAccount:     r.Bank.Account,
		FieldAccountName: r.Bank.AccountName,
	}
}
