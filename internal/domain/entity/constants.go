package entity

import "fmt"

// Kind distinguishes advance-payment claims from reimbursements
type Kind string

const (
	KindAdvance   Kind = "ADVANCE"   // funds disbursed before spending
	KindReimburse Kind = "REIMBURSE" // receipts already in hand
)

// IsValid reports whether k is a known claim kind
func (k Kind) IsValid() bool {
	return k == KindAdvance || k == KindReimburse
}

// ParseKind converts a code into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrValidation, s)
	}
	return k, nil
}

// Progress is the user-facing summary of a requirement
type Progress string

const (
	ProgressUnset                      Progress = ""
	ProgressInProgress                 Progress = "IN_PROGRESS"
	ProgressCloseUp                    Progress = "CLOSE_UP"
	ProgressReject                     Progress = "REJECT"
	ProgressNoReceipt                  Progress = "NO_RECEIPT"
	ProgressBalanceOverdue             Progress = "BALANCE_OVERDUE"
	ProgressNoReceiptAndBalanceOverdue Progress = "NO_RECEIPT_AND_BALANCE_OVERDUE"
)

// Verdict is the tri-state outcome of one approval stage
type Verdict string

const (
	VerdictUnset    Verdict = ""
	VerdictApproved Verdict = "APPROVED"
	VerdictRejected Verdict = "REJECTED"
)

// Role is the position a user holds in the approval chain
type Role string

const (
	RoleStaff        Role = "STAFF"
	RoleDeptChief    Role = "DEPT_CHIEF"
	RolePresident    Role = "PRESIDENT"
	RoleFinanceStaff Role = "FINANCE_STAFF"
	RoleFinanceChief Role = "FINANCE_CHIEF"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleStaff, RoleDeptChief, RolePresident, RoleFinanceStaff, RoleFinanceChief:
		return true
	default:
		return false
	}
}

// ParseRole converts a code into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
	return r, nil
}

// Action labels history records
type Action string

const (
	ActionOpen                Action = "OPEN"
	ActionEdit                Action = "EDIT"
	ActionSubmit              Action = "SUBMIT"
	ActionApprove             Action = "APPROVE"
	ActionReject              Action = "REJECT"
	ActionCite                Action = "CITE"
	ActionClose               Action = "CLOSE"
	ActionSetPayDate          Action = "SET_PAY_DATE"
	ActionSetExpenseReference Action = "SET_EXPENSE_REFERENCE"
)

// Column limits carried over from the ledger forms
const (
	MaxBankCodeLen         = 4
	MaxBranchCodeLen       = 5
	MaxAccountLen          = 20
	MaxAccountNameLen      = 12
	MaxExpenseReferenceLen = 10
)
