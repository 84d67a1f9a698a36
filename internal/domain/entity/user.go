package entity

// User is a member of staff as reported by the directory
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID int    `json:"department_id"`
	Role         Role   `json:"role"`
}

// AdvanceStatus is the sub-ledger view of an advance claim
type AdvanceStatus struct {
	ReceiptsFiled  bool `json:"receipts_filed"`
	BalanceSettled bool `json:"balance_settled"`
}

// Progress maps the sub-ledger view onto the progress vocabulary
func (s AdvanceStatus) Progress() Progress {
	switch {
	case !s.ReceiptsFiled && !s.BalanceSettled:
		return ProgressNoReceiptAndBalanceOverdue
	case !s.ReceiptsFiled:
		return ProgressNoReceipt
	case !s.BalanceSettled:
		return ProgressBalanceOverdue
	default:
		return ProgressInProgress
	}
}
