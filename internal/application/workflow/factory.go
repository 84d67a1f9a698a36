package workflow

import (
	domainwf "github.com/garyjia/expense-requirement/internal/domain/workflow"
)

// Guards holds the branch predicates of the approval chain
type Guards struct {
	// NeedsPresident routes a department-chief approval through the president
	NeedsPresident domainwf.GuardFunc

	// IsReimburse lets a finance-chief approval complete the requirement.
	// Advance claims stay at WAIT_FINANCE_CHIEF once approved for disbursement.
	IsReimburse domainwf.GuardFunc
}

// BuildRequirementMachine creates a state machine for the requirement approval chain
func BuildRequirementMachine(initialState domainwf.State, guards Guards) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateWaitDeptChief)

	dept := builder.Configure(domainwf.StateWaitDeptChief)
	if guards.NeedsPresident != nil {
		dept.PermitIf(domainwf.TriggerApprove, domainwf.StateWaitPresident, guards.NeedsPresident)
	}
	dept.Permit(domainwf.TriggerApprove, domainwf.StateWaitFinanceStaff).
		Permit(domainwf.TriggerReject, domainwf.StateAbandoned)

	builder.Configure(domainwf.StateWaitPresident).
		Permit(domainwf.TriggerApprove, domainwf.StateWaitFinanceStaff).
		Permit(domainwf.TriggerReject, domainwf.StateAbandoned)

	builder.Configure(domainwf.StateWaitFinanceStaff).
		Permit(domainwf.TriggerApprove, domainwf.StateWaitFinanceChief).
		Permit(domainwf.TriggerReject, domainwf.StateAbandoned)

	chief := builder.Configure(domainwf.StateWaitFinanceChief)
	if guards.IsReimburse != nil {
		chief.PermitIf(domainwf.TriggerApprove, domainwf.StateComplete, guards.IsReimburse)
	}
	chief.Permit(domainwf.TriggerApprove, domainwf.StateWaitFinanceChief).
		Permit(domainwf.TriggerReject, domainwf.StateAbandoned)

	// COMPLETE and ABANDONED are terminal

	return builder.Build(initialState)
}
