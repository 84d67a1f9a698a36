package entity

import "github.com/garyjia/expense-requirement/internal/domain/workflow"

// stageApprovers maps each waiting state to the only role allowed to decide it
var stageApprovers = map[workflow.State]Role{
	workflow.StateWaitDeptChief:    RoleDeptChief,
	workflow.StateWaitPresident:    RolePresident,
	workflow.StateWaitFinanceStaff: RoleFinanceStaff,
	workflow.StateWaitFinanceChief: RoleFinanceChief,
}

// RequiredRole returns the approver role for a waiting state
func RequiredRole(state workflow.State) (Role, bool) {
	role, ok := stageApprovers[state]
	return role, ok
}
