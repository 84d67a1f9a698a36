package workflow

// State is a position in the requirement approval lifecycle
type State string

const (
	StateDraft            State = "DRAFT"
	StateWaitDeptChief    State = "WAIT_DEPT_CHIEF"
	StateWaitPresident    State = "WAIT_PRESIDENT"
	StateWaitFinanceStaff State = "WAIT_FINANCE_STAFF"
	StateWaitFinanceChief State = "WAIT_FINANCE_CHIEF"
	StateComplete         State = "COMPLETE"
	StateAbandoned        State = "ABANDONED"
)

var validStates = map[State]bool{
	StateDraft:            true,
	StateWaitDeptChief:    true,
	StateWaitPresident:    true,
	StateWaitFinanceStaff: true,
	StateWaitFinanceChief: true,
	StateComplete:         true,
	StateAbandoned:        true,
}

var waitingStates = map[State]bool{
	StateWaitDeptChief:    true,
	StateWaitPresident:    true,
	StateWaitFinanceStaff: true,
	StateWaitFinanceChief: true,
}

// IsTerminal returns true for states with no outgoing transitions
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateAbandoned
}

// IsWaiting returns true while the requirement sits in the approval chain
func (s State) IsWaiting() bool {
	return waitingStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// ParseState converts a stored code into a State
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", ErrInvalidState
	}
	return st, nil
}
