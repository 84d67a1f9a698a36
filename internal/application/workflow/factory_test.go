package workflow

import (
	"context"
	"errors"
	"testing"

	domainwf "github.com/garyjia/expense-requirement/internal/domain/workflow"
)

func always(v bool) domainwf.GuardFunc {
	return func(context.Context) bool { return v }
}

func TestBuildRequirementMachine_Approve(t *testing.T) {
	tests := []struct {
		name   string
		from   domainwf.State
		guards Guards
		want   domainwf.State
	}{
		{"dept chief without president", domainwf.StateWaitDeptChief, Guards{NeedsPresident: always(false)}, domainwf.StateWaitFinanceStaff},
		{"dept chief with president", domainwf.StateWaitDeptChief, Guards{NeedsPresident: always(true)}, domainwf.StateWaitPresident},
		{"no president policy", domainwf.StateWaitDeptChief, Guards{}, domainwf.StateWaitFinanceStaff},
		{"president", domainwf.StateWaitPresident, Guards{}, domainwf.StateWaitFinanceStaff},
		{"finance staff", domainwf.StateWaitFinanceStaff, Guards{}, domainwf.StateWaitFinanceChief},
		{"finance chief reimburse", domainwf.StateWaitFinanceChief, Guards{IsReimburse: always(true)}, domainwf.StateComplete},
		{"finance chief advance", domainwf.StateWaitFinanceChief, Guards{IsReimburse: always(false)}, domainwf.StateWaitFinanceChief},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildRequirementMachine(tt.from, tt.guards)
			if err := m.Fire(context.Background(), domainwf.TriggerApprove); err != nil {
				t.Fatalf("Fire() failed: %v", err)
			}
			if m.State() != tt.want {
				t.Errorf("State = %v, want %v", m.State(), tt.want)
			}
		})
	}
}

func TestBuildRequirementMachine_RejectFromEveryWaitingState(t *testing.T) {
	for _, from := range []domainwf.State{
		domainwf.StateWaitDeptChief,
		domainwf.StateWaitPresident,
		domainwf.StateWaitFinanceStaff,
		domainwf.StateWaitFinanceChief,
	} {
		m := BuildRequirementMachine(from, Guards{})
		if err := m.Fire(context.Background(), domainwf.TriggerReject); err != nil {
			t.Fatalf("Fire(REJECT) from %s failed: %v", from, err)
		}
		if m.State() != domainwf.StateAbandoned {
			t.Errorf("State = %v, want %v", m.State(), domainwf.StateAbandoned)
		}
	}
}

func TestBuildRequirementMachine_RefusedTriggers(t *testing.T) {
	tests := []struct {
		from    domainwf.State
		trigger domainwf.Trigger
	}{
		{domainwf.StateDraft, domainwf.TriggerApprove},
		{domainwf.StateDraft, domainwf.TriggerReject},
		{domainwf.StateWaitDeptChief, domainwf.TriggerSubmit},
		{domainwf.StateComplete, domainwf.TriggerApprove},
		{domainwf.StateAbandoned, domainwf.TriggerReject},
	}

	for _, tt := range tests {
		m := BuildRequirementMachine(tt.from, Guards{})
		err := m.Fire(context.Background(), tt.trigger)
		if !errors.Is(err, domainwf.ErrInvalidTransition) {
			t.Errorf("Fire(%s) from %s error = %v, want ErrInvalidTransition", tt.trigger, tt.from, err)
		}
	}
}
