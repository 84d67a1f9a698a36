package event

// Type identifies the kind of lifecycle event
type Type string

const (
	TypeRequirementOpened    Type = "requirement.opened"
	TypeRequirementEdited    Type = "requirement.edited"
	TypeRequirementSubmitted Type = "requirement.submitted"
	TypeRequirementApproved  Type = "requirement.approved"
	TypeRequirementRejected  Type = "requirement.rejected"
	TypeRequirementCompleted Type = "requirement.completed"
	TypeRequirementCited     Type = "requirement.cited"
	TypeRequirementClosed    Type = "requirement.closed"
	TypeRequirementPaid      Type = "requirement.paid"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequirementOpened,
		TypeRequirementEdited,
		TypeRequirementSubmitted,
		TypeRequirementApproved,
		TypeRequirementRejected,
		TypeRequirementCompleted,
		TypeRequirementCited,
		TypeRequirementClosed,
		TypeRequirementPaid:
		return true
	default:
		return false
	}
}
