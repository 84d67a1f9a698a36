package entity

import "time"

// History is one entry in a requirement's audit trail
type History struct {
	ID            int64     `json:"id"`
	RequirementID string    `json:"requirement_id"`
	ActorID       string    `json:"actor_id"`
	PreviousState string    `json:"previous_state"`
	NewState      string    `json:"new_state"`
	Action        Action    `json:"action"`
	Note          string    `json:"note"`
	Timestamp     time.Time `json:"timestamp"`
}
