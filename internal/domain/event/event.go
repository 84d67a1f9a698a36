package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a lifecycle notification emitted after a requirement change commits
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequirementID string                 `json:"requirement_id"`
	ActorID       string                 `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
}

// NewEvent creates an event with a generated ID
func NewEvent(eventType Type, requirementID, actorID string, payload map[string]interface{}, at time.Time) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequirementID: requirementID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     at,
	}
}

// WithPayload returns a copy of the event with key set; the receiver is not modified
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	c := *e
	c.Payload = payload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}
