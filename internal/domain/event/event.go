package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event about one claim
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ClaimID       string                 `json:"claim_id"`
	ActorID       string                 `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, claimID, actorID string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, claimID, actorID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, claimID, actorID string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ClaimID:       claimID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	out := *e
	out.Payload = newPayload
	return &out
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
