package entity

import (
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// ClaimHistory is one audit entry, written with every committed mutation
type ClaimHistory struct {
	ID             string         `json:"id"`
	ClaimID        string         `json:"claim_id"`
	ActorID        string         `json:"actor_id"`
	ActorRole      Role           `json:"actor_role"`
	Transition     string         `json:"transition"`
	PreviousStatus workflow.State `json:"previous_status,omitempty"`
	NewStatus      workflow.State `json:"new_status"`
	Version        int64          `json:"version"`
	Notes          string         `json:"notes,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
