package workflow

import (
	"context"
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/authz"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/event"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// TransitionRequest identifies the claim and the acting user.
// ExpectedVersion, when non-zero, must match the stored snapshot.
type TransitionRequest struct {
	ClaimID         string `json:"claim_id"`
	ActorID         string `json:"actor_id"`
	ExpectedVersion int64  `json:"expected_version,omitempty"`
}

// ForwardInput is the payload of forwardToInsurer
type ForwardInput struct {
	InsurerID string `json:"insurer_id,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// DecisionInput is the payload of makeDecision
type DecisionInput struct {
	Decision        domainwf.State `json:"decision"`
	ApprovedCents   int64          `json:"approved_cents"`
	DeductibleCents int64          `json:"deductible_cents"`
	Notes           string         `json:"notes,omitempty"`
}

// ReturnInput is the payload of returnClaim
type ReturnInput struct {
	TargetStage domainwf.State `json:"target_stage"`
	Reason      string         `json:"reason"`
}

// CloseInput is the payload of close
type CloseInput struct {
	Notes string `json:"notes,omitempty"`
}

// Change is the working state handed to a mutation. Claim is a private
// clone; mutating it has no effect unless the commit succeeds.
type Change struct {
	Claim   *entity.Claim
	Actor   *entity.Actor
	Now     time.Time
	From    domainwf.State
	Trigger domainwf.Trigger
}

// Mutation describes one atomic read-modify-write of a claim
type Mutation struct {
	Transition authz.Transition

	// Triggers are tried in order; the first the state machine permits from
	// the current state is fired. Empty means the status does not change.
	Triggers []domainwf.Trigger

	// States restricts status-preserving mutations
	States []domainwf.State

	// Apply edits the clone. Errors abort the mutation.
	Apply func(ctx context.Context, ch *Change) error

	// Guard is evaluated by the state machine against the edited clone
	Guard func(ctx context.Context, ch *Change) error

	Notes     string
	EventType event.Type
	Payload   map[string]interface{}
}

// Engine runs claim lifecycle operations. Every operation resolves the actor,
// loads the snapshot, authorizes, checks the state machine, validates and
// commits with a version check. It never retries.
type Engine interface {
	Submit(ctx context.Context, req TransitionRequest) (*entity.Claim, error)
	ForwardToInsurer(ctx context.Context, req TransitionRequest, in ForwardInput) (*entity.Claim, error)
	MakeDecision(ctx context.Context, req TransitionRequest, in DecisionInput) (*entity.Claim, error)
	ReturnClaim(ctx context.Context, req TransitionRequest, in ReturnInput) (*entity.Claim, error)
	MarkPaid(ctx context.Context, req TransitionRequest) (*entity.Claim, error)
	Close(ctx context.Context, req TransitionRequest, in CloseInput) (*entity.Claim, error)
	DeleteClaim(ctx context.Context, req TransitionRequest) error

	// Create stores a new draft claim built by the caller
	Create(ctx context.Context, actorID string, claim *entity.Claim) (*entity.Claim, error)

	// Mutate runs an arbitrary claim edit through the same pipeline
	Mutate(ctx context.Context, req TransitionRequest, m Mutation) (*entity.Claim, error)

	// Authorize resolves the actor and, when claimID is set, loads the claim
	// and checks the gate for t
	Authorize(ctx context.Context, actorID string, t authz.Transition, claimID string) (*entity.Actor, *entity.Claim, error)
}
