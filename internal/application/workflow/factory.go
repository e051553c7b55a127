package workflow

import (
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// BuildClaimStateMachine creates a state machine for the claim lifecycle.
// guards optionally attach a precondition to a trigger.
func BuildClaimStateMachine(initialState domainwf.State, guards map[domainwf.Trigger]domainwf.GuardFunc) domainwf.StateMachine {
	builder := domainwf.NewBuilder()
	guard := func(t domainwf.Trigger) domainwf.GuardFunc {
		return guards[t]
	}

	// draft: the employee stage
	builder.Configure(domainwf.StateDraft).
		PermitIf(domainwf.TriggerSubmit, domainwf.StateSubmitted, guard(domainwf.TriggerSubmit))

	// submitted: the HR review stage
	builder.Configure(domainwf.StateSubmitted).
		PermitIf(domainwf.TriggerForward, domainwf.StateUnderReview, guard(domainwf.TriggerForward)).
		PermitIf(domainwf.TriggerReturnToEmployee, domainwf.StateDraft, guard(domainwf.TriggerReturnToEmployee))

	// under_review: the insurer stage
	builder.Configure(domainwf.StateUnderReview).
		PermitIf(domainwf.TriggerReassign, domainwf.StateUnderReview, guard(domainwf.TriggerReassign)).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, guard(domainwf.TriggerApprove)).
		PermitIf(domainwf.TriggerPartiallyApprove, domainwf.StatePartiallyApproved, guard(domainwf.TriggerPartiallyApprove)).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, guard(domainwf.TriggerReject)).
		PermitIf(domainwf.TriggerReturnToHR, domainwf.StateSubmitted, guard(domainwf.TriggerReturnToHR))

	builder.Configure(domainwf.StateApproved).
		PermitIf(domainwf.TriggerMarkPaid, domainwf.StatePaid, guard(domainwf.TriggerMarkPaid))

	builder.Configure(domainwf.StatePartiallyApproved).
		PermitIf(domainwf.TriggerMarkPaid, domainwf.StatePaid, guard(domainwf.TriggerMarkPaid))

	builder.Configure(domainwf.StatePaid).
		PermitIf(domainwf.TriggerClose, domainwf.StateClosed, guard(domainwf.TriggerClose))

	builder.Configure(domainwf.StateRejected).
		PermitIf(domainwf.TriggerClose, domainwf.StateClosed, guard(domainwf.TriggerClose))

	// closed is terminal

	return builder.Build(initialState)
}
