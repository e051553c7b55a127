package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/authz"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/event"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// Submit moves a complete draft to HR review
func (e *engineImpl) Submit(ctx context.Context, req TransitionRequest) (*entity.Claim, error) {
	return e.Mutate(ctx, req, Mutation{
		Transition: authz.TransitionSubmit,
		Triggers:   []domainwf.Trigger{domainwf.TriggerSubmit},
		Apply: func(ctx context.Context, ch *Change) error {
			ch.Claim.Stamp(entity.MilestoneSubmitted, ch.Now)
			return nil
		},
		Guard: func(ctx context.Context, ch *Change) error {
			return e.validateSubmission(ch.Claim, ch.Now)
		},
	})
}

// validateSubmission collects every reason a draft cannot be submitted
func (e *engineImpl) validateSubmission(c *entity.Claim, now time.Time) error {
	verr := &apperr.ValidationError{}

	if c.Amounts.RequestedCents <= 0 {
		verr.Add("requested_cents", "must be greater than zero")
	}
	if c.IncidentDate.IsZero() {
		verr.Add("incident_date", "is required")
	} else if c.IncidentDate.After(now) {
		verr.Add("incident_date", "must not be in the future")
	}

	qn, ok := e.catalog.Get(c.QuestionnaireVersion)
	if !ok {
		verr.Add("questionnaire_version", fmt.Sprintf("unknown version %q", c.QuestionnaireVersion))
		return verr
	}
	for _, id := range qn.MissingRequired(c) {
		verr.Add("answers."+id, "required question is unanswered")
	}

	return verr.OrNil()
}

// ForwardToInsurer hands a submitted claim to the insurer stage, or
// reassigns a claim already under insurer review
func (e *engineImpl) ForwardToInsurer(ctx context.Context, req TransitionRequest, in ForwardInput) (*entity.Claim, error) {
	in.InsurerID = strings.TrimSpace(in.InsurerID)

	return e.Mutate(ctx, req, Mutation{
		Transition: authz.TransitionForwardToInsurer,
		Triggers:   []domainwf.Trigger{domainwf.TriggerForward, domainwf.TriggerReassign},
		Notes:      in.Notes,
		Payload:    map[string]interface{}{"insurer_id": in.InsurerID},
		Apply: func(ctx context.Context, ch *Change) error {
			if err := checkNotes("notes", in.Notes, entity.MaxRemarksLength); err != nil {
				return err
			}

			if ch.Trigger == domainwf.TriggerReassign {
				if in.InsurerID == "" {
					return apperr.NewValidation("insurer_id", "is required to reassign a claim under review")
				}
				if in.InsurerID == ch.Claim.Reviewers.InsurerID {
					return apperr.NewValidation("insurer_id", "claim is already assigned to this insurer")
				}
			}

			if in.InsurerID != "" {
				if err := e.checkInsurer(ctx, in.InsurerID); err != nil {
					return err
				}
				ch.Claim.Reviewers.InsurerID = in.InsurerID
			}

			if ch.Trigger == domainwf.TriggerForward {
				ch.Claim.Reviewers.HROfficerID = ch.Actor.ID
				ch.Claim.Stamp(entity.MilestoneHRReviewed, ch.Now)
				ch.Claim.Stamp(entity.MilestoneForwarded, ch.Now)
			}
			return nil
		},
	})
}

// checkInsurer verifies that id names an active insurance agent
func (e *engineImpl) checkInsurer(ctx context.Context, id string) error {
	insurer, err := e.directory.Resolve(ctx, id)
	if err != nil {
		return apperr.Unavailable(depDirectory, err)
	}
	switch {
	case insurer == nil:
		return apperr.NewValidation("insurer_id", fmt.Sprintf("unknown insurer %s", id))
	case insurer.Role != entity.RoleInsuranceAgent:
		return apperr.NewValidation("insurer_id", fmt.Sprintf("%s is not an insurance agent", id))
	case !insurer.Active:
		return apperr.NewValidation("insurer_id", fmt.Sprintf("insurer %s is inactive", id))
	}
	return nil
}

var decisionTriggers = []domainwf.Trigger{
	domainwf.TriggerApprove,
	domainwf.TriggerPartiallyApprove,
	domainwf.TriggerReject,
}

// MakeDecision records the insurer's verdict and amounts
func (e *engineImpl) MakeDecision(ctx context.Context, req TransitionRequest, in DecisionInput) (*entity.Claim, error) {
	triggers := decisionTriggers
	trigger, valid := domainwf.DecisionTrigger(in.Decision)
	if valid {
		triggers = []domainwf.Trigger{trigger}
	}

	return e.Mutate(ctx, req, Mutation{
		Transition: authz.TransitionMakeDecision,
		Triggers:   triggers,
		Notes:      in.Notes,
		Payload: map[string]interface{}{
			"decision":       in.Decision.String(),
			"approved_cents": in.ApprovedCents,
		},
		Apply: func(ctx context.Context, ch *Change) error {
			if !valid {
				return apperr.NewValidation("decision", fmt.Sprintf("must be one of approved, partially_approved, rejected; got %q", in.Decision))
			}
			if err := validateDecision(in, ch.Claim.Amounts.RequestedCents); err != nil {
				return err
			}
			if err := ch.Claim.Amounts.ApplyDecision(in.ApprovedCents, in.DeductibleCents); err != nil {
				return err
			}

			ch.Claim.DecisionNotes = in.Notes
			if ch.Claim.Reviewers.InsurerID == "" && ch.Actor.Role == entity.RoleInsuranceAgent {
				ch.Claim.Reviewers.InsurerID = ch.Actor.ID
			}
			ch.Claim.Stamp(entity.MilestoneInsurerReviewed, ch.Now)
			ch.Claim.Stamp(entity.MilestoneFinalDecision, ch.Now)
			return nil
		},
	})
}

func validateDecision(in DecisionInput, requested int64) error {
	verr := &apperr.ValidationError{}

	switch in.Decision {
	case domainwf.StateApproved:
		if in.ApprovedCents <= 0 || in.ApprovedCents > requested {
			verr.Add("approved_cents", fmt.Sprintf("approval must be between 1 and %d", requested))
		}
	case domainwf.StatePartiallyApproved:
		if in.ApprovedCents <= 0 || in.ApprovedCents >= requested {
			verr.Add("approved_cents", fmt.Sprintf("partial approval must be between 1 and %d", requested-1))
		}
	case domainwf.StateRejected:
		if in.ApprovedCents != 0 {
			verr.Add("approved_cents", "must be zero for a rejection")
		}
	}
	if in.DeductibleCents < 0 {
		verr.Add("deductible_cents", "must not be negative")
	}
	if utf8.RuneCountInString(in.Notes) > entity.MaxRemarksLength {
		verr.Add("notes", fmt.Sprintf("must be at most %d characters", entity.MaxRemarksLength))
	}

	return verr.OrNil()
}

// ReturnClaim sends a claim back exactly one stage
func (e *engineImpl) ReturnClaim(ctx context.Context, req TransitionRequest, in ReturnInput) (*entity.Claim, error) {
	reason := strings.TrimSpace(in.Reason)

	return e.Mutate(ctx, req, Mutation{
		Transition: authz.TransitionReturnClaim,
		Triggers:   []domainwf.Trigger{domainwf.TriggerReturnToHR, domainwf.TriggerReturnToEmployee},
		Notes:      reason,
		Payload:    map[string]interface{}{"reason": reason},
		Apply: func(ctx context.Context, ch *Change) error {
			previous := domainwf.StateSubmitted
			if ch.Trigger == domainwf.TriggerReturnToEmployee {
				previous = domainwf.StateDraft
			}
			if in.TargetStage != previous {
				return &apperr.InvalidTransitionError{
					Transition: authz.TransitionReturnClaim.String(),
					From:       ch.From.String(),
					Reason:     fmt.Sprintf("a claim in %s can only return to %s, not %q", ch.From, previous, in.TargetStage),
					Cause:      domainwf.ErrInvalidTransition,
				}
			}

			if reason == "" {
				return apperr.NewValidation("reason", "is required")
			}
			if err := checkNotes("reason", reason, entity.MaxReasonLength); err != nil {
				return err
			}

			ch.Claim.ReturnCount++
			ch.Claim.LastReturnReason = reason
			if ch.Trigger == domainwf.TriggerReturnToHR {
				ch.Claim.Reviewers.InsurerID = ""
			}
			return nil
		},
	})
}

// MarkPaid records the payout of an approved claim
func (e *engineImpl) MarkPaid(ctx context.Context, req TransitionRequest) (*entity.Claim, error) {
	return e.Mutate(ctx, req, Mutation{
		Transition: authz.TransitionMarkPaid,
		Triggers:   []domainwf.Trigger{domainwf.TriggerMarkPaid},
		Apply: func(ctx context.Context, ch *Change) error {
			ch.Claim.Stamp(entity.MilestonePaymentProcessed, ch.Now)
			return nil
		},
	})
}

// Close archives a paid or rejected claim
func (e *engineImpl) Close(ctx context.Context, req TransitionRequest, in CloseInput) (*entity.Claim, error) {
	return e.Mutate(ctx, req, Mutation{
		Transition: authz.TransitionClose,
		Triggers:   []domainwf.Trigger{domainwf.TriggerClose},
		Notes:      in.Notes,
		Apply: func(ctx context.Context, ch *Change) error {
			return checkNotes("notes", in.Notes, entity.MaxRemarksLength)
		},
	})
}

// DeleteClaim removes a draft. Its history is kept.
func (e *engineImpl) DeleteClaim(ctx context.Context, req TransitionRequest) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	actor, err := e.resolveActor(ctx, req.ActorID)
	if err != nil {
		return err
	}
	current, err := e.loadClaim(ctx, req.ClaimID)
	if err != nil {
		return err
	}
	if req.ExpectedVersion != 0 && current.Version != req.ExpectedVersion {
		return &apperr.ConcurrentModificationError{ClaimID: current.ID, ExpectedVersion: req.ExpectedVersion}
	}
	if err := e.gate.Allow(actor, authz.TransitionDeleteClaim, current); err != nil {
		return err
	}
	if current.Status != domainwf.StateDraft {
		return &apperr.InvalidTransitionError{
			Transition: authz.TransitionDeleteClaim.String(),
			From:       current.Status.String(),
			Reason:     "only drafts can be deleted",
			Cause:      domainwf.ErrInvalidTransition,
		}
	}

	now := e.now()
	history := &entity.ClaimHistory{
		ID:             uuid.NewString(),
		ClaimID:        current.ID,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		Transition:     authz.TransitionDeleteClaim.String(),
		PreviousStatus: current.Status,
		NewStatus:      current.Status,
		Version:        current.Version + 1,
		Notes:          "claim deleted",
		Timestamp:      now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.claimRepo.Delete(txCtx, current.ID, current.Version); err != nil {
			return err
		}
		return e.historyRepo.Create(txCtx, history)
	})
	if err != nil {
		return storeError(current.ID, current.Version, err)
	}

	e.logInfo("Claim deleted", "claim_id", current.ID, "actor_id", actor.ID, "version", current.Version)
	e.emit(ctx, event.NewEvent(event.TypeClaimDeleted, current.ID, actor.ID, map[string]interface{}{
		"version": current.Version,
	}))
	return nil
}
