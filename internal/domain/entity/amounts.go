package entity

import (
	"fmt"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
)

// AmountLedger holds the monetary figures of a claim in cents.
// Invariants: every value is non-negative, approved <= requested and
// final == max(approved - deductible, 0).
type AmountLedger struct {
	RequestedCents  int64 `json:"requested_cents"`
	ApprovedCents   int64 `json:"approved_cents"`
	DeductibleCents int64 `json:"deductible_cents"`
	FinalCents      int64 `json:"final_cents"`
}

// FinalAmount computes the payable amount for a decision
func FinalAmount(approvedCents, deductibleCents int64) int64 {
	if final := approvedCents - deductibleCents; final > 0 {
		return final
	}
	return 0
}

// SetRequested replaces the requested amount. Callers must only do this
// while the claim is a draft.
func (a *AmountLedger) SetRequested(cents int64) error {
	if cents < 0 {
		return apperr.NewValidation("requested_cents", "must not be negative")
	}
	if cents < a.ApprovedCents {
		return apperr.NewValidation("requested_cents", "must not be below the approved amount")
	}
	a.RequestedCents = cents
	return nil
}

// ApplyDecision records the insurer's figures and derives the final amount
func (a *AmountLedger) ApplyDecision(approvedCents, deductibleCents int64) error {
	verr := &apperr.ValidationError{}
	if approvedCents < 0 {
		verr.Add("approved_cents", "must not be negative")
	}
	if approvedCents > a.RequestedCents {
		verr.Add("approved_cents", fmt.Sprintf("must not exceed the requested amount %d", a.RequestedCents))
	}
	if deductibleCents < 0 {
		verr.Add("deductible_cents", "must not be negative")
	}
	if verr.HasErrors() {
		return verr
	}

	a.ApprovedCents = approvedCents
	a.DeductibleCents = deductibleCents
	a.FinalCents = FinalAmount(approvedCents, deductibleCents)
	return nil
}

// Validate re-checks every ledger invariant
func (a AmountLedger) Validate() error {
	verr := &apperr.ValidationError{}
	if a.RequestedCents < 0 {
		verr.Add("requested_cents", "must not be negative")
	}
	if a.ApprovedCents < 0 {
		verr.Add("approved_cents", "must not be negative")
	}
	if a.DeductibleCents < 0 {
		verr.Add("deductible_cents", "must not be negative")
	}
	if a.ApprovedCents > a.RequestedCents {
		verr.Add("approved_cents", "must not exceed the requested amount")
	}
	if a.FinalCents != FinalAmount(a.ApprovedCents, a.DeductibleCents) {
		verr.Add("final_cents", "must equal approved minus deductible, floored at zero")
	}
	return verr.OrNil()
}
