package entity

import (
	"fmt"
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
)

// Milestone identifies one workflow timestamp, in lifecycle order
type Milestone int

const (
	MilestoneSubmitted Milestone = iota
	MilestoneHRReviewed
	MilestoneForwarded
	MilestoneInsurerReviewed
	MilestoneFinalDecision
	MilestonePaymentProcessed
)

var milestoneNames = [...]string{
	"submitted_at",
	"hr_reviewed_at",
	"forwarded_at",
	"insurer_reviewed_at",
	"final_decision_at",
	"payment_processed_at",
}

func (m Milestone) String() string {
	if m < 0 || int(m) >= len(milestoneNames) {
		return fmt.Sprintf("milestone(%d)", int(m))
	}
	return milestoneNames[m]
}

// WorkflowTimestamps records when a claim first reached each milestone.
// Each field is written at most once and set fields never decrease in
// lifecycle order. Returns do not clear them.
type WorkflowTimestamps struct {
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	HRReviewedAt       *time.Time `json:"hr_reviewed_at,omitempty"`
	ForwardedAt        *time.Time `json:"forwarded_at,omitempty"`
	InsurerReviewedAt  *time.Time `json:"insurer_reviewed_at,omitempty"`
	FinalDecisionAt    *time.Time `json:"final_decision_at,omitempty"`
	PaymentProcessedAt *time.Time `json:"payment_processed_at,omitempty"`
}

func (w *WorkflowTimestamps) fields() []**time.Time {
	return []**time.Time{
		&w.SubmittedAt,
		&w.HRReviewedAt,
		&w.ForwardedAt,
		&w.InsurerReviewedAt,
		&w.FinalDecisionAt,
		&w.PaymentProcessedAt,
	}
}

// Get returns the timestamp of a milestone, nil when unset
func (w *WorkflowTimestamps) Get(m Milestone) *time.Time {
	fields := w.fields()
	if m < 0 || int(m) >= len(fields) {
		return nil
	}
	return *fields[m]
}

// Stamp sets a milestone if it is still unset. The stored value is clamped
// so it is never earlier than floor or any earlier milestone. It returns
// false when the milestone was already set.
func (w *WorkflowTimestamps) Stamp(m Milestone, at, floor time.Time) bool {
	fields := w.fields()
	if m < 0 || int(m) >= len(fields) || *fields[m] != nil {
		return false
	}

	if at.Before(floor) {
		at = floor
	}
	for _, f := range fields[:m] {
		if *f != nil && at.Before(**f) {
			at = **f
		}
	}

	t := at
	*fields[m] = &t
	return true
}

// Validate checks that set milestones are ordered and not before createdAt
func (w *WorkflowTimestamps) Validate(createdAt time.Time) *apperr.ValidationError {
	verr := &apperr.ValidationError{}
	prev := createdAt
	for i, f := range w.fields() {
		if *f == nil {
			continue
		}
		if (*f).Before(prev) {
			verr.Add(Milestone(i).String(), "precedes an earlier milestone")
			continue
		}
		prev = **f
	}
	return verr
}

// Clone returns a deep copy
func (w WorkflowTimestamps) Clone() WorkflowTimestamps {
	out := WorkflowTimestamps{}
	src := w.fields()
	for i, dst := range out.fields() {
		if *src[i] != nil {
			t := **src[i]
			*dst = &t
		}
	}
	return out
}
