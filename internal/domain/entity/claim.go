package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// Reviewers references the reviewers eligible to act on a claim
type Reviewers struct {
	HROfficerID string `json:"hr_officer_id,omitempty"`
	InsurerID   string `json:"insurer_id,omitempty"`
}

// Claim is the snapshot of one insurance claim. Every committed mutation
// produces a new snapshot with Version incremented by one.
type Claim struct {
	ID                   string             `json:"id"`
	EmployeeID           string             `json:"employee_id"`
	PolicyID             string             `json:"policy_id"`
	Category             Category           `json:"category"`
	Option               ClaimOption        `json:"option"`
	Status               workflow.State     `json:"status"`
	Priority             Priority           `json:"priority"`
	Amounts              AmountLedger       `json:"amounts"`
	IncidentDate         time.Time          `json:"incident_date"`
	Description          string             `json:"description,omitempty"`
	Remarks              string             `json:"remarks,omitempty"`
	Documents            []DocumentRef      `json:"documents"`
	Reviewers            Reviewers          `json:"reviewers"`
	Workflow             WorkflowTimestamps `json:"workflow"`
	Answers              AnswerLedger       `json:"answers,omitempty"`
	QuestionnaireVersion string             `json:"questionnaire_version"`
	ReturnCount          int                `json:"return_count"`
	LastReturnReason     string             `json:"last_return_reason,omitempty"`
	DecisionNotes        string             `json:"decision_notes,omitempty"`
	Version              int64              `json:"version"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// NewClaimID generates a claim code of the form CLM-YYYYMMDD-XXXXXXXXXX.
// The suffix is the random part of a ULID minted at t.
func NewClaimID(t time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
	return fmt.Sprintf("CLM-%s-%s", t.UTC().Format("20060102"), id[len(id)-10:])
}

// IsOwnedBy returns true when actorID is the claimant
func (c *Claim) IsOwnedBy(actorID string) bool {
	return c != nil && actorID != "" && c.EmployeeID == actorID
}

// Document returns the attached document with the given id
func (c *Claim) Document(id string) (DocumentRef, bool) {
	for _, d := range c.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return DocumentRef{}, false
}

// Stamp records a workflow milestone, never earlier than CreatedAt
func (c *Claim) Stamp(m Milestone, at time.Time) bool {
	return c.Workflow.Stamp(m, at, c.CreatedAt)
}

// Clone returns a deep copy so the caller can mutate it freely
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	out := *c
	out.Documents = append([]DocumentRef(nil), c.Documents...)
	out.Workflow = c.Workflow.Clone()
	out.Answers = c.Answers.Clone()
	return &out
}

// ValidateDetails checks the claimant-editable fields
func (c *Claim) ValidateDetails() *apperr.ValidationError {
	verr := &apperr.ValidationError{}

	if strings.TrimSpace(c.EmployeeID) == "" {
		verr.Add("employee_id", "is required")
	}
	if strings.TrimSpace(c.PolicyID) == "" {
		verr.Add("policy_id", "is required")
	}
	if !c.Category.IsValid() {
		verr.Add("category", fmt.Sprintf("unknown category %q", c.Category))
	} else if !c.Category.HasOption(c.Option) {
		verr.Add("option", fmt.Sprintf("%q is not an option of category %s", c.Option, c.Category))
	}
	if !c.Priority.IsValid() {
		verr.Add("priority", fmt.Sprintf("unknown priority %q", c.Priority))
	}
	if utf8.RuneCountInString(c.Description) > MaxDescriptionLength {
		verr.Add("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
	if utf8.RuneCountInString(c.Remarks) > MaxRemarksLength {
		verr.Add("remarks", fmt.Sprintf("must be at most %d characters", MaxRemarksLength))
	}
	if c.IncidentDate.IsZero() {
		verr.Add("incident_date", "is required")
	} else if !c.CreatedAt.IsZero() && c.IncidentDate.After(c.CreatedAt) {
		verr.Add("incident_date", "must not be after the claim was created")
	}

	return verr
}

// Validate checks every snapshot invariant before a commit
func (c *Claim) Validate() error {
	verr := c.ValidateDetails()
	if !c.Status.IsValid() {
		verr.Add("status", fmt.Sprintf("unknown status %q", c.Status))
	}
	if err := c.Amounts.Validate(); err != nil {
		var v *apperr.ValidationError
		if errors.As(err, &v) {
			verr.Merge(v)
		}
	}
	verr.Merge(c.Workflow.Validate(c.CreatedAt))
	if c.Workflow.SubmittedAt != nil && c.IncidentDate.After(*c.Workflow.SubmittedAt) {
		verr.Add("incident_date", "must not be after submission")
	}
	return verr.OrNil()
}
