package entity

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

func validClaim(now time.Time) *Claim {
	return &Claim{
		ID:           NewClaimID(now),
		EmployeeID:   "emp-1",
		PolicyID:     "POL-1",
		Category:     CategoryMedical,
		Option:       OptionHospitalization,
		Status:       workflow.StateDraft,
		Priority:     DefaultPriority,
		Amounts:      AmountLedger{RequestedCents: 10000},
		IncidentDate: now.Add(-48 * time.Hour),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNewClaimID(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^CLM-20240309-[0-9A-HJKMNP-TV-Z]{10}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewClaimID(now)
		if !pattern.MatchString(id) {
			t.Fatalf("NewClaimID() = %q, does not match %s", id, pattern)
		}
		if seen[id] {
			t.Fatalf("NewClaimID() produced duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestClaim_ValidateDetails(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mutate    func(c *Claim)
		wantField string
	}{
		{"valid", func(c *Claim) {}, ""},
		{"option from other category", func(c *Claim) { c.Option = OptionTheft }, "option"},
		{"unknown category", func(c *Claim) { c.Category = "pet" }, "category"},
		{"unknown priority", func(c *Claim) { c.Priority = "asap" }, "priority"},
		{"missing policy", func(c *Claim) { c.PolicyID = " " }, "policy_id"},
		{"incident after creation", func(c *Claim) { c.IncidentDate = now.Add(time.Hour) }, "incident_date"},
		{"missing incident", func(c *Claim) { c.IncidentDate = time.Time{} }, "incident_date"},
		{"description too long", func(c *Claim) { c.Description = strings.Repeat("é", MaxDescriptionLength+1) }, "description"},
		{"remarks at limit", func(c *Claim) { c.Remarks = strings.Repeat("r", MaxRemarksLength) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaim(now)
			tt.mutate(c)
			verr := c.ValidateDetails()
			if tt.wantField == "" {
				if verr.HasErrors() {
					t.Fatalf("ValidateDetails() = %v, want no errors", verr)
				}
				return
			}
			if !verr.HasErrors() {
				t.Fatalf("ValidateDetails() returned no errors, want %s", tt.wantField)
			}
			if verr.Fields[0].Field != tt.wantField {
				t.Errorf("first failing field = %s, want %s", verr.Fields[0].Field, tt.wantField)
			}
		})
	}
}

func TestClaim_CloneIsDeep(t *testing.T) {
	now := time.Now().UTC()
	c := validClaim(now)
	c.Documents = []DocumentRef{{ID: "doc-1"}}
	c.Answers.Put(Answer{QuestionID: "q1", Value: "yes", SubmittedAt: now})
	c.Stamp(MilestoneSubmitted, now)

	clone := c.Clone()
	clone.Documents[0].ID = "changed"
	clone.Answers.Put(Answer{QuestionID: "q1", Value: "no", SubmittedAt: now})
	*clone.Workflow.SubmittedAt = now.Add(time.Hour)
	clone.Status = workflow.StateSubmitted

	if c.Documents[0].ID != "doc-1" {
		t.Error("Clone() shares the documents slice")
	}
	if a, _ := c.Answers.Get("q1"); a.Value != "yes" {
		t.Error("Clone() shares the answer ledger")
	}
	if !c.Workflow.SubmittedAt.Equal(now) {
		t.Error("Clone() shares workflow timestamps")
	}
	if c.Status != workflow.StateDraft {
		t.Error("Clone() shares status")
	}
}

func TestClaim_Validate(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	c := validClaim(now)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	c.Amounts.ApprovedCents = c.Amounts.RequestedCents + 1
	if err := c.Validate(); err == nil {
		t.Error("Validate() should reject approved above requested")
	}

	c = validClaim(now)
	submitted := now.Add(-72 * time.Hour)
	c.Workflow.SubmittedAt = &submitted
	c.CreatedAt = now.Add(-96 * time.Hour)
	if err := c.Validate(); err == nil {
		t.Error("Validate() should reject an incident after submission")
	}
}

func TestClaim_IsOwnedBy(t *testing.T) {
	c := validClaim(time.Now())
	if !c.IsOwnedBy("emp-1") {
		t.Error("IsOwnedBy(owner) = false")
	}
	if c.IsOwnedBy("emp-2") || c.IsOwnedBy("") {
		t.Error("IsOwnedBy(other) = true")
	}
	var nilClaim *Claim
	if nilClaim.IsOwnedBy("emp-1") {
		t.Error("nil claim should not be owned")
	}
}
