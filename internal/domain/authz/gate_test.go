package authz

import (
	"errors"
	"testing"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

func actor(id string, role entity.Role) *entity.Actor {
	return &entity.Actor{ID: id, Role: role, Active: true}
}

func claimIn(status workflow.State) *entity.Claim {
	return &entity.Claim{ID: "CLM-1", EmployeeID: "emp-1", Status: status}
}

func TestGate_Allow(t *testing.T) {
	gate := NewGate()

	owner := actor("emp-1", entity.RoleEmployee)
	stranger := actor("emp-2", entity.RoleEmployee)
	hr := actor("hr-1", entity.RoleHROfficer)
	insurer := actor("ins-1", entity.RoleInsuranceAgent)
	admin := actor("adm-1", entity.RoleAdmin)

	tests := []struct {
		name       string
		actor      *entity.Actor
		transition Transition
		status     workflow.State
		allowed    bool
	}{
		{"owner submits", owner, TransitionSubmit, workflow.StateDraft, true},
		{"other employee submits", stranger, TransitionSubmit, workflow.StateDraft, false},
		{"hr submits", hr, TransitionSubmit, workflow.StateDraft, false},
		{"admin submits", admin, TransitionSubmit, workflow.StateDraft, true},
		{"hr forwards", hr, TransitionForwardToInsurer, workflow.StateSubmitted, true},
		{"insurer forwards", insurer, TransitionForwardToInsurer, workflow.StateSubmitted, false},
		{"insurer decides", insurer, TransitionMakeDecision, workflow.StateUnderReview, true},
		{"hr decides", hr, TransitionMakeDecision, workflow.StateUnderReview, false},
		{"owner decides", owner, TransitionMakeDecision, workflow.StateUnderReview, false},
		{"insurer returns from review", insurer, TransitionReturnClaim, workflow.StateUnderReview, true},
		{"hr returns from review", hr, TransitionReturnClaim, workflow.StateUnderReview, false},
		{"hr returns from submitted", hr, TransitionReturnClaim, workflow.StateSubmitted, true},
		{"insurer returns from submitted", insurer, TransitionReturnClaim, workflow.StateSubmitted, false},
		{"employee returns", owner, TransitionReturnClaim, workflow.StateSubmitted, false},
		{"admin returns", admin, TransitionReturnClaim, workflow.StateUnderReview, true},
		{"insurer pays", insurer, TransitionMarkPaid, workflow.StateApproved, true},
		{"hr pays", hr, TransitionMarkPaid, workflow.StateApproved, false},
		{"admin closes", admin, TransitionClose, workflow.StatePaid, true},
		{"insurer closes", insurer, TransitionClose, workflow.StatePaid, false},
		{"owner deletes", owner, TransitionDeleteClaim, workflow.StateDraft, true},
		{"stranger deletes", stranger, TransitionDeleteClaim, workflow.StateDraft, false},
		{"hr views", hr, TransitionViewClaim, workflow.StateSubmitted, true},
		{"stranger views", stranger, TransitionViewClaim, workflow.StateSubmitted, false},
		{"owner answers", owner, TransitionSubmitSectionAnswers, workflow.StateDraft, true},
		{"hr answers", hr, TransitionSubmitSectionAnswers, workflow.StateDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Allow(tt.actor, tt.transition, claimIn(tt.status))
			if tt.allowed && err != nil {
				t.Fatalf("Allow() = %v, want nil", err)
			}
			if !tt.allowed && !errors.Is(err, apperr.ErrPermission) {
				t.Fatalf("Allow() = %v, want permission error", err)
			}
		})
	}
}

func TestGate_DeniesInactiveAndUnknown(t *testing.T) {
	gate := NewGate()
	claim := claimIn(workflow.StateDraft)

	inactive := &entity.Actor{ID: "adm-1", Role: entity.RoleAdmin, Active: false}
	if err := gate.Allow(inactive, TransitionClose, claim); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("inactive admin: Allow() = %v", err)
	}

	unknownRole := &entity.Actor{ID: "x", Role: "auditor", Active: true}
	if err := gate.Allow(unknownRole, TransitionViewClaim, claim); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("unknown role: Allow() = %v", err)
	}

	if err := gate.Allow(actor("adm-1", entity.RoleAdmin), Transition("teleport"), claim); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("unknown transition: Allow() = %v", err)
	}

	if err := gate.Allow(nil, TransitionSubmit, claim); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("nil actor: Allow() = %v", err)
	}
}

func TestGate_AssignedInsurer(t *testing.T) {
	gate := NewGate()
	claim := claimIn(workflow.StateUnderReview)
	claim.Reviewers.InsurerID = "ins-1"

	if err := gate.Allow(actor("ins-1", entity.RoleInsuranceAgent), TransitionMakeDecision, claim); err != nil {
		t.Errorf("assigned insurer: Allow() = %v", err)
	}
	if err := gate.Allow(actor("ins-2", entity.RoleInsuranceAgent), TransitionMakeDecision, claim); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("other insurer decides: Allow() = %v", err)
	}
	if err := gate.Allow(actor("ins-2", entity.RoleInsuranceAgent), TransitionReturnClaim, claim); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("other insurer returns: Allow() = %v", err)
	}
	if err := gate.Allow(actor("adm-1", entity.RoleAdmin), TransitionMakeDecision, claim); err != nil {
		t.Errorf("admin overrides assignment: Allow() = %v", err)
	}
}

func TestGate_PermissionErrorListsRequiredRoles(t *testing.T) {
	gate := NewGate()
	err := gate.Allow(actor("hr-1", entity.RoleHROfficer), TransitionClose, claimIn(workflow.StatePaid))

	var perr *apperr.PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("Allow() = %v, want *PermissionError", err)
	}
	if perr.Transition != "close" || perr.Role != "hr_officer" {
		t.Errorf("PermissionError = %+v", perr)
	}
	if len(perr.Required) != 1 || perr.Required[0] != "admin" {
		t.Errorf("Required = %v, want [admin]", perr.Required)
	}
}

func TestGate_EveryTransitionHasARule(t *testing.T) {
	gate := NewGate()
	for _, tr := range Transitions() {
		if len(gate.RequiredRoles(tr, nil)) == 0 {
			t.Errorf("transition %s has no roles", tr)
		}
	}
}
