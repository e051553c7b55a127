// Package authz decides which actors may perform which claim transitions.
package authz

import (
	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// Transition names an operation subject to authorization
type Transition string

const (
	TransitionSubmit               Transition = "submit"
	TransitionForwardToInsurer     Transition = "forwardToInsurer"
	TransitionMakeDecision         Transition = "makeDecision"
	TransitionReturnClaim          Transition = "returnClaim"
	TransitionMarkPaid             Transition = "markPaid"
	TransitionClose                Transition = "close"
	TransitionDeleteClaim          Transition = "deleteClaim"
	TransitionCreateClaim          Transition = "createClaim"
	TransitionUpdateDraft          Transition = "updateDraft"
	TransitionSubmitSectionAnswers Transition = "submitSectionAnswers"
	TransitionAttachDocument       Transition = "attachDocument"
	TransitionViewClaim            Transition = "viewClaim"
	TransitionViewStatistics       Transition = "viewStatistics"
)

// String returns the string representation of the transition
func (t Transition) String() string {
	return string(t)
}

// rule lists the roles allowed to perform a transition. Employees are
// additionally held to ownership when ownerOnly is set.
type rule struct {
	roles     []entity.Role
	ownerOnly bool
}

var (
	employeeOwner = rule{roles: []entity.Role{entity.RoleEmployee, entity.RoleAdmin}, ownerOnly: true}
	anyRole       = rule{roles: entity.AllRoles()}
)

var rules = map[Transition]rule{
	TransitionSubmit:               employeeOwner,
	TransitionForwardToInsurer:     {roles: []entity.Role{entity.RoleHROfficer, entity.RoleAdmin}},
	TransitionMakeDecision:         {roles: []entity.Role{entity.RoleInsuranceAgent, entity.RoleAdmin}},
	TransitionReturnClaim:          {roles: []entity.Role{entity.RoleHROfficer, entity.RoleInsuranceAgent, entity.RoleAdmin}},
	TransitionMarkPaid:             {roles: []entity.Role{entity.RoleInsuranceAgent, entity.RoleAdmin}},
	TransitionClose:                {roles: []entity.Role{entity.RoleAdmin}},
	TransitionDeleteClaim:          employeeOwner,
	TransitionCreateClaim:          {roles: []entity.Role{entity.RoleEmployee, entity.RoleAdmin}},
	TransitionUpdateDraft:          employeeOwner,
	TransitionSubmitSectionAnswers: employeeOwner,
	TransitionAttachDocument:       employeeOwner,
	TransitionViewClaim:            {roles: entity.AllRoles(), ownerOnly: true},
	TransitionViewStatistics:       anyRole,
}

// returnRoles narrows returnClaim by the stage the claim sits in
var returnRoles = map[workflow.State][]entity.Role{
	workflow.StateUnderReview: {entity.RoleInsuranceAgent, entity.RoleAdmin},
	workflow.StateSubmitted:   {entity.RoleHROfficer, entity.RoleAdmin},
}

// Transitions returns every transition known to the gate
func Transitions() []Transition {
	return []Transition{
		TransitionSubmit, TransitionForwardToInsurer, TransitionMakeDecision, TransitionReturnClaim,
		TransitionMarkPaid, TransitionClose, TransitionDeleteClaim, TransitionCreateClaim,
		TransitionUpdateDraft, TransitionSubmitSectionAnswers, TransitionAttachDocument,
		TransitionViewClaim, TransitionViewStatistics,
	}
}

// Gate is the table-driven authorization check. It holds no state.
type Gate struct{}

// NewGate creates a gate
func NewGate() *Gate {
	return &Gate{}
}

// RequiredRoles returns the roles allowed to perform t on claim.
// claim may be nil for transitions that are not claim-scoped.
func (g *Gate) RequiredRoles(t Transition, claim *entity.Claim) []entity.Role {
	r, ok := rules[t]
	if !ok {
		return nil
	}
	if t == TransitionReturnClaim && claim != nil {
		if narrowed, ok := returnRoles[claim.Status]; ok {
			return narrowed
		}
	}
	return r.roles
}

// Allow returns nil when actor may perform t on claim, or a PermissionError
func (g *Gate) Allow(actor *entity.Actor, t Transition, claim *entity.Claim) error {
	if actor == nil {
		return &apperr.PermissionError{Transition: t.String(), Reason: "unknown actor"}
	}

	deny := func(reason string, required []entity.Role) error {
		return &apperr.PermissionError{
			Transition: t.String(),
			ActorID:    actor.ID,
			Role:       string(actor.Role),
			Required:   roleNames(required),
			Reason:     reason,
		}
	}

	r, ok := rules[t]
	if !ok {
		return deny("unknown transition", nil)
	}
	if !actor.Role.IsValid() {
		return deny("unknown role", nil)
	}
	if !actor.Active {
		return deny("actor is inactive", nil)
	}

	required := g.RequiredRoles(t, claim)
	if !containsRole(required, actor.Role) {
		return deny("", required)
	}

	if r.ownerOnly && actor.Role == entity.RoleEmployee && claim != nil && !claim.IsOwnedBy(actor.ID) {
		return deny("not the claimant", required)
	}

	// A claim assigned to a specific insurer is decided or returned only by that insurer
	if actor.Role == entity.RoleInsuranceAgent && claim != nil &&
		claim.Status == workflow.StateUnderReview && claim.Reviewers.InsurerID != "" &&
		claim.Reviewers.InsurerID != actor.ID &&
		(t == TransitionMakeDecision || t == TransitionReturnClaim) {
		return deny("claim is assigned to another insurer", required)
	}

	return nil
}

func containsRole(roles []entity.Role, r entity.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func roleNames(roles []entity.Role) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
