package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/authz"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/event"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

const (
	depDocumentStore = "document_store"
	depClaimStore    = "claim_store"
	depHistoryStore  = "history_store"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateClaimInput carries the claimant-editable fields of a new draft
type CreateClaimInput struct {
	EmployeeID     string             `json:"employee_id"`
	PolicyID       string             `json:"policy_id"`
	Category       entity.Category    `json:"category"`
	Option         entity.ClaimOption `json:"option"`
	Priority       entity.Priority    `json:"priority,omitempty"`
	RequestedCents int64              `json:"requested_cents"`
	IncidentDate   time.Time          `json:"incident_date"`
	Description    string             `json:"description,omitempty"`
	Remarks        string             `json:"remarks,omitempty"`
}

// UpdateDraftInput changes a draft. Nil fields are left untouched.
type UpdateDraftInput struct {
	PolicyID       *string             `json:"policy_id,omitempty"`
	Category       *entity.Category    `json:"category,omitempty"`
	Option         *entity.ClaimOption `json:"option,omitempty"`
	Priority       *entity.Priority    `json:"priority,omitempty"`
	RequestedCents *int64              `json:"requested_cents,omitempty"`
	IncidentDate   *time.Time          `json:"incident_date,omitempty"`
	Description    *string             `json:"description,omitempty"`
	Remarks        *string             `json:"remarks,omitempty"`
}

// IsEmpty returns true when no field is set
func (in UpdateDraftInput) IsEmpty() bool {
	return in.PolicyID == nil && in.Category == nil && in.Option == nil && in.Priority == nil &&
		in.RequestedCents == nil && in.IncidentDate == nil && in.Description == nil && in.Remarks == nil
}

// AttachDocumentInput is one uploaded file
type AttachDocumentInput struct {
	Category    entity.DocumentCategory
	FileName    string
	ContentType string
	Content     []byte
}

// ClaimService manages claims outside the status transitions
type ClaimService interface {
	Create(ctx context.Context, actorID string, in CreateClaimInput) (*entity.Claim, error)
	Get(ctx context.Context, actorID, claimID string) (*entity.Claim, error)
	List(ctx context.Context, actorID string, filter port.ClaimFilter) ([]*entity.Claim, error)
	UpdateDraft(ctx context.Context, req workflow.TransitionRequest, in UpdateDraftInput) (*entity.Claim, error)
	AttachDocument(ctx context.Context, req workflow.TransitionRequest, in AttachDocumentInput) (*entity.Claim, *entity.DocumentRef, error)
	History(ctx context.Context, actorID, claimID string) ([]*entity.ClaimHistory, error)
}

type claimServiceImpl struct {
	engine         workflow.Engine
	claimRepo      port.ClaimRepository
	historyRepo    port.HistoryRepository
	documents      port.DocumentStore
	maxUploadBytes int64
	logger         Logger
}

// NewClaimService creates a new ClaimService. maxUploadBytes <= 0 disables the size check.
func NewClaimService(
	engine workflow.Engine,
	claimRepo port.ClaimRepository,
	historyRepo port.HistoryRepository,
	documents port.DocumentStore,
	maxUploadBytes int64,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		engine:         engine,
		claimRepo:      claimRepo,
		historyRepo:    historyRepo,
		documents:      documents,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Create stores a new draft. Employees always file for themselves.
func (s *claimServiceImpl) Create(ctx context.Context, actorID string, in CreateClaimInput) (*entity.Claim, error) {
	actor, _, err := s.engine.Authorize(ctx, actorID, authz.TransitionCreateClaim, "")
	if err != nil {
		return nil, err
	}

	employeeID := strings.TrimSpace(in.EmployeeID)
	if actor.Role == entity.RoleEmployee {
		employeeID = actor.ID
	}

	claim := &entity.Claim{
		EmployeeID:   employeeID,
		PolicyID:     strings.TrimSpace(in.PolicyID),
		Category:     in.Category,
		Option:       in.Option,
		Priority:     in.Priority,
		IncidentDate: in.IncidentDate,
		Description:  in.Description,
		Remarks:      in.Remarks,
	}
	if err := claim.Amounts.SetRequested(in.RequestedCents); err != nil {
		return nil, err
	}

	return s.engine.Create(ctx, actor.ID, claim)
}

// Get returns a claim the actor may view
func (s *claimServiceImpl) Get(ctx context.Context, actorID, claimID string) (*entity.Claim, error) {
	_, claim, err := s.engine.Authorize(ctx, actorID, authz.TransitionViewClaim, claimID)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// List returns claims matching filter. Employees only see their own.
func (s *claimServiceImpl) List(ctx context.Context, actorID string, filter port.ClaimFilter) ([]*entity.Claim, error) {
	actor, _, err := s.engine.Authorize(ctx, actorID, authz.TransitionViewClaim, "")
	if err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleEmployee {
		filter.EmployeeID = actor.ID
	}

	claims, err := s.claimRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list claims", "error", err, "actor_id", actor.ID)
		return nil, apperr.Unavailable(depClaimStore, err)
	}
	return claims, nil
}

// UpdateDraft edits the claimant fields of a draft
func (s *claimServiceImpl) UpdateDraft(ctx context.Context, req workflow.TransitionRequest, in UpdateDraftInput) (*entity.Claim, error) {
	if in.IsEmpty() {
		return nil, apperr.NewValidation("body", "no fields to update")
	}

	return s.engine.Mutate(ctx, req, workflow.Mutation{
		Transition: authz.TransitionUpdateDraft,
		States:     []domainwf.State{domainwf.StateDraft},
		EventType:  event.TypeClaimUpdated,
		Apply: func(ctx context.Context, ch *workflow.Change) error {
			c := ch.Claim
			if in.PolicyID != nil {
				c.PolicyID = strings.TrimSpace(*in.PolicyID)
			}
			if in.Category != nil {
				c.Category = *in.Category
			}
			if in.Option != nil {
				c.Option = *in.Option
			}
			if in.Priority != nil {
				c.Priority = *in.Priority
			}
			if in.IncidentDate != nil {
				c.IncidentDate = *in.IncidentDate
			}
			if in.Description != nil {
				c.Description = *in.Description
			}
			if in.Remarks != nil {
				c.Remarks = *in.Remarks
			}
			if in.RequestedCents != nil {
				return c.Amounts.SetRequested(*in.RequestedCents)
			}
			return nil
		},
	})
}

// AttachDocument stores the blob and then records its reference on the
// draft. The blob is removed again when the claim cannot be updated.
func (s *claimServiceImpl) AttachDocument(ctx context.Context, req workflow.TransitionRequest, in AttachDocumentInput) (*entity.Claim, *entity.DocumentRef, error) {
	if err := s.validateUpload(in); err != nil {
		return nil, nil, err
	}

	actor, claim, err := s.engine.Authorize(ctx, req.ActorID, authz.TransitionAttachDocument, req.ClaimID)
	if err != nil {
		return nil, nil, err
	}
	if claim.Status != domainwf.StateDraft {
		return nil, nil, &apperr.InvalidTransitionError{
			Transition: authz.TransitionAttachDocument.String(),
			From:       claim.Status.String(),
			Reason:     "documents can only be attached to drafts",
			Cause:      domainwf.ErrInvalidTransition,
		}
	}

	ref, err := s.documents.Store(ctx, claim.ID, in.Content, entity.DocumentMeta{
		Category:    in.Category,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		UploadedBy:  actor.ID,
	})
	if err != nil {
		s.logger.Error("Failed to store document", "error", err, "claim_id", claim.ID)
		return nil, nil, apperr.Unavailable(depDocumentStore, err)
	}

	updated, err := s.engine.Mutate(ctx, req, workflow.Mutation{
		Transition: authz.TransitionAttachDocument,
		States:     []domainwf.State{domainwf.StateDraft},
		EventType:  event.TypeDocumentAttached,
		Payload: map[string]interface{}{
			"document_id": ref.ID,
			"category":    string(ref.Category),
		},
		Apply: func(ctx context.Context, ch *workflow.Change) error {
			ch.Claim.Documents = append(ch.Claim.Documents, ref)
			return nil
		},
	})
	if err != nil {
		if delErr := s.documents.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
			s.logger.Error("Failed to remove orphaned document",
				"error", delErr,
				"claim_id", claim.ID,
				"storage_key", ref.StorageKey,
			)
		}
		return nil, nil, err
	}

	s.logger.Info("Document attached", "claim_id", updated.ID, "document_id", ref.ID, "size", ref.Size)
	return updated, &ref, nil
}

func (s *claimServiceImpl) validateUpload(in AttachDocumentInput) error {
	verr := &apperr.ValidationError{}
	if !in.Category.IsValid() {
		verr.Add("category", fmt.Sprintf("unknown document category %q", in.Category))
	}
	if strings.TrimSpace(in.FileName) == "" {
		verr.Add("file", "file name is required")
	}
	if len(in.Content) == 0 {
		verr.Add("file", "file is empty")
	}
	if s.maxUploadBytes > 0 && int64(len(in.Content)) > s.maxUploadBytes {
		verr.Add("file", fmt.Sprintf("file exceeds %d bytes", s.maxUploadBytes))
	}
	return verr.OrNil()
}

// History returns the audit trail of a claim the actor may view
func (s *claimServiceImpl) History(ctx context.Context, actorID, claimID string) ([]*entity.ClaimHistory, error) {
	if _, _, err := s.engine.Authorize(ctx, actorID, authz.TransitionViewClaim, claimID); err != nil {
		return nil, err
	}

	histories, err := s.historyRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		s.logger.Error("Failed to get claim history", "error", err, "claim_id", claimID)
		return nil, apperr.Unavailable(depHistoryStore, err)
	}
	return histories, nil
}
