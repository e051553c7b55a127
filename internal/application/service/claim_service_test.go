package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

func TestClaimService_Create(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := CreateClaimInput{
		EmployeeID:     "emp-2",
		PolicyID:       " POL-9 ",
		Category:       entity.CategoryLife,
		Option:         entity.OptionDeath,
		RequestedCents: 5_000_000,
		IncidentDate:   time.Now().Add(-24 * time.Hour),
	}

	c, err := h.claims.Create(ctx, "emp-1", in)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", c.EmployeeID, "employees file for themselves")
	assert.Equal(t, "POL-9", c.PolicyID)
	assert.Equal(t, domainwf.StateDraft, c.Status)
	assert.Equal(t, int64(5_000_000), c.Amounts.RequestedCents)

	onBehalf, err := h.claims.Create(ctx, "adm-1", in)
	require.NoError(t, err)
	assert.Equal(t, "emp-2", onBehalf.EmployeeID)

	_, err = h.claims.Create(ctx, "hr-1", in)
	assert.ErrorIs(t, err, apperr.ErrPermission)

	bad := in
	bad.Option = entity.OptionChannelling
	_, err = h.claims.Create(ctx, "emp-1", bad)
	assert.ErrorIs(t, err, apperr.ErrValidation, "option must belong to the category")

	bad = in
	bad.RequestedCents = -1
	_, err = h.claims.Create(ctx, "emp-1", bad)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	bad = in
	bad.IncidentDate = time.Now().Add(24 * time.Hour)
	_, err = h.claims.Create(ctx, "emp-1", bad)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestClaimService_GetAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	mine := h.draft(t, "emp-1")
	theirs := h.draft(t, "emp-2")

	got, err := h.claims.Get(ctx, "emp-1", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = h.claims.Get(ctx, "emp-1", theirs.ID)
	assert.ErrorIs(t, err, apperr.ErrPermission)

	_, err = h.claims.Get(ctx, "hr-1", "CLM-NOPE")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	own, err := h.claims.List(ctx, "emp-1", port.ClaimFilter{EmployeeID: "emp-2"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	all, err := h.claims.List(ctx, "hr-1", port.ClaimFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.claims.List(ctx, "ghost", port.ClaimFilter{})
	assert.ErrorIs(t, err, apperr.ErrPermission)
}

func TestClaimService_UpdateDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.draft(t, "emp-1")

	amount := int64(90000)
	desc := "follow-up visit"
	updated, err := h.claims.UpdateDraft(ctx, req(c.ID, "emp-1"), UpdateDraftInput{RequestedCents: &amount, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, amount, updated.Amounts.RequestedCents)
	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, int64(2), updated.Version)

	_, err = h.claims.UpdateDraft(ctx, req(c.ID, "emp-1"), UpdateDraftInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	life := entity.CategoryLife
	_, err = h.claims.UpdateDraft(ctx, req(c.ID, "emp-1"), UpdateDraftInput{Category: &life})
	assert.ErrorIs(t, err, apperr.ErrValidation, "channelling is not a life option")

	_, err = h.claims.UpdateDraft(ctx, req(c.ID, "emp-2"), UpdateDraftInput{Description: &desc})
	assert.ErrorIs(t, err, apperr.ErrPermission)

	stale := workflow.TransitionRequest{ClaimID: c.ID, ActorID: "emp-1", ExpectedVersion: 1}
	_, err = h.claims.UpdateDraft(ctx, stale, UpdateDraftInput{Description: &desc})
	assert.ErrorIs(t, err, apperr.ErrConcurrentModification)

	h.complete(t, c)
	_, err = h.engine.Submit(ctx, req(c.ID, "emp-1"))
	require.NoError(t, err)

	_, err = h.claims.UpdateDraft(ctx, req(c.ID, "emp-1"), UpdateDraftInput{Description: &desc})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestClaimService_AttachDocument(t *testing.T) {
	ctx := context.Background()
	upload := AttachDocumentInput{
		Category:    entity.DocumentMedicalBill,
		FileName:    "bill.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7"),
	}

	t.Run("attaches to a draft", func(t *testing.T) {
		h := newHarness(t)
		c := h.draft(t, "emp-1")

		updated, ref, err := h.claims.AttachDocument(ctx, req(c.ID, "emp-1"), upload)
		require.NoError(t, err)
		require.Len(t, updated.Documents, 1)
		assert.Equal(t, *ref, updated.Documents[0])
		assert.Equal(t, int64(len(upload.Content)), ref.Size)
		assert.Equal(t, "emp-1", ref.UploadedBy)
		assert.Contains(t, h.documents.stored, ref.StorageKey)
	})

	t.Run("rejects bad uploads before storing", func(t *testing.T) {
		h := newHarness(t)
		c := h.draft(t, "emp-1")

		for _, in := range []AttachDocumentInput{
			{Category: "selfie", FileName: "a.png", Content: []byte("x")},
			{Category: entity.DocumentMedicalBill, FileName: "", Content: []byte("x")},
			{Category: entity.DocumentMedicalBill, FileName: "a.pdf"},
			{Category: entity.DocumentMedicalBill, FileName: "a.pdf", Content: make([]byte, 1<<20+1)},
		} {
			_, _, err := h.claims.AttachDocument(ctx, req(c.ID, "emp-1"), in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		}
		assert.Empty(t, h.documents.stored)
	})

	t.Run("only the claimant may attach", func(t *testing.T) {
		h := newHarness(t)
		c := h.draft(t, "emp-1")

		_, _, err := h.claims.AttachDocument(ctx, req(c.ID, "emp-2"), upload)
		assert.ErrorIs(t, err, apperr.ErrPermission)
		_, _, err = h.claims.AttachDocument(ctx, req(c.ID, "hr-1"), upload)
		assert.ErrorIs(t, err, apperr.ErrPermission)
		assert.Empty(t, h.documents.stored)
	})

	t.Run("store failure is a dependency error", func(t *testing.T) {
		h := newHarness(t)
		c := h.draft(t, "emp-1")
		h.documents.storeErr = errStoreDown

		_, _, err := h.claims.AttachDocument(ctx, req(c.ID, "emp-1"), upload)
		var unavailable *apperr.DependencyUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, "document_store", unavailable.Dependency)
	})

	t.Run("blob is removed when the claim update fails", func(t *testing.T) {
		h := newHarness(t)
		c := h.draft(t, "emp-1")

		stale := workflow.TransitionRequest{ClaimID: c.ID, ActorID: "emp-1", ExpectedVersion: 1}
		_, _, err := h.claims.AttachDocument(ctx, stale, upload)
		require.NoError(t, err)

		_, _, err = h.claims.AttachDocument(ctx, stale, upload)
		require.ErrorIs(t, err, apperr.ErrConcurrentModification)
		assert.Len(t, h.documents.stored, 1)
		assert.Len(t, h.documents.deleted, 1)

		stored, _ := h.claims.Get(ctx, "emp-1", c.ID)
		assert.Len(t, stored.Documents, 1)
	})

	t.Run("submitted claims take no documents", func(t *testing.T) {
		h := newHarness(t)
		c := h.complete(t, h.draft(t, "emp-1"))
		_, err := h.engine.Submit(ctx, req(c.ID, "emp-1"))
		require.NoError(t, err)
		before := len(h.documents.stored)

		_, _, err = h.claims.AttachDocument(ctx, req(c.ID, "emp-1"), upload)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		assert.Len(t, h.documents.stored, before)
	})
}

func TestClaimService_History(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.complete(t, h.draft(t, "emp-1"))

	_, err := h.engine.Submit(ctx, req(c.ID, "emp-1"))
	require.NoError(t, err)

	history, err := h.claims.History(ctx, "hr-1", c.ID)
	require.NoError(t, err)
	// create, attach, three sections, submit
	require.Len(t, history, 6)
	assert.Equal(t, "createClaim", history[0].Transition)
	assert.Equal(t, "attachDocument", history[1].Transition)
	last := history[len(history)-1]
	assert.Equal(t, "submit", last.Transition)
	assert.Equal(t, domainwf.StateDraft, last.PreviousStatus)
	assert.Equal(t, domainwf.StateSubmitted, last.NewStatus)
	assert.Equal(t, int64(6), last.Version)

	_, err = h.claims.History(ctx, "emp-2", c.ID)
	assert.ErrorIs(t, err, apperr.ErrPermission)
}
