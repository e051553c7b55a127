package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/questionnaire"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/memory"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// fakeDocuments records stored and deleted blobs
type fakeDocuments struct {
	mu       sync.Mutex
	stored   map[string][]byte
	deleted  []string
	storeErr error
	seq      int
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{stored: make(map[string][]byte)}
}

func (f *fakeDocuments) Store(ctx context.Context, claimID string, content []byte, meta entity.DocumentMeta) (entity.DocumentRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return entity.DocumentRef{}, f.storeErr
	}
	f.seq++
	id := fmt.Sprintf("doc-%d", f.seq)
	key := claimID + "/" + id
	f.stored[key] = content
	return entity.DocumentRef{
		ID:          id,
		Category:    meta.Category,
		FileName:    meta.FileName,
		ContentType: meta.ContentType,
		Size:        int64(len(content)),
		StorageKey:  key,
		UploadedBy:  meta.UploadedBy,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

func (f *fakeDocuments) Delete(ctx context.Context, ref entity.DocumentRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, ref.StorageKey)
	f.deleted = append(f.deleted, ref.StorageKey)
	return nil
}

type harness struct {
	store         *memory.Store
	engine        workflow.Engine
	documents     *fakeDocuments
	claims        ClaimService
	questionnaire QuestionnaireService
	statistics    StatisticsService
}

var errStoreDown = errors.New("store down")

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore(nil)
	for _, a := range []*entity.Actor{
		{ID: "emp-1", Role: entity.RoleEmployee, Active: true},
		{ID: "emp-2", Role: entity.RoleEmployee, Active: true},
		{ID: "hr-1", Role: entity.RoleHROfficer, Active: true},
		{ID: "ins-1", Role: entity.RoleInsuranceAgent, Active: true},
		{ID: "adm-1", Role: entity.RoleAdmin, Active: true},
	} {
		require.NoError(t, store.Actors().Upsert(ctx, a))
	}

	catalog := questionnaire.NewDefaultCatalog()
	engine := workflow.NewEngine(store.Claims(), store.History(), store.Actors(), store, catalog)
	docs := newFakeDocuments()

	return &harness{
		store:         store,
		engine:        engine,
		documents:     docs,
		claims:        NewClaimService(engine, store.Claims(), store.History(), docs, 1<<20, nopLogger{}),
		questionnaire: NewQuestionnaireService(engine, catalog, nopLogger{}),
		statistics:    NewStatisticsService(engine, store.Claims(), nopLogger{}),
	}
}

func (h *harness) draft(t *testing.T, employeeID string) *entity.Claim {
	t.Helper()
	c, err := h.claims.Create(context.Background(), employeeID, CreateClaimInput{
		PolicyID:       "POL-1",
		Category:       entity.CategoryMedical,
		Option:         entity.OptionChannelling,
		RequestedCents: 150000,
		IncidentDate:   time.Now().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	return c
}

// complete attaches a bill and answers every required question
func (h *harness) complete(t *testing.T, c *entity.Claim) *entity.Claim {
	t.Helper()
	ctx := context.Background()

	_, ref, err := h.claims.AttachDocument(ctx, req(c.ID, c.EmployeeID), AttachDocumentInput{
		Category: entity.DocumentMedicalBill, FileName: "bill.pdf", ContentType: "application/pdf", Content: []byte("%PDF"),
	})
	require.NoError(t, err)

	sections := map[string][]entity.Answer{
		"incident": {
			{QuestionID: "incident_description", Value: "fell on stairs"},
			{QuestionID: "incident_location", Value: "office"},
			{QuestionID: "third_party_involved", Value: "no"},
		},
		"medical_details": {
			{QuestionID: "provider_name", Value: "City Clinic"},
			{QuestionID: "medical_bill", DocumentID: ref.ID},
		},
		"declaration": {
			{QuestionID: "declaration_accepted", Value: "yes"},
			{QuestionID: "signature_name", Value: "Jane Doe"},
		},
	}
	var out *SectionResult
	for id, answers := range sections {
		out, err = h.questionnaire.SubmitSectionAnswers(ctx, req(c.ID, c.EmployeeID), id, answers)
		require.NoError(t, err)
		require.Equal(t, 1.0, out.Completeness, id)
	}
	return out.Claim
}

func req(claimID, actorID string) workflow.TransitionRequest {
	return workflow.TransitionRequest{ClaimID: claimID, ActorID: actorID}
}
