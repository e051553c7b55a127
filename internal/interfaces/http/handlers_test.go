package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/service"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/questionnaire"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/export"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/memory"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/storage"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Fields  []struct {
		Field string `json:"field"`
	} `json:"fields"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T, health HealthFunc) *testAPI {
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

	docs, err := storage.NewLocalDocumentStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	catalog := questionnaire.NewDefaultCatalog()
	engine := workflow.NewEngine(store.Claims(), store.History(), store.Actors(), store, catalog)

	services := Services{
		Engine:        engine,
		Claims:        service.NewClaimService(engine, store.Claims(), store.History(), docs, 1<<20, nopLogger{}),
		Questionnaire: service.NewQuestionnaireService(engine, catalog, nopLogger{}),
		Statistics:    service.NewStatisticsService(engine, store.Claims(), nopLogger{}),
		Workbook:      export.NewStatisticsWorkbook(zap.NewNop()),
	}

	server := NewServer(DefaultServerConfig(), services, health, nopLogger{})
	return &testAPI{t: t, router: server.Router()}
}

func (a *testAPI) do(method, path, actor string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(HeaderActorID, actor)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return a.serve(req)
}

func (a *testAPI) serve(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != xlsxContentType {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testAPI) upload(claimID, actor, category, fileName string, content []byte) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(a.t, mw.WriteField("category", category))
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(a.t, err)
	_, err = fw.Write(content)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims/"+claimID+"/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(HeaderActorID, actor)
	return a.serve(req)
}

func (a *testAPI) createDraft(actor string) entity.Claim {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/v1/claims", actor, service.CreateClaimInput{
		PolicyID:       "POL-1",
		Category:       entity.CategoryMedical,
		Option:         entity.OptionChannelling,
		RequestedCents: 150000,
		IncidentDate:   time.Now().Add(-48 * time.Hour),
		Description:    "clinic visit\x00",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var claim entity.Claim
	require.NoError(a.t, json.Unmarshal(env.Data, &claim))
	return claim
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		healthy    bool
		wantStatus int
	}{
		{"healthy", true, http.StatusOK},
		{"unhealthy", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, func(ctx context.Context) (bool, interface{}) {
				return tt.healthy, map[string]string{"claim_store": "ok"}
			})
			w, env := api.do(http.MethodGet, "/health", "", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.healthy, env.Success)
		})
	}
}

func TestCreateAndGetClaim(t *testing.T) {
	api := newTestAPI(t, nil)
	claim := api.createDraft("emp-1")

	assert.Equal(t, "emp-1", claim.EmployeeID)
	assert.Equal(t, "clinic visit", claim.Description)
	assert.EqualValues(t, 1, claim.Version)

	w, env := api.do(http.MethodGet, "/api/v1/claims/"+claim.ID, "emp-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, claim.ID, decode[entity.Claim](t, env.Data).ID)

	w, env = api.do(http.MethodGet, "/api/v1/claims/"+claim.ID, "emp-2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodePermissionDenied, env.Code)

	w, env = api.do(http.MethodGet, "/api/v1/claims/missing", "hr-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t, nil)
	claim := api.createDraft("emp-1")

	tests := []struct {
		name     string
		method   string
		path     string
		actor    string
		body     interface{}
		headers  []string
		status   int
		code     string
		hasField string
	}{
		{
			name: "unknown actor", method: http.MethodPost, path: "/api/v1/claims", actor: "ghost",
			body: service.CreateClaimInput{PolicyID: "POL-1"}, status: http.StatusForbidden, code: CodePermissionDenied,
		},
		{
			name: "malformed body", method: http.MethodPost, path: "/api/v1/claims", actor: "emp-1",
			body: "{not json", status: http.StatusBadRequest, code: CodeBadRequest,
		},
		{
			name: "negative amount", method: http.MethodPost, path: "/api/v1/claims", actor: "emp-1",
			body:   service.CreateClaimInput{PolicyID: "POL-1", Category: entity.CategoryMedical, RequestedCents: -1},
			status: http.StatusUnprocessableEntity, code: CodeValidation, hasField: "requested_cents",
		},
		{
			name: "forward a draft", method: http.MethodPost, path: "/api/v1/claims/" + claim.ID + "/forward", actor: "hr-1",
			status: http.StatusConflict, code: CodeInvalidTransition,
		},
		{
			name: "stale version", method: http.MethodPatch, path: "/api/v1/claims/" + claim.ID, actor: "emp-1",
			body: map[string]string{"remarks": "late"}, headers: []string{HeaderExpectedVersion, "7"},
			status: http.StatusConflict, code: CodeConcurrentModification,
		},
		{
			name: "bad version header", method: http.MethodPatch, path: "/api/v1/claims/" + claim.ID, actor: "emp-1",
			body: map[string]string{"remarks": "late"}, headers: []string{HeaderExpectedVersion, "abc"},
			status: http.StatusBadRequest, code: CodeBadRequest,
		},
		{
			name: "bad list timestamp", method: http.MethodGet, path: "/api/v1/claims?from=yesterday", actor: "hr-1",
			status: http.StatusBadRequest, code: CodeBadRequest,
		},
		{
			name: "coverage without limit", method: http.MethodGet, path: "/api/v1/policies/POL-1/coverage", actor: "hr-1",
			status: http.StatusBadRequest, code: CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := api.do(tt.method, tt.path, tt.actor, tt.body, tt.headers...)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
			if tt.hasField != "" {
				var names []string
				for _, f := range env.Fields {
					names = append(names, f.Field)
				}
				assert.Contains(t, names, tt.hasField)
			}
		})
	}
}

func TestListClaimsScopesEmployees(t *testing.T) {
	api := newTestAPI(t, nil)
	api.createDraft("emp-1")
	api.createDraft("emp-1")
	api.createDraft("emp-2")

	tests := []struct {
		name  string
		actor string
		query string
		want  int
	}{
		{"hr sees all", "hr-1", "", 3},
		{"employee sees own", "emp-2", "", 1},
		{"employee filter ignored", "emp-2", "?employee_id=emp-1", 1},
		{"paged", "hr-1", "?limit=2&offset=2", 1},
		{"status filter", "hr-1", "?status=submitted,paid", 0},
		{"draft filter", "adm-1", "?status=draft&category=medical", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := api.do(http.MethodGet, "/api/v1/claims"+tt.query, tt.actor, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, decode[[]entity.Claim](t, env.Data), tt.want)
		})
	}
}

func TestClaimLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t, nil)
	claim := api.createDraft("emp-1")
	base := "/api/v1/claims/" + claim.ID

	w, env := api.upload(claim.ID, "emp-1", string(entity.DocumentMedicalBill), "bill.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	attached := decode[struct {
		Document entity.DocumentRef `json:"document"`
	}](t, env.Data)
	require.NotEmpty(t, attached.Document.ID)

	w, env = api.do(http.MethodGet, base+"/sections", "emp-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, decode[[]service.SectionSummary](t, env.Data))

	answers := map[string][]entity.Answer{
		"incident": {
			{QuestionID: "incident_description", Value: "fell on stairs"},
			{QuestionID: "incident_location", Value: "office"},
			{QuestionID: "third_party_involved", Value: "no"},
		},
		"medical_details": {
			{QuestionID: "provider_name", Value: "City Clinic"},
			{QuestionID: "medical_bill", DocumentID: attached.Document.ID},
		},
		"declaration": {
			{QuestionID: "declaration_accepted", Value: "yes"},
			{QuestionID: "signature_name", Value: "Jane Doe"},
		},
	}
	for id, list := range answers {
		w, env = api.do(http.MethodPut, base+"/sections/"+id+"/answers", "emp-1", SectionAnswersRequest{Answers: list})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1.0, decode[service.SectionResult](t, env.Data).Completeness, id)
	}

	w, env = api.do(http.MethodGet, base+"/sections/incident", "hr-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[service.SectionView](t, env.Data).Answers, 3)

	w, env = api.do(http.MethodPost, base+"/submit", "emp-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	submitted := decode[entity.Claim](t, env.Data)

	w, _ = api.do(http.MethodPost, base+"/forward", "hr-1", map[string]string{"notes": "looks fine"},
		HeaderExpectedVersion, strconv.FormatInt(submitted.Version, 10))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(http.MethodPost, base+"/decision", "ins-1", workflow.DecisionInput{
		Decision: "partially_approved", ApprovedCents: 100000, DeductibleCents: 20000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decided := decode[entity.Claim](t, env.Data)
	assert.EqualValues(t, 80000, decided.Amounts.FinalCents)

	w, _ = api.do(http.MethodPost, base+"/pay", "ins-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(http.MethodPost, base+"/close", "adm-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "closed", string(decode[entity.Claim](t, env.Data).Status))

	w, env = api.do(http.MethodGet, base+"/history", "emp-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, len(decode[[]entity.ClaimHistory](t, env.Data)), 5)

	w, env = api.do(http.MethodGet, "/api/v1/policies/POL-1/coverage?limit_cents=500000", "hr-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cov := decode[service.Coverage](t, env.Data)
	assert.EqualValues(t, 100000, cov.UsedCents)
	assert.EqualValues(t, 400000, cov.RemainingCents)
}

func TestReturnAndDeleteDraft(t *testing.T) {
	api := newTestAPI(t, nil)
	claim := api.createDraft("emp-1")
	base := "/api/v1/claims/" + claim.ID

	w, env := api.do(http.MethodPost, base+"/return", "hr-1", workflow.ReturnInput{Reason: "missing bill"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeInvalidTransition, env.Code)

	w, _ = api.do(http.MethodDelete, base, "emp-2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodDelete, base, "emp-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = api.do(http.MethodGet, base, "emp-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatisticsAndExport(t *testing.T) {
	api := newTestAPI(t, nil)
	api.createDraft("emp-1")
	api.createDraft("emp-2")

	w, env := api.do(http.MethodGet, "/api/v1/statistics", "hr-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[service.Statistics](t, env.Data)
	assert.Equal(t, 2, stats.Total)
	assert.EqualValues(t, 300000, stats.RequestedCents)

	w, env = api.do(http.MethodGet, "/api/v1/statistics", "emp-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[service.Statistics](t, env.Data).Total)

	w, _ = api.do(http.MethodGet, "/api/v1/statistics/export?category=medical", "adm-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	assert.Contains(t, book.GetSheetList(), "Summary")
}
