package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/application/service"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
	"github.com/NathIMN/Lumiere-sub005/pkg/utils"
)

// HeaderActorID carries the acting user. The directory decides the role.
const HeaderActorID = "X-Actor-ID"

// HeaderExpectedVersion optionally pins the claim version a transition expects
const HeaderExpectedVersion = "If-Match"

const (
	defaultPageSize = 20
	maxPageSize     = 100

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// ListClaimsRequest represents query parameters for listing claims
type ListClaimsRequest struct {
	EmployeeID string `form:"employee_id"`
	PolicyID   string `form:"policy_id"`
	Category   string `form:"category"`
	Status     string `form:"status"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// StatisticsRequest represents query parameters for statistics
type StatisticsRequest struct {
	EmployeeID string `form:"employee_id"`
	PolicyID   string `form:"policy_id"`
	Category   string `form:"category"`
	From       string `form:"from"`
	To         string `form:"to"`
}

// SectionAnswersRequest is the body of a section submission
type SectionAnswersRequest struct {
	Answers []entity.Answer `json:"answers"`
}

func actorID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderActorID))
}

// transitionRequest builds the request for the claim in the path
func (h *Handlers) transitionRequest(c *gin.Context) (workflow.TransitionRequest, bool) {
	req := workflow.TransitionRequest{
		ClaimID: c.Param("id"),
		ActorID: actorID(c),
	}
	if v := strings.Trim(c.GetHeader(HeaderExpectedVersion), `" `); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			h.badRequest(c, "If-Match must be a positive claim version")
			return req, false
		}
		req.ExpectedVersion = n
	}
	return req, true
}

// bindOptionalJSON decodes the body when one was sent
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}

func parseTime(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", field)
	}
	return &t, nil
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		resp.Components = details
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// CreateClaim handles POST /api/v1/claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	var in service.CreateClaimInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "invalid claim payload: "+err.Error())
		return
	}
	in.Description = utils.SanitizeString(in.Description)
	in.Remarks = utils.SanitizeString(in.Remarks)

	claim, err := h.services.Claims.Create(c.Request.Context(), actorID(c), in)
	if err != nil {
		h.writeError(c, "create_claim", err)
		return
	}
	ok(c, http.StatusCreated, claim)
}

// ListClaims handles GET /api/v1/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	var q ListClaimsRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}

	if q.Limit <= 0 || q.Limit > maxPageSize {
		q.Limit = defaultPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	filter := port.ClaimFilter{
		EmployeeID: q.EmployeeID,
		PolicyID:   q.PolicyID,
		Category:   entity.Category(q.Category),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if q.Status != "" {
		for _, s := range strings.Split(q.Status, ",") {
			filter.Statuses = append(filter.Statuses, domainwf.State(strings.TrimSpace(s)))
		}
	}
	var err error
	if filter.From, err = parseTime("from", q.From); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	if filter.To, err = parseTime("to", q.To); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	claims, err := h.services.Claims.List(c.Request.Context(), actorID(c), filter)
	if err != nil {
		h.writeError(c, "list_claims", err)
		return
	}
	if claims == nil {
		claims = []*entity.Claim{}
	}
	ok(c, http.StatusOK, claims)
}

// GetClaim handles GET /api/v1/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	claim, err := h.services.Claims.Get(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "view_claim", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// UpdateDraft handles PATCH /api/v1/claims/:id
func (h *Handlers) UpdateDraft(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	var in service.UpdateDraftInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "invalid update payload: "+err.Error())
		return
	}

	claim, err := h.services.Claims.UpdateDraft(c.Request.Context(), req, in)
	if err != nil {
		h.writeError(c, "update_draft", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// DeleteClaim handles DELETE /api/v1/claims/:id
func (h *Handlers) DeleteClaim(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	if err := h.services.Engine.DeleteClaim(c.Request.Context(), req); err != nil {
		h.writeError(c, "delete_claim", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": req.ClaimID, "deleted": true})
}

// GetHistory handles GET /api/v1/claims/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	records, err := h.services.Claims.History(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "history", err)
		return
	}
	if records == nil {
		records = []*entity.ClaimHistory{}
	}
	ok(c, http.StatusOK, records)
}

// AttachDocument handles POST /api/v1/claims/:id/documents
func (h *Handlers) AttachDocument(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "multipart field \"file\" is required")
		return
	}
	f, err := header.Open()
	if err != nil {
		h.badRequest(c, "cannot read uploaded file")
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		h.badRequest(c, "cannot read uploaded file")
		return
	}

	claim, ref, err := h.services.Claims.AttachDocument(c.Request.Context(), req, service.AttachDocumentInput{
		Category:    entity.DocumentCategory(c.PostForm("category")),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     buf.Bytes(),
	})
	if err != nil {
		h.writeError(c, "attach_document", err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"claim": claim, "document": ref})
}

// ListSections handles GET /api/v1/claims/:id/sections
func (h *Handlers) ListSections(c *gin.Context) {
	sections, err := h.services.Questionnaire.ListSections(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "list_sections", err)
		return
	}
	ok(c, http.StatusOK, sections)
}

// GetSection handles GET /api/v1/claims/:id/sections/:sectionId
func (h *Handlers) GetSection(c *gin.Context) {
	view, err := h.services.Questionnaire.GetSectionQuestions(c.Request.Context(), actorID(c), c.Param("id"), c.Param("sectionId"))
	if err != nil {
		h.writeError(c, "get_section_questions", err)
		return
	}
	ok(c, http.StatusOK, view)
}

// SubmitSectionAnswers handles PUT /api/v1/claims/:id/sections/:sectionId/answers
func (h *Handlers) SubmitSectionAnswers(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	var body SectionAnswersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid answers payload: "+err.Error())
		return
	}
	for i := range body.Answers {
		body.Answers[i].Value = utils.SanitizeString(body.Answers[i].Value)
	}

	result, err := h.services.Questionnaire.SubmitSectionAnswers(c.Request.Context(), req, c.Param("sectionId"), body.Answers)
	if err != nil {
		h.writeError(c, "submit_section_answers", err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Submit handles POST /api/v1/claims/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	claim, err := h.services.Engine.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "submit", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// Forward handles POST /api/v1/claims/:id/forward
func (h *Handlers) Forward(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	var in workflow.ForwardInput
	if err := bindOptionalJSON(c, &in); err != nil {
		h.badRequest(c, "invalid forward payload: "+err.Error())
		return
	}
	in.Notes = utils.SanitizeString(in.Notes)

	claim, err := h.services.Engine.ForwardToInsurer(c.Request.Context(), req, in)
	if err != nil {
		h.writeError(c, "forward_to_insurer", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// Decide handles POST /api/v1/claims/:id/decision
func (h *Handlers) Decide(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	var in workflow.DecisionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "invalid decision payload: "+err.Error())
		return
	}
	in.Notes = utils.SanitizeString(in.Notes)

	claim, err := h.services.Engine.MakeDecision(c.Request.Context(), req, in)
	if err != nil {
		h.writeError(c, "make_decision", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// Return handles POST /api/v1/claims/:id/return
func (h *Handlers) Return(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	var in workflow.ReturnInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "invalid return payload: "+err.Error())
		return
	}
	in.Reason = utils.SanitizeString(in.Reason)

	claim, err := h.services.Engine.ReturnClaim(c.Request.Context(), req, in)
	if err != nil {
		h.writeError(c, "return_claim", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// MarkPaid handles POST /api/v1/claims/:id/pay
func (h *Handlers) MarkPaid(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	claim, err := h.services.Engine.MarkPaid(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "mark_paid", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// Close handles POST /api/v1/claims/:id/close
func (h *Handlers) Close(c *gin.Context) {
	req, valid := h.transitionRequest(c)
	if !valid {
		return
	}
	var in workflow.CloseInput
	if err := bindOptionalJSON(c, &in); err != nil {
		h.badRequest(c, "invalid close payload: "+err.Error())
		return
	}
	in.Notes = utils.SanitizeString(in.Notes)

	claim, err := h.services.Engine.Close(c.Request.Context(), req, in)
	if err != nil {
		h.writeError(c, "close", err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// statisticsFilter decodes the shared statistics query
func (h *Handlers) statisticsFilter(c *gin.Context) (service.StatisticsFilter, bool) {
	var q StatisticsRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters")
		return service.StatisticsFilter{}, false
	}

	filter := service.StatisticsFilter{
		EmployeeID: q.EmployeeID,
		PolicyID:   q.PolicyID,
		Category:   entity.Category(q.Category),
	}
	var err error
	if filter.From, err = parseTime("from", q.From); err != nil {
		h.badRequest(c, err.Error())
		return filter, false
	}
	if filter.To, err = parseTime("to", q.To); err != nil {
		h.badRequest(c, err.Error())
		return filter, false
	}
	return filter, true
}

// GetStatistics handles GET /api/v1/statistics
func (h *Handlers) GetStatistics(c *gin.Context) {
	filter, valid := h.statisticsFilter(c)
	if !valid {
		return
	}
	stats, err := h.services.Statistics.GetStatistics(c.Request.Context(), actorID(c), filter)
	if err != nil {
		h.writeError(c, "get_statistics", err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ExportStatistics handles GET /api/v1/statistics/export
func (h *Handlers) ExportStatistics(c *gin.Context) {
	filter, valid := h.statisticsFilter(c)
	if !valid {
		return
	}
	stats, err := h.services.Statistics.GetStatistics(c.Request.Context(), actorID(c), filter)
	if err != nil {
		h.writeError(c, "export_statistics", err)
		return
	}

	var buf bytes.Buffer
	if err := h.services.Workbook.Write(&buf, stats); err != nil {
		h.writeError(c, "export_statistics", err)
		return
	}

	name := fmt.Sprintf("claim-statistics-%s.xlsx", stats.GeneratedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// RemainingCoverage handles GET /api/v1/policies/:policyId/coverage
func (h *Handlers) RemainingCoverage(c *gin.Context) {
	raw := c.Query("limit_cents")
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.badRequest(c, "limit_cents must be an integer")
		return
	}

	cov, err := h.services.Statistics.RemainingCoverage(c.Request.Context(), actorID(c), c.Param("policyId"), limit)
	if err != nil {
		h.writeError(c, "remaining_coverage", err)
		return
	}
	ok(c, http.StatusOK, cov)
}
