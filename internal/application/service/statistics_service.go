package service

import (
	"context"
	"sort"
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/authz"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// Stage names used in time-in-stage reporting
const (
	StageDraft         = "draft"
	StageHRReview      = "hr_review"
	StageInsurerReview = "insurer_review"
	StagePayment       = "payment"
)

// StatisticsFilter narrows the claims a report covers
type StatisticsFilter struct {
	Category   entity.Category
	EmployeeID string
	PolicyID   string
	From       *time.Time
	To         *time.Time
}

// StageDuration is the average time spent between two milestones
type StageDuration struct {
	Stage          string        `json:"stage"`
	Samples        int           `json:"samples"`
	Average        time.Duration `json:"-"`
	AverageSeconds float64       `json:"average_seconds"`
}

// PolicyTotals aggregates committed amounts of one policy
type PolicyTotals struct {
	PolicyID      string `json:"policy_id"`
	Claims        int    `json:"claims"`
	ApprovedCents int64  `json:"approved_cents"`
	PaidCents     int64  `json:"paid_cents"`
}

// Statistics is a point-in-time report over committed snapshots
type Statistics struct {
	Total           int                     `json:"total"`
	ByStatus        map[domainwf.State]int  `json:"by_status"`
	ByCategory      map[entity.Category]int `json:"by_category"`
	RequestedCents  int64                   `json:"requested_cents"`
	ApprovedCents   int64                   `json:"approved_cents"`
	DeductibleCents int64                   `json:"deductible_cents"`
	FinalCents      int64                   `json:"final_cents"`
	Decided         int                     `json:"decided"`
	ApprovalRatio   float64                 `json:"approval_ratio"`
	Stages          []StageDuration         `json:"stages"`
	Policies        []PolicyTotals          `json:"policies"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// Coverage is what is left of a policy limit
type Coverage struct {
	PolicyID       string `json:"policy_id"`
	LimitCents     int64  `json:"limit_cents"`
	UsedCents      int64  `json:"used_cents"`
	RemainingCents int64  `json:"remaining_cents"`
}

// StatisticsService builds read-only reports
type StatisticsService interface {
	GetStatistics(ctx context.Context, actorID string, filter StatisticsFilter) (*Statistics, error)
	RemainingCoverage(ctx context.Context, actorID, policyID string, limitCents int64) (*Coverage, error)
}

type statisticsServiceImpl struct {
	engine    workflow.Engine
	claimRepo port.ClaimRepository
	now       func() time.Time
	logger    Logger
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(engine workflow.Engine, claimRepo port.ClaimRepository, logger Logger) StatisticsService {
	return &statisticsServiceImpl{
		engine:    engine,
		claimRepo: claimRepo,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// scope lists the claims the actor may aggregate over
func (s *statisticsServiceImpl) scope(ctx context.Context, actorID string, filter port.ClaimFilter) ([]*entity.Claim, error) {
	actor, _, err := s.engine.Authorize(ctx, actorID, authz.TransitionViewStatistics, "")
	if err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleEmployee {
		filter.EmployeeID = actor.ID
	}

	claims, err := s.claimRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list claims for statistics", "error", err, "actor_id", actor.ID)
		return nil, apperr.Unavailable(depClaimStore, err)
	}
	return claims, nil
}

// GetStatistics aggregates the claims visible to the actor
func (s *statisticsServiceImpl) GetStatistics(ctx context.Context, actorID string, filter StatisticsFilter) (*Statistics, error) {
	claims, err := s.scope(ctx, actorID, port.ClaimFilter{
		EmployeeID: filter.EmployeeID,
		PolicyID:   filter.PolicyID,
		Category:   filter.Category,
		From:       filter.From,
		To:         filter.To,
	})
	if err != nil {
		return nil, err
	}

	stats := Compute(claims)
	stats.GeneratedAt = s.now()
	return stats, nil
}

// RemainingCoverage subtracts committed approvals of a policy from limitCents
func (s *statisticsServiceImpl) RemainingCoverage(ctx context.Context, actorID, policyID string, limitCents int64) (*Coverage, error) {
	verr := &apperr.ValidationError{}
	if policyID == "" {
		verr.Add("policy_id", "is required")
	}
	if limitCents < 0 {
		verr.Add("limit_cents", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	claims, err := s.scope(ctx, actorID, port.ClaimFilter{
		PolicyID: policyID,
		Statuses: committedStatuses,
	})
	if err != nil {
		return nil, err
	}

	cov := &Coverage{PolicyID: policyID, LimitCents: limitCents}
	for _, c := range claims {
		cov.UsedCents += c.Amounts.ApprovedCents
	}
	if remaining := limitCents - cov.UsedCents; remaining > 0 {
		cov.RemainingCents = remaining
	}
	return cov, nil
}

// committedStatuses hold an approval that counts against a policy
var committedStatuses = []domainwf.State{
	domainwf.StateApproved,
	domainwf.StatePartiallyApproved,
	domainwf.StatePaid,
	domainwf.StateClosed,
}

var stagePairs = []struct {
	stage    string
	from, to func(c *entity.Claim) *time.Time
}{
	{StageDraft, func(c *entity.Claim) *time.Time { return &c.CreatedAt }, func(c *entity.Claim) *time.Time { return c.Workflow.SubmittedAt }},
	{StageHRReview, func(c *entity.Claim) *time.Time { return c.Workflow.SubmittedAt }, func(c *entity.Claim) *time.Time { return c.Workflow.ForwardedAt }},
	{StageInsurerReview, func(c *entity.Claim) *time.Time { return c.Workflow.ForwardedAt }, func(c *entity.Claim) *time.Time { return c.Workflow.FinalDecisionAt }},
	{StagePayment, func(c *entity.Claim) *time.Time { return c.Workflow.FinalDecisionAt }, func(c *entity.Claim) *time.Time { return c.Workflow.PaymentProcessedAt }},
}

// Compute derives a report from snapshots. It does no I/O.
func Compute(claims []*entity.Claim) *Statistics {
	stats := &Statistics{
		ByStatus:   make(map[domainwf.State]int),
		ByCategory: make(map[entity.Category]int),
	}

	var decidedRequested, decidedApproved int64
	stageTotals := make([]time.Duration, len(stagePairs))
	stageSamples := make([]int, len(stagePairs))
	policies := make(map[string]*PolicyTotals)

	for _, c := range claims {
		stats.Total++
		stats.ByStatus[c.Status]++
		stats.ByCategory[c.Category]++
		stats.RequestedCents += c.Amounts.RequestedCents
		stats.ApprovedCents += c.Amounts.ApprovedCents
		stats.DeductibleCents += c.Amounts.DeductibleCents
		stats.FinalCents += c.Amounts.FinalCents

		if c.Workflow.FinalDecisionAt != nil {
			stats.Decided++
			decidedRequested += c.Amounts.RequestedCents
			decidedApproved += c.Amounts.ApprovedCents
		}

		for i, p := range stagePairs {
			from, to := p.from(c), p.to(c)
			if from == nil || to == nil || from.IsZero() {
				continue
			}
			stageTotals[i] += to.Sub(*from)
			stageSamples[i]++
		}

		pt, ok := policies[c.PolicyID]
		if !ok {
			pt = &PolicyTotals{PolicyID: c.PolicyID}
			policies[c.PolicyID] = pt
		}
		pt.Claims++
		if containsStatus(committedStatuses, c.Status) {
			pt.ApprovedCents += c.Amounts.ApprovedCents
		}
		if c.Workflow.PaymentProcessedAt != nil {
			pt.PaidCents += c.Amounts.FinalCents
		}
	}

	if decidedRequested > 0 {
		stats.ApprovalRatio = float64(decidedApproved) / float64(decidedRequested)
	}

	stats.Stages = make([]StageDuration, len(stagePairs))
	for i, p := range stagePairs {
		sd := StageDuration{Stage: p.stage, Samples: stageSamples[i]}
		if sd.Samples > 0 {
			sd.Average = stageTotals[i] / time.Duration(sd.Samples)
			sd.AverageSeconds = sd.Average.Seconds()
		}
		stats.Stages[i] = sd
	}

	stats.Policies = make([]PolicyTotals, 0, len(policies))
	for _, pt := range policies {
		stats.Policies = append(stats.Policies, *pt)
	}
	sort.Slice(stats.Policies, func(i, j int) bool { return stats.Policies[i].PolicyID < stats.Policies[j].PolicyID })

	return stats
}

func containsStatus(states []domainwf.State, s domainwf.State) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}
