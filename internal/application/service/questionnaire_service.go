package service

import (
	"context"

	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/authz"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/event"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/questionnaire"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// SectionSummary describes one applicable section of a claim
type SectionSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Order        int     `json:"order"`
	Required     int     `json:"required"`
	Answered     int     `json:"answered"`
	Completeness float64 `json:"completeness"`
}

// SectionView is a section with the claim's current answers
type SectionView struct {
	Section      questionnaire.Section    `json:"section"`
	Answers      map[string]entity.Answer `json:"answers"`
	Completeness float64                  `json:"completeness"`
}

// SectionResult is returned after answers are stored
type SectionResult struct {
	Claim        *entity.Claim `json:"claim"`
	SectionID    string        `json:"section_id"`
	Completeness float64       `json:"completeness"`
}

// QuestionnaireService serves the claim questionnaire
type QuestionnaireService interface {
	ListSections(ctx context.Context, actorID, claimID string) ([]SectionSummary, error)
	GetSectionQuestions(ctx context.Context, actorID, claimID, sectionID string) (*SectionView, error)
	SubmitSectionAnswers(ctx context.Context, req workflow.TransitionRequest, sectionID string, answers []entity.Answer) (*SectionResult, error)
}

type questionnaireServiceImpl struct {
	engine  workflow.Engine
	catalog *questionnaire.Catalog
	logger  Logger
}

// NewQuestionnaireService creates a new QuestionnaireService
func NewQuestionnaireService(engine workflow.Engine, catalog *questionnaire.Catalog, logger Logger) QuestionnaireService {
	return &questionnaireServiceImpl{
		engine:  engine,
		catalog: catalog,
		logger:  logger,
	}
}

// questionnaireFor returns the version a claim was created against
func (s *questionnaireServiceImpl) questionnaireFor(claim *entity.Claim) (*questionnaire.Questionnaire, error) {
	qn, ok := s.catalog.Get(claim.QuestionnaireVersion)
	if !ok {
		return nil, &apperr.NotFoundError{Kind: "questionnaire", ID: claim.QuestionnaireVersion}
	}
	return qn, nil
}

// ListSections returns every applicable section with its completeness
func (s *questionnaireServiceImpl) ListSections(ctx context.Context, actorID, claimID string) ([]SectionSummary, error) {
	_, claim, err := s.engine.Authorize(ctx, actorID, authz.TransitionViewClaim, claimID)
	if err != nil {
		return nil, err
	}
	qn, err := s.questionnaireFor(claim)
	if err != nil {
		return nil, err
	}

	sections := qn.ApplicableSections(claim.Category, claim.Option)
	out := make([]SectionSummary, 0, len(sections))
	for _, sec := range sections {
		required := sec.RequiredIDs()
		answered := 0
		for _, id := range required {
			if claim.Answers.Has(id) {
				answered++
			}
		}
		out = append(out, SectionSummary{
			ID:           sec.ID,
			Title:        sec.Title,
			Order:        sec.Order,
			Required:     len(required),
			Answered:     answered,
			Completeness: questionnaire.Completeness(sec, claim.Answers),
		})
	}
	return out, nil
}

// GetSectionQuestions returns the filtered questions of one section
func (s *questionnaireServiceImpl) GetSectionQuestions(ctx context.Context, actorID, claimID, sectionID string) (*SectionView, error) {
	_, claim, err := s.engine.Authorize(ctx, actorID, authz.TransitionViewClaim, claimID)
	if err != nil {
		return nil, err
	}
	qn, err := s.questionnaireFor(claim)
	if err != nil {
		return nil, err
	}

	sec, ok := qn.Section(claim.Category, claim.Option, sectionID)
	if !ok {
		return nil, &apperr.NotFoundError{Kind: "section", ID: sectionID}
	}

	answers := make(map[string]entity.Answer)
	for _, q := range sec.Questions {
		if a, ok := claim.Answers.Get(q.ID); ok {
			answers[q.ID] = a
		}
	}

	return &SectionView{
		Section:      sec,
		Answers:      answers,
		Completeness: questionnaire.Completeness(sec, claim.Answers),
	}, nil
}

// SubmitSectionAnswers validates a batch of answers and stores all of them
// or none
func (s *questionnaireServiceImpl) SubmitSectionAnswers(ctx context.Context, req workflow.TransitionRequest, sectionID string, answers []entity.Answer) (*SectionResult, error) {
	var completeness float64

	claim, err := s.engine.Mutate(ctx, req, workflow.Mutation{
		Transition: authz.TransitionSubmitSectionAnswers,
		States:     []domainwf.State{domainwf.StateDraft},
		EventType:  event.TypeAnswersSubmitted,
		Payload: map[string]interface{}{
			"section_id": sectionID,
			"answers":    len(answers),
		},
		Apply: func(ctx context.Context, ch *workflow.Change) error {
			qn, err := s.questionnaireFor(ch.Claim)
			if err != nil {
				return err
			}
			if err := qn.ValidateAnswers(ch.Claim, sectionID, answers); err != nil {
				return err
			}

			for _, a := range qn.NormalizeAnswers(ch.Claim, sectionID, answers) {
				a.SectionID = sectionID
				a.SubmittedAt = ch.Now
				ch.Claim.Answers.Put(a)
			}

			sec, _ := qn.Section(ch.Claim.Category, ch.Claim.Option, sectionID)
			completeness = questionnaire.Completeness(sec, ch.Claim.Answers)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Section answers stored",
		"claim_id", claim.ID,
		"section_id", sectionID,
		"answers", len(answers),
		"completeness", completeness,
	)
	return &SectionResult{Claim: claim, SectionID: sectionID, Completeness: completeness}, nil
}
