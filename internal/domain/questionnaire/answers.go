package questionnaire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

// Completeness returns answered required over total required for a
// filtered section; 1.0 when the section has no required questions
func Completeness(section Section, answers entity.AnswerLedger) float64 {
	required := section.RequiredIDs()
	if len(required) == 0 {
		return 1.0
	}
	answered := 0
	for _, id := range required {
		if answers.Has(id) {
			answered++
		}
	}
	return float64(answered) / float64(len(required))
}

// MissingRequired returns the ids of applicable required questions that
// lack a non-empty answer, in section order
func (qn *Questionnaire) MissingRequired(claim *entity.Claim) []string {
	var missing []string
	for _, s := range qn.ApplicableSections(claim.Category, claim.Option) {
		for _, id := range s.RequiredIDs() {
			if !claim.Answers.Has(id) {
				missing = append(missing, id)
			}
		}
	}
	return missing
}

// IsComplete reports whether every applicable required question is answered
func (qn *Questionnaire) IsComplete(claim *entity.Claim) bool {
	return len(qn.MissingRequired(claim)) == 0
}

// ValidateAnswers checks a batch of answers for one section of a claim.
// An unknown section or question yields a NotFoundError; every other
// failure is collected into a single ValidationError.
func (qn *Questionnaire) ValidateAnswers(claim *entity.Claim, sectionID string, answers []entity.Answer) error {
	section, ok := qn.Section(claim.Category, claim.Option, sectionID)
	if !ok {
		return &apperr.NotFoundError{Kind: "section", ID: sectionID}
	}

	verr := &apperr.ValidationError{}
	if len(answers) == 0 {
		verr.Add("answers", "at least one answer is required")
	}

	for _, a := range answers {
		q, ok := section.Question(a.QuestionID)
		if !ok {
			return &apperr.NotFoundError{Kind: "question", ID: a.QuestionID}
		}
		if reason := validateAnswer(claim, q, a); reason != "" {
			verr.Add(q.ID, reason)
		}
	}

	return verr.OrNil()
}

// NormalizeAnswers returns the answers as they are stored: choice and
// number values are trimmed. Call it only after ValidateAnswers succeeded.
func (qn *Questionnaire) NormalizeAnswers(claim *entity.Claim, sectionID string, answers []entity.Answer) []entity.Answer {
	section, _ := qn.Section(claim.Category, claim.Option, sectionID)

	out := make([]entity.Answer, len(answers))
	for i, a := range answers {
		if q, ok := section.Question(a.QuestionID); ok && (q.Type == TypeChoice || q.Type == TypeNumber) {
			a.Value = strings.TrimSpace(a.Value)
		}
		a.DocumentID = strings.TrimSpace(a.DocumentID)
		out[i] = a
	}
	return out
}

func validateAnswer(claim *entity.Claim, q Question, a entity.Answer) string {
	// Any answer may carry a document, but only one the claim holds
	if a.DocumentID != "" {
		if _, ok := claim.Document(strings.TrimSpace(a.DocumentID)); !ok {
			return fmt.Sprintf("document %s is not attached to the claim", a.DocumentID)
		}
	}

	if q.Type == TypeFile {
		if a.DocumentID == "" && q.Required {
			return "a document is required"
		}
		return ""
	}

	value := strings.TrimSpace(a.Value)
	if value == "" {
		if q.Required {
			return "an answer is required"
		}
		return ""
	}

	switch q.Type {
	case TypeText:
		if max := q.EffectiveMaxLength(); utf8.RuneCountInString(a.Value) > max {
			return fmt.Sprintf("must be at most %d characters", max)
		}
	case TypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return "must be a number"
		}
		if n < 0 {
			return "must not be negative"
		}
	case TypeChoice:
		if !q.HasOption(value) {
			return fmt.Sprintf("must be one of: %s", strings.Join(q.Options, ", "))
		}
	}
	return ""
}
