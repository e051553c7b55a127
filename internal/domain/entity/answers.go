package entity

import (
	"strings"
	"time"
)

// Answer is one response to a questionnaire question
type Answer struct {
	QuestionID  string    `json:"question_id"`
	SectionID   string    `json:"section_id"`
	Value       string    `json:"value,omitempty"`
	DocumentID  string    `json:"document_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// IsEmpty returns true when the answer carries neither a value nor a document
func (a Answer) IsEmpty() bool {
	return strings.TrimSpace(a.Value) == "" && a.DocumentID == ""
}

// AnswerLedger holds a claim's answers keyed by question id
type AnswerLedger map[string]Answer

// Put upserts an answer. SubmittedAt never moves backwards for a question.
func (l *AnswerLedger) Put(a Answer) {
	if *l == nil {
		*l = make(AnswerLedger)
	}
	if prev, ok := (*l)[a.QuestionID]; ok && a.SubmittedAt.Before(prev.SubmittedAt) {
		a.SubmittedAt = prev.SubmittedAt
	}
	(*l)[a.QuestionID] = a
}

// Get returns the answer for a question
func (l AnswerLedger) Get(questionID string) (Answer, bool) {
	a, ok := l[questionID]
	return a, ok
}

// Has returns true when the question has a non-empty answer
func (l AnswerLedger) Has(questionID string) bool {
	a, ok := l[questionID]
	return ok && !a.IsEmpty()
}

// ForSection returns the answers recorded for a section
func (l AnswerLedger) ForSection(sectionID string) map[string]Answer {
	out := make(map[string]Answer)
	for id, a := range l {
		if a.SectionID == sectionID {
			out[id] = a
		}
	}
	return out
}

// Clone returns an independent copy
func (l AnswerLedger) Clone() AnswerLedger {
	if l == nil {
		return nil
	}
	out := make(AnswerLedger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}
