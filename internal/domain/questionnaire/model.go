// Package questionnaire models the section-based claim questionnaire and
// validates answers against it.
package questionnaire

import (
	"fmt"
	"sort"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

// QuestionType determines how an answer is validated
type QuestionType string

const (
	TypeText   QuestionType = "text"
	TypeNumber QuestionType = "number"
	TypeChoice QuestionType = "choice"
	TypeFile   QuestionType = "file"
)

// DefaultMaxLength applies to text questions that declare no limit
const DefaultMaxLength = 1000

// IsValid returns true for a known question type
func (t QuestionType) IsValid() bool {
	switch t {
	case TypeText, TypeNumber, TypeChoice, TypeFile:
		return true
	}
	return false
}

// Question is a single prompt within a section
type Question struct {
	ID           string               `json:"id" yaml:"id"`
	Text         string               `json:"text" yaml:"text"`
	Type         QuestionType         `json:"type" yaml:"type"`
	Required     bool                 `json:"required" yaml:"required"`
	Options      []string             `json:"options,omitempty" yaml:"options"`
	Categories   []entity.Category    `json:"categories,omitempty" yaml:"categories"`
	ClaimOptions []entity.ClaimOption `json:"claim_options,omitempty" yaml:"claim_options"`
	MaxLength    int                  `json:"max_length,omitempty" yaml:"max_length"`
}

// Section groups questions shown together
type Section struct {
	ID         string            `json:"id" yaml:"id"`
	Title      string            `json:"title" yaml:"title"`
	Order      int               `json:"order" yaml:"order"`
	Categories []entity.Category `json:"categories,omitempty" yaml:"categories"`
	Questions  []Question        `json:"questions" yaml:"questions"`
}

// Questionnaire is one immutable catalog version
type Questionnaire struct {
	Version  string    `json:"version" yaml:"version"`
	Sections []Section `json:"sections" yaml:"sections"`
}

func hasCategory(list []entity.Category, c entity.Category) bool {
	if len(list) == 0 {
		return true
	}
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

// EffectiveMaxLength returns the text limit for the question
func (q Question) EffectiveMaxLength() int {
	if q.MaxLength > 0 {
		return q.MaxLength
	}
	return DefaultMaxLength
}

// AppliesTo reports whether the question is asked for a claim of the given kind
func (q Question) AppliesTo(category entity.Category, option entity.ClaimOption) bool {
	if !hasCategory(q.Categories, category) {
		return false
	}
	if len(q.ClaimOptions) == 0 {
		return true
	}
	for _, o := range q.ClaimOptions {
		if o == option {
			return true
		}
	}
	return false
}

// HasOption reports whether value is one of the choice options
func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o == value {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the section is shown for the category
func (s Section) AppliesTo(category entity.Category) bool {
	return hasCategory(s.Categories, category)
}

// filtered returns a copy holding only the questions that apply
func (s Section) filtered(category entity.Category, option entity.ClaimOption) Section {
	out := s
	out.Questions = make([]Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		if q.AppliesTo(category, option) {
			out.Questions = append(out.Questions, q)
		}
	}
	return out
}

// Question returns the question with the given id
func (s Section) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// RequiredIDs returns the ids of the required questions
func (s Section) RequiredIDs() []string {
	var ids []string
	for _, q := range s.Questions {
		if q.Required {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// ApplicableSections returns the ordered sections for a claim kind with
// their questions filtered. Sections left without questions are dropped.
func (qn *Questionnaire) ApplicableSections(category entity.Category, option entity.ClaimOption) []Section {
	var out []Section
	for _, s := range qn.Sections {
		if !s.AppliesTo(category) {
			continue
		}
		f := s.filtered(category, option)
		if len(f.Questions) == 0 {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Section returns the filtered section, or false when it does not exist or
// does not apply to the claim kind
func (qn *Questionnaire) Section(category entity.Category, option entity.ClaimOption, sectionID string) (Section, bool) {
	for _, s := range qn.ApplicableSections(category, option) {
		if s.ID == sectionID {
			return s, true
		}
	}
	return Section{}, false
}

// Validate checks the structure of a questionnaire before registration
func (qn *Questionnaire) Validate() error {
	if qn.Version == "" {
		return fmt.Errorf("questionnaire version is required")
	}
	if len(qn.Sections) == 0 {
		return fmt.Errorf("questionnaire %s has no sections", qn.Version)
	}

	sectionIDs := make(map[string]bool)
	questionIDs := make(map[string]bool)
	for _, s := range qn.Sections {
		if s.ID == "" {
			return fmt.Errorf("questionnaire %s: section without id", qn.Version)
		}
		if sectionIDs[s.ID] {
			return fmt.Errorf("questionnaire %s: duplicate section %s", qn.Version, s.ID)
		}
		sectionIDs[s.ID] = true
		for _, c := range s.Categories {
			if !c.IsValid() {
				return fmt.Errorf("section %s: unknown category %q", s.ID, c)
			}
		}

		for _, q := range s.Questions {
			if q.ID == "" {
				return fmt.Errorf("section %s: question without id", s.ID)
			}
			if questionIDs[q.ID] {
				return fmt.Errorf("questionnaire %s: duplicate question %s", qn.Version, q.ID)
			}
			questionIDs[q.ID] = true
			if !q.Type.IsValid() {
				return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
			}
			if q.Type == TypeChoice && len(q.Options) == 0 {
				return fmt.Errorf("question %s: choice question without options", q.ID)
			}
			for _, c := range q.Categories {
				if !c.IsValid() {
					return fmt.Errorf("question %s: unknown category %q", q.ID, c)
				}
			}
		}
	}
	return nil
}

// clone returns a deep copy so registered versions cannot be mutated
func (qn *Questionnaire) clone() *Questionnaire {
	out := &Questionnaire{Version: qn.Version, Sections: make([]Section, len(qn.Sections))}
	for i, s := range qn.Sections {
		s.Categories = append([]entity.Category(nil), s.Categories...)
		qs := make([]Question, len(s.Questions))
		for j, q := range s.Questions {
			q.Options = append([]string(nil), q.Options...)
			q.Categories = append([]entity.Category(nil), q.Categories...)
			q.ClaimOptions = append([]entity.ClaimOption(nil), q.ClaimOptions...)
			qs[j] = q
		}
		s.Questions = qs
		out.Sections[i] = s
	}
	return out
}
