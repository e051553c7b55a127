package questionnaire

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

func medicalClaim(option entity.ClaimOption) *entity.Claim {
	return &entity.Claim{
		ID:         "CLM-TEST",
		EmployeeID: "emp-1",
		Category:   entity.CategoryMedical,
		Option:     option,
		Documents:  []entity.DocumentRef{{ID: "doc-1", Category: entity.DocumentMedicalBill}},
	}
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestApplicableSections_FiltersByCategoryAndOption(t *testing.T) {
	qn := Default()

	sections := qn.ApplicableSections(entity.CategoryMedical, entity.OptionMedication)
	ids := make([]string, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"incident", "medical_details", "declaration"}, ids)

	medical := sections[1]
	_, hasPrescription := medical.Question("prescription_items")
	_, hasAdmission := medical.Question("admission_days")
	assert.True(t, hasPrescription)
	assert.False(t, hasAdmission, "admission_days only applies to hospitalization")

	_, ok := qn.Section(entity.CategoryMedical, entity.OptionMedication, "vehicle_details")
	assert.False(t, ok)
}

func TestCompleteness(t *testing.T) {
	qn := Default()
	claim := medicalClaim(entity.OptionChannelling)
	section, ok := qn.Section(claim.Category, claim.Option, "incident")
	require.True(t, ok)

	assert.Equal(t, 0.0, Completeness(section, claim.Answers))

	claim.Answers.Put(entity.Answer{QuestionID: "incident_description", SectionID: "incident", Value: "slipped"})
	assert.InDelta(t, 1.0/3.0, Completeness(section, claim.Answers), 1e-9)

	optionalOnly := Section{ID: "x", Questions: []Question{{ID: "o", Type: TypeText}}}
	assert.Equal(t, 1.0, Completeness(optionalOnly, nil))
}

func TestMissingRequiredAndIsComplete(t *testing.T) {
	qn := Default()
	claim := medicalClaim(entity.OptionChannelling)

	missing := qn.MissingRequired(claim)
	assert.Equal(t, []string{
		"incident_description", "incident_location", "third_party_involved",
		"provider_name", "medical_bill",
		"declaration_accepted", "signature_name",
	}, missing)
	assert.False(t, qn.IsComplete(claim))

	now := time.Now()
	for _, id := range missing {
		a := entity.Answer{QuestionID: id, Value: "yes", SubmittedAt: now}
		if id == "medical_bill" {
			a = entity.Answer{QuestionID: id, DocumentID: "doc-1", SubmittedAt: now}
		}
		claim.Answers.Put(a)
	}
	assert.True(t, qn.IsComplete(claim))
}

func TestValidateAnswers(t *testing.T) {
	qn := Default()

	tests := []struct {
		name       string
		section    string
		answers    []entity.Answer
		wantErr    error
		wantFields []string
	}{
		{
			name:    "valid batch",
			section: "medical_details",
			answers: []entity.Answer{
				{QuestionID: "provider_name", Value: "City Hospital"},
				{QuestionID: "admission_days", Value: "3"},
				{QuestionID: "medical_bill", DocumentID: "doc-1"},
			},
		},
		{
			name:    "every failure is listed",
			section: "medical_details",
			answers: []entity.Answer{
				{QuestionID: "provider_name", Value: "  "},
				{QuestionID: "admission_days", Value: "-2"},
				{QuestionID: "medical_bill", DocumentID: "doc-404"},
			},
			wantErr:    apperr.ErrValidation,
			wantFields: []string{"provider_name", "admission_days", "medical_bill"},
		},
		{
			name:       "number must be finite",
			section:    "medical_details",
			answers:    []entity.Answer{{QuestionID: "admission_days", Value: "Inf"}},
			wantErr:    apperr.ErrValidation,
			wantFields: []string{"admission_days"},
		},
		{
			name:       "choice outside options",
			section:    "incident",
			answers:    []entity.Answer{{QuestionID: "third_party_involved", Value: "maybe"}},
			wantErr:    apperr.ErrValidation,
			wantFields: []string{"third_party_involved"},
		},
		{
			name:       "text over limit",
			section:    "incident",
			answers:    []entity.Answer{{QuestionID: "incident_location", Value: strings.Repeat("a", 201)}},
			wantErr:    apperr.ErrValidation,
			wantFields: []string{"incident_location"},
		},
		{
			name:       "text answer with unknown document",
			section:    "incident",
			answers:    []entity.Answer{{QuestionID: "incident_description", Value: "fell", DocumentID: "doc-404"}},
			wantErr:    apperr.ErrValidation,
			wantFields: []string{"incident_description"},
		},
		{
			name:    "text answer with attached document",
			section: "incident",
			answers: []entity.Answer{{QuestionID: "incident_description", Value: "fell", DocumentID: "doc-1"}},
		},
		{
			name:    "padded choice is accepted",
			section: "incident",
			answers: []entity.Answer{{QuestionID: "third_party_involved", Value: " yes "}},
		},
		{
			name:    "optional may be blank",
			section: "incident",
			answers: []entity.Answer{{QuestionID: "supporting_notes", Value: ""}},
		},
		{
			name:    "question from another option",
			section: "medical_details",
			answers: []entity.Answer{{QuestionID: "prescription_items", Value: "2"}},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "section of another category",
			section: "life_details",
			answers: []entity.Answer{{QuestionID: "relationship", Value: "self"}},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:       "empty batch",
			section:    "incident",
			wantErr:    apperr.ErrValidation,
			wantFields: []string{"answers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := medicalClaim(entity.OptionHospitalization)
			err := qn.ValidateAnswers(claim, tt.section, tt.answers)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)

			if tt.wantFields != nil {
				var verr *apperr.ValidationError
				require.True(t, errors.As(err, &verr))
				fields := make([]string, 0, len(verr.Fields))
				for _, f := range verr.Fields {
					fields = append(fields, f.Field)
				}
				assert.Equal(t, tt.wantFields, fields)
			}
		})
	}
}

func TestCatalog_RegisterActivateAndLoad(t *testing.T) {
	c := NewDefaultCatalog()
	assert.Equal(t, DefaultVersion, c.ActiveVersion())

	err := c.Register(Default())
	assert.Error(t, err, "versions are immutable once registered")

	version, err := c.LoadFile("testdata/questionnaire_v2.yaml", true)
	require.NoError(t, err)
	assert.Equal(t, "2025.1", version)
	assert.Equal(t, "2025.1", c.ActiveVersion())
	assert.Equal(t, 2, c.Versions())

	v2, ok := c.Get("2025.1")
	require.True(t, ok)
	sections := v2.ApplicableSections(entity.CategoryVehicle, entity.OptionTheft)
	require.Len(t, sections, 2)
	_, hasTowed := sections[1].Question("towed")
	assert.False(t, hasTowed, "towed only applies to accidents")

	// the old version stays available for claims created under it
	_, ok = c.Get(DefaultVersion)
	assert.True(t, ok)

	assert.Error(t, c.Activate("1999.1"))
}

func TestCatalog_RegisterCopiesInput(t *testing.T) {
	c := NewCatalog()
	q := Default()
	require.NoError(t, c.Register(q))

	q.Sections[0].Questions[0].Required = false

	stored, _ := c.Get(DefaultVersion)
	assert.True(t, stored.Sections[0].Questions[0].Required)
}

func TestQuestionnaire_ValidateRejectsBadStructure(t *testing.T) {
	tests := []struct {
		name string
		q    *Questionnaire
	}{
		{"no version", &Questionnaire{Sections: Default().Sections}},
		{"no sections", &Questionnaire{Version: "x"}},
		{"choice without options", &Questionnaire{Version: "x", Sections: []Section{{ID: "s", Questions: []Question{{ID: "q", Type: TypeChoice}}}}}},
		{"unknown type", &Questionnaire{Version: "x", Sections: []Section{{ID: "s", Questions: []Question{{ID: "q", Type: "date"}}}}}},
		{"duplicate question", &Questionnaire{Version: "x", Sections: []Section{
			{ID: "a", Questions: []Question{{ID: "q", Type: TypeText}}},
			{ID: "b", Questions: []Question{{ID: "q", Type: TypeText}}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.q.Validate())
		})
	}
}

func TestNormalizeAnswers(t *testing.T) {
	qn := Default()
	claim := medicalClaim(entity.OptionHospitalization)

	tests := []struct {
		name    string
		section string
		in      entity.Answer
		want    string
	}{
		{"choice is trimmed", "incident", entity.Answer{QuestionID: "third_party_involved", Value: " yes "}, "yes"},
		{"number is trimmed", "medical_details", entity.Answer{QuestionID: "admission_days", Value: " 3\t"}, "3"},
		{"text keeps spacing", "incident", entity.Answer{QuestionID: "incident_location", Value: " office "}, " office "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, qn.ValidateAnswers(claim, tt.section, []entity.Answer{tt.in}))
			out := qn.NormalizeAnswers(claim, tt.section, []entity.Answer{tt.in})
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Value)
		})
	}
}
