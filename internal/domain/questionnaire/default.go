package questionnaire

import "github.com/NathIMN/Lumiere-sub005/internal/domain/entity"

// DefaultVersion is the built-in catalog version
const DefaultVersion = "2024.1"

var yesNo = []string{"yes", "no"}

// Default returns the built-in questionnaire
func Default() *Questionnaire {
	return &Questionnaire{
		Version: DefaultVersion,
		Sections: []Section{
			{
				ID:    "incident",
				Title: "Incident",
				Order: 1,
				Questions: []Question{
					{ID: "incident_description", Text: "Describe what happened", Type: TypeText, Required: true, MaxLength: 2000},
					{ID: "incident_location", Text: "Where did it happen?", Type: TypeText, Required: true, MaxLength: 200},
					{ID: "third_party_involved", Text: "Was a third party involved?", Type: TypeChoice, Required: true, Options: yesNo},
					{ID: "supporting_notes", Text: "Anything else we should know?", Type: TypeText},
				},
			},
			{
				ID:         "medical_details",
				Title:      "Medical details",
				Order:      2,
				Categories: []entity.Category{entity.CategoryMedical},
				Questions: []Question{
					{ID: "provider_name", Text: "Hospital or clinic name", Type: TypeText, Required: true, MaxLength: 200},
					{ID: "admission_days", Text: "Number of days admitted", Type: TypeNumber, Required: true,
						ClaimOptions: []entity.ClaimOption{entity.OptionHospitalization}},
					{ID: "doctor_name", Text: "Consulting doctor", Type: TypeText,
						ClaimOptions: []entity.ClaimOption{entity.OptionChannelling, entity.OptionHospitalization}},
					{ID: "prescription_items", Text: "Number of prescribed items", Type: TypeNumber, Required: true,
						ClaimOptions: []entity.ClaimOption{entity.OptionMedication}},
					{ID: "medical_bill", Text: "Upload the itemised bill", Type: TypeFile, Required: true},
				},
			},
			{
				ID:         "life_details",
				Title:      "Life cover details",
				Order:      2,
				Categories: []entity.Category{entity.CategoryLife},
				Questions: []Question{
					{ID: "relationship", Text: "Relationship to the insured", Type: TypeChoice, Required: true,
						Options: []string{"self", "spouse", "child", "parent", "other"}},
					{ID: "death_certificate", Text: "Upload the death certificate", Type: TypeFile, Required: true,
						ClaimOptions: []entity.ClaimOption{entity.OptionDeath}},
					{ID: "disability_percentage", Text: "Assessed disability percentage", Type: TypeNumber, Required: true,
						ClaimOptions: []entity.ClaimOption{entity.OptionDisability}},
					{ID: "diagnosis", Text: "Diagnosis", Type: TypeText, Required: true,
						ClaimOptions: []entity.ClaimOption{entity.OptionDisability, entity.OptionCriticalIllness}},
				},
			},
			{
				ID:         "vehicle_details",
				Title:      "Vehicle details",
				Order:      2,
				Categories: []entity.Category{entity.CategoryVehicle},
				Questions: []Question{
					{ID: "vehicle_registration", Text: "Registration number", Type: TypeText, Required: true, MaxLength: 20},
					{ID: "police_report_number", Text: "Police report number", Type: TypeText, Required: true,
						ClaimOptions: []entity.ClaimOption{entity.OptionAccident, entity.OptionTheft}},
					{ID: "repair_estimate", Text: "Estimated repair cost", Type: TypeNumber,
						ClaimOptions: []entity.ClaimOption{entity.OptionAccident, entity.OptionFire, entity.OptionNaturalDisaster}},
					{ID: "damage_photos", Text: "Upload photos of the damage", Type: TypeFile,
						ClaimOptions: []entity.ClaimOption{entity.OptionAccident, entity.OptionFire, entity.OptionNaturalDisaster}},
				},
			},
			{
				ID:    "declaration",
				Title: "Declaration",
				Order: 9,
				Questions: []Question{
					{ID: "declaration_accepted", Text: "I declare the information given is true", Type: TypeChoice, Required: true,
						Options: []string{"yes"}},
					{ID: "signature_name", Text: "Full name", Type: TypeText, Required: true, MaxLength: 200},
				},
			},
		},
	}
}
