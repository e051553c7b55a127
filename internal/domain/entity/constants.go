package entity

// Role of an actor in the claim pipeline
type Role string

const (
	RoleEmployee       Role = "employee"
	RoleHROfficer      Role = "hr_officer"
	RoleInsuranceAgent Role = "insurance_agent"
	RoleAdmin          Role = "admin"
)

// AllRoles returns every role in pipeline order
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleHROfficer, RoleInsuranceAgent, RoleAdmin}
}

// IsValid returns true for a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleHROfficer, RoleInsuranceAgent, RoleAdmin:
		return true
	}
	return false
}

// Category is the top-level claim type
type Category string

const (
	CategoryLife    Category = "life"
	CategoryMedical Category = "medical"
	CategoryVehicle Category = "vehicle"
)

// ClaimOption is the sub-type of a claim within its category
type ClaimOption string

// Life options
const (
	OptionDeath           ClaimOption = "death"
	OptionDisability      ClaimOption = "disability"
	OptionCriticalIllness ClaimOption = "critical_illness"
)

// Medical options
const (
	OptionHospitalization ClaimOption = "hospitalization"
	OptionChannelling     ClaimOption = "channelling"
	OptionMedication      ClaimOption = "medication"
)

// Vehicle options
const (
	OptionAccident        ClaimOption = "accident"
	OptionTheft           ClaimOption = "theft"
	OptionFire            ClaimOption = "fire"
	OptionNaturalDisaster ClaimOption = "natural_disaster"
)

var categoryOptions = map[Category][]ClaimOption{
	CategoryLife:    {OptionDeath, OptionDisability, OptionCriticalIllness},
	CategoryMedical: {OptionHospitalization, OptionChannelling, OptionMedication},
	CategoryVehicle: {OptionAccident, OptionTheft, OptionFire, OptionNaturalDisaster},
}

// AllCategories returns every claim category
func AllCategories() []Category {
	return []Category{CategoryLife, CategoryMedical, CategoryVehicle}
}

// IsValid returns true for a known category
func (c Category) IsValid() bool {
	_, ok := categoryOptions[c]
	return ok
}

// Options returns the options that belong to the category
func (c Category) Options() []ClaimOption {
	return append([]ClaimOption(nil), categoryOptions[c]...)
}

// HasOption reports whether opt belongs to the category
func (c Category) HasOption(opt ClaimOption) bool {
	for _, o := range categoryOptions[c] {
		if o == opt {
			return true
		}
	}
	return false
}

// Priority of a claim
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DefaultPriority is assigned when a claim is created without one
const DefaultPriority = PriorityMedium

// IsValid returns true for a known priority
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DocumentCategory classifies an attached document
type DocumentCategory string

const (
	DocumentClaimForm        DocumentCategory = "claim_form"
	DocumentMedicalBill      DocumentCategory = "medical_bill"
	DocumentPoliceReport     DocumentCategory = "police_report"
	DocumentDeathCertificate DocumentCategory = "death_certificate"
	DocumentRepairEstimate   DocumentCategory = "repair_estimate"
	DocumentPhoto            DocumentCategory = "photo"
	DocumentOther            DocumentCategory = "other"
)

// IsValid returns true for a known document category
func (d DocumentCategory) IsValid() bool {
	switch d {
	case DocumentClaimForm, DocumentMedicalBill, DocumentPoliceReport, DocumentDeathCertificate,
		DocumentRepairEstimate, DocumentPhoto, DocumentOther:
		return true
	}
	return false
}

// Field limits
const (
	MaxDescriptionLength = 2000
	MaxRemarksLength     = 1000
	MaxReasonLength      = 1000
)
