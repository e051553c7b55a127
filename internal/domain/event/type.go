package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimCreated     Type = "claim.created"
	TypeClaimUpdated     Type = "claim.updated"
	TypeClaimDeleted     Type = "claim.deleted"
	TypeStatusChanged    Type = "claim.status_changed"
	TypeAnswersSubmitted Type = "claim.answers_submitted"
	TypeDocumentAttached Type = "claim.document_attached"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimCreated,
		TypeClaimUpdated,
		TypeClaimDeleted,
		TypeStatusChanged,
		TypeAnswersSubmitted,
		TypeDocumentAttached:
		return true
	default:
		return false
	}
}
