package entity

// Actor is a user as seen by the directory
type Actor struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Email       string `json:"email" yaml:"email"`
	Role        Role   `json:"role" yaml:"role"`
	Active      bool   `json:"active" yaml:"active"`
}

// IsAdmin returns true for an admin actor
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
