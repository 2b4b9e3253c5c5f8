package access

import "strings"

// Role is the single marketplace role held by a principal.
type Role string

const (
	RoleBuilder          Role = "builder"
	RoleSupplier         Role = "supplier"
	RoleDeliveryProvider Role = "delivery_provider"
	RoleAdmin            Role = "admin"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleBuilder, RoleSupplier, RoleDeliveryProvider, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalises a stored role value. Unknown values yield "".
func ParseRole(value string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(value)))
	if !r.IsValid() {
		return ""
	}
	return r
}

// Flags refine a role without creating sub-roles.
type Flags struct {
	IsProfessional bool `json:"is_professional"`
	IsCompany      bool `json:"is_company"`
}

// Principal describes the caller. The zero value is an anonymous visitor.
type Principal struct {
	UserID    string `json:"user_id"`
	ProfileID string `json:"profile_id"`
	Role      Role   `json:"role"`
	Flags     Flags  `json:"flags"`
}

// Anonymous returns the signed-out principal.
func Anonymous() Principal {
	return Principal{}
}

// Authenticated reports whether the principal resolved to a profile.
func (p Principal) Authenticated() bool {
	return p.ProfileID != ""
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}
