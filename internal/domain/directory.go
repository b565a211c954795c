package domain

// NationalScope is the scope code used when an action is not tied to a single scope
const NationalScope = "NAT"

// Role names known to the follow-up engine
const (
	RoleScopeLead     = "CHEF_CENTRE"
	RoleScopeDeputy   = "ADJOINT_CHEF_CENTRE"
	RoleQualitySafety = "RESPONSABLE_QS"
	RoleDocumentOwner = "RESPONSABLE_DOCUMENTAIRE"
	RoleSafetyStudies = "RESPONSABLE_ES"
	RoleTechnical     = "RESPONSABLE_TECHNIQUE"
	RoleCyber         = "RESPONSABLE_SMSI"
	RoleNationalQSE   = "QSE_NATIONAL"
	RoleNationalAdmin = "ADMIN_NATIONAL"
)

// Scope is an organizational sub-unit targeted by diffusion
type Scope struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Agent is an individual from the personnel directory
type Agent struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
}

// RoleAssignment binds an agent to a role within a scope
type RoleAssignment struct {
	AgentID   string `json:"agent_id"`
	ScopeCode string `json:"scope_code"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
}

// Actor is the authenticated individual performing an operation
type Actor struct {
	AgentID string   `json:"agent_id"`
	Roles   []string `json:"roles,omitempty"`
}

// HasRole reports whether the actor holds role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsNational reports whether the actor holds a national-level role
func (a Actor) IsNational() bool {
	return a.HasRole(RoleNationalQSE) || a.HasRole(RoleNationalAdmin)
}
