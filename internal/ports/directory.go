package ports

import (
	"context"

	"github.com/girrex/suivi/internal/domain"
)

// RoleResolver finds the active holder of a role in a scope
type RoleResolver interface {
	// ResolveRoleHolder returns nil, nil when nobody currently holds the role
	ResolveRoleHolder(ctx context.Context, scopeCode, role string) (*domain.Agent, error)
}

// MembershipResolver lists the active members of a scope
type MembershipResolver interface {
	ActiveMembers(ctx context.Context, scopeCode string) ([]domain.Agent, error)
}

// Directory is the read-only personnel directory
type Directory interface {
	RoleResolver
	MembershipResolver

	// FindAgent retrieves an agent by ID
	FindAgent(ctx context.Context, id string) (*domain.Agent, error)

	// FindScope retrieves a scope by code
	FindScope(ctx context.Context, code string) (*domain.Scope, error)

	// RolesOf lists the active role assignments of an agent
	RolesOf(ctx context.Context, agentID string) ([]domain.RoleAssignment, error)
}
