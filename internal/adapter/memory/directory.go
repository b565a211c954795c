package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/girrex/suivi/internal/domain"
)

// Directory is an in-memory personnel directory
type Directory struct {
	mu          sync.RWMutex
	scopes      map[string]domain.Scope
	agents      map[string]domain.Agent
	assignments []domain.RoleAssignment
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		scopes: make(map[string]domain.Scope),
		agents: make(map[string]domain.Agent),
	}
}

// AddScope registers or replaces a scope
func (d *Directory) AddScope(scope domain.Scope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	scope.Code = strings.ToUpper(scope.Code)
	d.scopes[scope.Code] = scope
}

// AddAgent registers or replaces an agent
func (d *Directory) AddAgent(agent domain.Agent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agents[agent.ID] = agent
}

// Assign gives agentID a role in a scope. Membership of a scope is any active assignment in it.
func (d *Directory) Assign(assignment domain.RoleAssignment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	assignment.ScopeCode = strings.ToUpper(assignment.ScopeCode)
	d.assignments = append(d.assignments, assignment)
}

func (d *Directory) FindScope(ctx context.Context, code string) (*domain.Scope, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	scope, ok := d.scopes[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrScopeNotFound
	}
	return &scope, nil
}

func (d *Directory) FindAgent(ctx context.Context, id string) (*domain.Agent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	agent, ok := d.agents[id]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	return &agent, nil
}

func (d *Directory) ResolveRoleHolder(ctx context.Context, scopeCode, role string) (*domain.Agent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	scopeCode = strings.ToUpper(scopeCode)
	for _, a := range d.assignments {
		if !a.Active || a.ScopeCode != scopeCode || a.Role != role {
			continue
		}
		if agent, ok := d.agents[a.AgentID]; ok && agent.Active {
			return &agent, nil
		}
	}
	return nil, nil
}

func (d *Directory) ActiveMembers(ctx context.Context, scopeCode string) ([]domain.Agent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	scopeCode = strings.ToUpper(scopeCode)

	seen := make(map[string]bool)
	var members []domain.Agent
	for _, a := range d.assignments {
		if !a.Active || a.ScopeCode != scopeCode || seen[a.AgentID] {
			continue
		}
		if agent, ok := d.agents[a.AgentID]; ok && agent.Active {
			seen[a.AgentID] = true
			members = append(members, agent)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (d *Directory) RolesOf(ctx context.Context, agentID string) ([]domain.RoleAssignment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []domain.RoleAssignment
	for _, a := range d.assignments {
		if a.AgentID == agentID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}
