package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/ports"
)

// PostgresDirectory implements Directory over the personnel tables
type PostgresDirectory struct {
	db DBTX
}

// NewPostgresDirectory creates a new PostgreSQL directory
func NewPostgresDirectory(db DBTX) ports.Directory {
	return &PostgresDirectory{db: db}
}

// FindScope retrieves a scope by code
func (d *PostgresDirectory) FindScope(ctx context.Context, code string) (*domain.Scope, error) {
	var scope domain.Scope
	err := d.db.QueryRowContext(ctx, `SELECT code, name, active FROM scopes WHERE code = $1`, strings.ToUpper(code)).
		Scan(&scope.Code, &scope.Name, &scope.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrScopeNotFound
		}
		return nil, fmt.Errorf("failed to find scope: %w", err)
	}
	return &scope, nil
}

// FindAgent retrieves an agent by ID
func (d *PostgresDirectory) FindAgent(ctx context.Context, id string) (*domain.Agent, error) {
	var agent domain.Agent
	err := d.db.QueryRowContext(ctx, `SELECT id, display_name, email, active FROM agents WHERE id = $1`, id).
		Scan(&agent.ID, &agent.DisplayName, &agent.Email, &agent.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to find agent: %w", err)
	}
	return &agent, nil
}

// ResolveRoleHolder returns the longest-serving active holder of role in the scope
func (d *PostgresDirectory) ResolveRoleHolder(ctx context.Context, scopeCode, role string) (*domain.Agent, error) {
	query := `
		SELECT a.id, a.display_name, a.email, a.active
		FROM role_assignments ra
		JOIN agents a ON a.id = ra.agent_id
		WHERE ra.scope_code = $1 AND ra.role = $2 AND ra.active AND a.active
		ORDER BY ra.assigned_at ASC
		LIMIT 1
	`

	var agent domain.Agent
	err := d.db.QueryRowContext(ctx, query, strings.ToUpper(scopeCode), role).
		Scan(&agent.ID, &agent.DisplayName, &agent.Email, &agent.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve role holder: %w", err)
	}
	return &agent, nil
}

// ActiveMembers lists the active agents holding any active role in the scope
func (d *PostgresDirectory) ActiveMembers(ctx context.Context, scopeCode string) ([]domain.Agent, error) {
	query := `
		SELECT DISTINCT a.id, a.display_name, a.email, a.active
		FROM role_assignments ra
		JOIN agents a ON a.id = ra.agent_id
		WHERE ra.scope_code = $1 AND ra.active AND a.active
		ORDER BY a.id
	`

	rows, err := d.db.QueryContext(ctx, query, strings.ToUpper(scopeCode))
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(&agent.ID, &agent.DisplayName, &agent.Email, &agent.Active); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// RolesOf lists the active role assignments of an agent
func (d *PostgresDirectory) RolesOf(ctx context.Context, agentID string) ([]domain.RoleAssignment, error) {
	query := `
		SELECT agent_id, scope_code, role, active
		FROM role_assignments
		WHERE agent_id = $1 AND active
		ORDER BY scope_code, role
	`

	rows, err := d.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var assignments []domain.RoleAssignment
	for rows.Next() {
		var ra domain.RoleAssignment
		if err := rows.Scan(&ra.AgentID, &ra.ScopeCode, &ra.Role, &ra.Active); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		assignments = append(assignments, ra)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return assignments, nil
}

// ImportDirectory upserts directory records. Records missing from the input are left
// untouched; deactivate them explicitly.
func ImportDirectory(ctx context.Context, db DBTX, scopes []domain.Scope, agents []domain.Agent, assignments []domain.RoleAssignment) error {
	for _, s := range scopes {
		_, err := db.ExecContext(ctx, `
			INSERT INTO scopes (code, name, active) VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active`,
			strings.ToUpper(s.Code), s.Name, s.Active)
		if err != nil {
			return fmt.Errorf("failed to import scope %s: %w", s.Code, err)
		}
	}

	for _, a := range agents {
		_, err := db.ExecContext(ctx, `
			INSERT INTO agents (id, display_name, email, active) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email, active = EXCLUDED.active`,
			a.ID, a.DisplayName, a.Email, a.Active)
		if err != nil {
			return fmt.Errorf("failed to import agent %s: %w", a.ID, err)
		}
	}

	for _, r := range assignments {
		_, err := db.ExecContext(ctx, `
			INSERT INTO role_assignments (agent_id, scope_code, role, active) VALUES ($1, $2, $3, $4)
			ON CONFLICT (agent_id, scope_code, role) DO UPDATE SET active = EXCLUDED.active`,
			r.AgentID, strings.ToUpper(r.ScopeCode), r.Role, r.Active)
		if err != nil {
			return fmt.Errorf("failed to import role %s of %s in %s: %w", r.Role, r.AgentID, r.ScopeCode, err)
		}
	}
	return nil
}
