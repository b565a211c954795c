package memory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/girrex/suivi/internal/domain"
)

type directoryFile struct {
	Scopes []struct {
		Code   string `yaml:"code"`
		Name   string `yaml:"name"`
		Active *bool  `yaml:"active"`
	} `yaml:"scopes"`
	Agents []struct {
		ID     string `yaml:"id"`
		Name   string `yaml:"name"`
		Email  string `yaml:"email"`
		Active *bool  `yaml:"active"`
		Roles  []struct {
			Scope  string `yaml:"scope"`
			Role   string `yaml:"role"`
			Active *bool  `yaml:"active"`
		} `yaml:"roles"`
	} `yaml:"agents"`
}

// DirectorySnapshot is the content of a directory file. Records are active unless the
// file says otherwise.
type DirectorySnapshot struct {
	Scopes      []domain.Scope
	Agents      []domain.Agent
	Assignments []domain.RoleAssignment
}

func activeOr(v *bool) bool {
	return v == nil || *v
}

// ParseDirectory reads a YAML directory description
func ParseDirectory(data []byte) (*DirectorySnapshot, error) {
	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}

	snap := &DirectorySnapshot{}
	known := make(map[string]bool)
	for _, s := range file.Scopes {
		code := strings.ToUpper(strings.TrimSpace(s.Code))
		if code == "" {
			return nil, fmt.Errorf("parse directory: scope without code")
		}
		known[code] = true
		snap.Scopes = append(snap.Scopes, domain.Scope{Code: code, Name: s.Name, Active: activeOr(s.Active)})
	}

	for _, a := range file.Agents {
		if a.ID == "" {
			return nil, fmt.Errorf("parse directory: agent without id")
		}
		snap.Agents = append(snap.Agents, domain.Agent{ID: a.ID, DisplayName: a.Name, Email: a.Email, Active: activeOr(a.Active)})
		for _, r := range a.Roles {
			scope := strings.ToUpper(strings.TrimSpace(r.Scope))
			if !known[scope] {
				return nil, fmt.Errorf("parse directory: agent %s has a role in unknown scope %q", a.ID, r.Scope)
			}
			snap.Assignments = append(snap.Assignments, domain.RoleAssignment{
				AgentID:   a.ID,
				ScopeCode: scope,
				Role:      r.Role,
				Active:    activeOr(r.Active),
			})
		}
	}
	return snap, nil
}

// LoadDirectorySnapshot reads and parses a directory file
func LoadDirectorySnapshot(path string) (*DirectorySnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	return ParseDirectory(data)
}

// Load adds every record of snap to the directory
func (d *Directory) Load(snap *DirectorySnapshot) {
	for _, s := range snap.Scopes {
		d.AddScope(s)
	}
	for _, a := range snap.Agents {
		d.AddAgent(a)
	}
	for _, r := range snap.Assignments {
		d.Assign(r)
	}
}
