// Package registry maps follow-up sources to the role that owns a diffusion in a scope.
// Each domain registers its own mapping so the diffusion code never switches on types.
package registry

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/girrex/suivi/internal/domain"
)

// Registry resolves the ordered list of roles to try when looking for a scope owner
type Registry struct {
	mu         sync.RWMutex
	sources    map[domain.SourceKind]string
	categories map[domain.ActionCategory]string
	fallbacks  []string
}

// New creates an empty registry falling back to the scope lead then the deputy
func New() *Registry {
	return &Registry{
		sources:    make(map[domain.SourceKind]string),
		categories: make(map[domain.ActionCategory]string),
		fallbacks:  []string{domain.RoleScopeLead, domain.RoleScopeDeputy},
	}
}

// Default returns a registry holding the mappings of the GIRREX domains
func Default() *Registry {
	r := New()
	r.Register(domain.SourceDocument, domain.RoleDocumentOwner)
	r.Register(domain.SourceIncidentReport, domain.RoleQualitySafety)
	r.Register(domain.SourceSafetyStudy, domain.RoleSafetyStudies)
	r.Register(domain.SourceMaintenanceNotice, domain.RoleTechnical)
	r.Register(domain.SourceCyberRisk, domain.RoleCyber)
	r.RegisterCategory(domain.CategorySafetyRecommendation, domain.RoleQualitySafety)
	r.RegisterCategory(domain.CategoryRegulatoryInstruction, domain.RoleDocumentOwner)
	return r
}

// Register sets the primary owner role for actions raised by a source kind
func (r *Registry) Register(kind domain.SourceKind, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[kind] = role
}

// RegisterCategory sets the primary owner role used when the source kind has none
func (r *Registry) RegisterCategory(category domain.ActionCategory, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[category] = role
}

// SetFallbacks replaces the roles tried after the primary one
func (r *Registry) SetFallbacks(roles []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append([]string(nil), roles...)
}

// Chain returns the roles to try, in order, for a source kind and category
func (r *Registry) Chain(kind domain.SourceKind, category domain.ActionCategory) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []string
	seen := make(map[string]bool)
	add := func(role string) {
		if role != "" && !seen[role] {
			seen[role] = true
			chain = append(chain, role)
		}
	}

	if role, ok := r.sources[kind]; ok {
		add(role)
	} else {
		add(r.categories[category])
	}
	for _, role := range r.fallbacks {
		add(role)
	}
	return chain
}

type fileConfig struct {
	Version    int               `yaml:"version"`
	Fallbacks  []string          `yaml:"fallbacks"`
	Sources    map[string]string `yaml:"sources"`
	Categories map[string]string `yaml:"categories"`
}

// LoadFile builds a registry from the defaults overridden by a YAML file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role registry: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from the defaults overridden by YAML content
func Parse(data []byte) (*Registry, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse role registry: %w", err)
	}
	if cfg.Version > 1 {
		return nil, fmt.Errorf("unsupported role registry version %d", cfg.Version)
	}

	r := Default()
	if len(cfg.Fallbacks) > 0 {
		r.SetFallbacks(cfg.Fallbacks)
	}
	for kind, role := range cfg.Sources {
		r.Register(domain.SourceKind(kind), role)
	}
	for category, role := range cfg.Categories {
		c := domain.ActionCategory(category)
		if !c.IsValid() {
			return nil, fmt.Errorf("unknown category %q in role registry", category)
		}
		r.RegisterCategory(c, role)
	}
	return r, nil
}
