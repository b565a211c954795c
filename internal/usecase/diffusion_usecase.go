package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/policy"
	"github.com/girrex/suivi/internal/ports"
	"github.com/girrex/suivi/internal/registry"
)

// DiffusionUseCase fans a source record out to scopes and individuals as a tree of actions
type DiffusionUseCase struct {
	uow       ports.UnitOfWork
	directory ports.Directory
	roles     *registry.Registry
	numbering *NumberingService
	events    notifier
	log       logger.Logger
}

// NewDiffusionUseCase creates a new diffusion use case
func NewDiffusionUseCase(
	uow ports.UnitOfWork,
	directory ports.Directory,
	roles *registry.Registry,
	numbering *NumberingService,
	eventPublisher ports.EventPublisher,
	log logger.Logger,
) *DiffusionUseCase {
	if roles == nil {
		roles = registry.Default()
	}
	if numbering == nil {
		numbering = NewNumberingService(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DiffusionUseCase{
		uow:       uow,
		directory: directory,
		roles:     roles,
		numbering: numbering,
		events:    notifier{publisher: eventPublisher, log: log},
		log:       log,
	}
}

// target is one child to create
type target struct {
	agent domain.Agent
	scope string
	title string
}

// Diffuse creates the mother action and one child per resolved target in a single transaction
func (uc *DiffusionUseCase) Diffuse(ctx context.Context, req domain.DiffusionRequest) (*domain.DiffusionResult, error) {
	if err := uc.normalize(&req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := policy.Evaluate(domain.Actor{AgentID: req.InitiatorID}, policy.Resource{}, policy.OpDiffuse).Err(); err != nil {
		return nil, err
	}

	ref := req.Source.FollowUpRef()
	targets, unresolved, err := uc.resolveTargets(ctx, req, ref)
	if err != nil {
		return nil, err
	}

	result := &domain.DiffusionResult{Unresolved: unresolved}
	err = uc.uow.WithinTx(ctx, func(tx ports.Store) error {
		mother := domain.NewAction(req.Title, req.Description, req.Category, req.Priority, req.InitiatorID, req.InitiatorID)
		mother.Scopes = req.ScopeCodes
		mother.Source = &ref
		mother.DueDate = req.DueDate

		number, err := uc.numbering.Next(ctx, tx, mother.Category, mother.ScopeCode())
		if err != nil {
			return err
		}
		mother.Number = number
		if err := tx.Actions().Create(ctx, mother); err != nil {
			return fmt.Errorf("failed to create mother action: %w", err)
		}
		entry := createdEntry(mother, req.InitiatorID)
		entry.Details["mode"] = string(req.Mode)
		entry.Details["direct"] = req.Direct
		entry.Details["source_kind"] = string(ref.Kind)
		entry.Details["source_id"] = ref.ID
		if len(unresolved) > 0 {
			entry.Details["unresolved"] = unresolved
		}
		if err := tx.History().Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to log mother creation: %w", err)
		}

		for _, tg := range targets {
			child := domain.NewAction(tg.title, req.Description, req.Category, req.Priority, tg.agent.ID, req.InitiatorID)
			child.AttachTo(mother)
			child.Source = &ref
			child.DueDate = req.DueDate
			if tg.scope != "" {
				child.Scopes = []string{tg.scope}
			}

			number, err := uc.numbering.Next(ctx, tx, child.Category, child.ScopeCode())
			if err != nil {
				return err
			}
			child.Number = number
			if err := tx.Actions().Create(ctx, child); err != nil {
				return fmt.Errorf("failed to create child action: %w", err)
			}
			if err := tx.History().Append(ctx, createdEntry(child, req.InitiatorID)); err != nil {
				return fmt.Errorf("failed to log child creation: %w", err)
			}
			result.Children = append(result.Children, child)
		}

		var (
			t    domain.Transition
			kind = domain.HistoryStatusChange
		)
		if req.Mode == domain.DiffusionInformation && len(result.Children) == 0 {
			t = mother.ApplyAggregate(0, 0)
			kind = domain.HistoryClosed
		} else {
			t = mother.Start()
		}
		if t.Changed() {
			if err := tx.Actions().Update(ctx, mother); err != nil {
				return fmt.Errorf("failed to update mother action: %w", err)
			}
			if err := tx.History().Append(ctx, domain.NewHistoryEntry(mother.ID, kind, req.InitiatorID, t.Details())); err != nil {
				return fmt.Errorf("failed to log mother state: %w", err)
			}
		}

		result.Mother = mother
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.events.action(ctx, ports.EventTypeDiffusionCreated, result.Mother, req.InitiatorID, map[string]interface{}{
		"mode":        req.Mode,
		"direct":      req.Direct,
		"children":    len(result.Children),
		"unresolved":  result.Unresolved,
		"source_kind": ref.Kind,
		"source_id":   ref.ID,
	})
	for _, child := range result.Children {
		uc.events.action(ctx, ports.EventTypeActionCreated, child, req.InitiatorID, nil)
	}

	uc.log.Info(ctx, "diffusion created", map[string]interface{}{
		"mother_id":  result.Mother.ID,
		"number":     result.Mother.Number,
		"children":   len(result.Children),
		"unresolved": len(result.Unresolved),
	})
	return result, nil
}

func (uc *DiffusionUseCase) normalize(req *domain.DiffusionRequest) error {
	if req.Source == nil {
		return domain.ErrMissingSource
	}
	if req.InitiatorID == "" {
		return domain.ErrMissingInitiator
	}
	if !req.Mode.IsValid() {
		return domain.ErrInvalidMode
	}
	if req.Category == "" {
		req.Category = domain.CategoryDocumentDiffusion
	}
	if !req.Category.IsValid() {
		return domain.ErrInvalidCategory
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}
	if !req.Priority.IsValid() {
		return domain.ErrInvalidPriority
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		ref := req.Source.FollowUpRef()
		label := ref.Label
		if label == "" {
			label = ref.ID
		}
		req.Title = fmt.Sprintf("Diffusion %s %s", ref.Kind, label)
	}

	req.ScopeCodes = normalizeScopes(req.ScopeCodes)
	var recipients []string
	seen := make(map[string]bool, len(req.RecipientIDs))
	for _, id := range req.RecipientIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	req.RecipientIDs = recipients

	if len(req.ScopeCodes) == 0 && len(req.RecipientIDs) == 0 {
		return domain.ErrNoTargets
	}
	return nil
}

// resolveTargets reads the directory before the write transaction starts
func (uc *DiffusionUseCase) resolveTargets(ctx context.Context, req domain.DiffusionRequest, ref domain.SourceRef) ([]target, []string, error) {
	var (
		targets    []target
		unresolved []string
	)
	individualTag := "[INFO]"
	if req.Mode == domain.DiffusionAcknowledgement {
		individualTag = "[ACK]"
	}

	for _, code := range req.ScopeCodes {
		scope, err := uc.directory.FindScope(ctx, code)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find scope %s: %w", code, err)
		}
		if !scope.Active {
			uc.log.Warn(ctx, "diffusion scope is inactive", map[string]interface{}{"scope": code})
			unresolved = append(unresolved, code)
			continue
		}

		if req.Direct {
			members, err := uc.directory.ActiveMembers(ctx, code)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to list members of %s: %w", code, err)
			}
			for _, m := range members {
				targets = append(targets, target{agent: m, scope: code, title: individualTag + " " + req.Title})
			}
			continue
		}

		owner, err := uc.resolveOwner(ctx, code, ref.Kind, req.Category)
		if err != nil {
			return nil, nil, err
		}
		if owner == nil {
			uc.log.Warn(ctx, "no owner resolved for diffusion scope, scope skipped", map[string]interface{}{
				"scope":       code,
				"source_kind": ref.Kind,
				"roles":       uc.roles.Chain(ref.Kind, req.Category),
			})
			unresolved = append(unresolved, code)
			continue
		}
		targets = append(targets, target{
			agent: *owner,
			scope: code,
			title: fmt.Sprintf("[DISPATCH %s] %s", code, req.Title),
		})
	}

	for _, id := range req.RecipientIDs {
		agent, err := uc.directory.FindAgent(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find recipient %s: %w", id, err)
		}
		if !agent.Active {
			uc.log.Warn(ctx, "diffusion recipient is inactive", map[string]interface{}{"agent_id": id})
			unresolved = append(unresolved, "agent:"+id)
			continue
		}
		targets = append(targets, target{agent: *agent, title: individualTag + " " + req.Title})
	}

	return targets, unresolved, nil
}

// resolveOwner walks the role chain of the source kind and returns the first active holder
func (uc *DiffusionUseCase) resolveOwner(ctx context.Context, scopeCode string, kind domain.SourceKind, category domain.ActionCategory) (*domain.Agent, error) {
	for _, role := range uc.roles.Chain(kind, category) {
		agent, err := uc.directory.ResolveRoleHolder(ctx, scopeCode, role)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s in %s: %w", role, scopeCode, err)
		}
		if agent != nil && agent.Active {
			return agent, nil
		}
	}
	return nil, nil
}
