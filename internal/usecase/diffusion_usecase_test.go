package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/girrex/suivi/internal/domain"
)

func seedDirectory(f *fixture) {
	for _, code := range []string{"LFBO", "LFRR", "LFMN"} {
		f.directory.AddScope(domain.Scope{Code: code, Name: code, Active: true})
	}
	for _, id := range []string{"doc-lfbo", "chef-lfrr", "agent-1", "agent-2", "alice", "bob"} {
		f.directory.AddAgent(domain.Agent{ID: id, DisplayName: id, Active: true})
	}
	f.directory.AddAgent(domain.Agent{ID: "retired", Active: false})

	f.directory.Assign(domain.RoleAssignment{AgentID: "doc-lfbo", ScopeCode: "LFBO", Role: domain.RoleDocumentOwner, Active: true})
	f.directory.Assign(domain.RoleAssignment{AgentID: "chef-lfrr", ScopeCode: "LFRR", Role: domain.RoleScopeLead, Active: true})
	f.directory.Assign(domain.RoleAssignment{AgentID: "agent-1", ScopeCode: "LFBO", Role: "AGENT", Active: true})
	f.directory.Assign(domain.RoleAssignment{AgentID: "agent-2", ScopeCode: "LFBO", Role: "AGENT", Active: true})
	f.directory.Assign(domain.RoleAssignment{AgentID: "retired", ScopeCode: "LFMN", Role: domain.RoleScopeLead, Active: true})
}

var memo = domain.Document{ID: "doc-42", Reference: "MEMO-2026-12", Title: "Winter ops", Version: "2"}

func TestDiffuse_DelegatesToScopeOwners(t *testing.T) {
	f := newFixture(t)
	seedDirectory(f)

	result, err := f.diffusion.Diffuse(context.Background(), domain.DiffusionRequest{
		Source:      memo,
		InitiatorID: "qse",
		Mode:        domain.DiffusionAcknowledgement,
		Title:       "Winter ops memo",
		ScopeCodes:  []string{"LFBO", "lfrr", "LFMN"},
	})
	require.NoError(t, err)

	mother := result.Mother
	assert.Equal(t, "DOC-NAT-2026-0001", mother.Number)
	assert.Equal(t, []string{"LFBO", "LFRR", "LFMN"}, mother.Scopes)
	assert.Equal(t, domain.StatusInProgress, mother.Status)
	assert.Equal(t, 1, mother.Progress)
	require.NotNil(t, mother.Source)
	assert.Equal(t, domain.SourceDocument, mother.Source.Kind)
	assert.Equal(t, "MEMO-2026-12 v2", mother.Source.Label)

	require.Len(t, result.Children, 2)
	owners := map[string]*domain.Action{}
	for _, c := range result.Children {
		owners[c.ResponsibleID] = c
		assert.Equal(t, mother.ID, *c.ParentID)
	}
	require.Contains(t, owners, "doc-lfbo")
	require.Contains(t, owners, "chef-lfrr")
	assert.Equal(t, "[DISPATCH LFBO] Winter ops memo", owners["doc-lfbo"].Title)
	assert.Equal(t, "DOC-LFBO-2026-0001", owners["doc-lfbo"].Number)
	assert.Equal(t, "DOC-LFRR-2026-0001", owners["chef-lfrr"].Number)

	// LFMN only has an inactive lead
	assert.Equal(t, []string{"LFMN"}, result.Unresolved)
	children, err := f.store.Actions().Children(context.Background(), mother.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestDiffuse_DirectBroadcast(t *testing.T) {
	f := newFixture(t)
	seedDirectory(f)

	result, err := f.diffusion.Diffuse(context.Background(), domain.DiffusionRequest{
		Source:       domain.IncidentReport{ID: "fne-7", Number: "FNE-7"},
		InitiatorID:  "qse",
		Mode:         domain.DiffusionInformation,
		Title:        "Runway incursion lessons",
		ScopeCodes:   []string{"LFBO"},
		RecipientIDs: []string{"alice", "alice", "bob"},
		Direct:       true,
	})
	require.NoError(t, err)

	var titles []string
	for _, c := range result.Children {
		titles = append(titles, c.ResponsibleID+" "+c.Title)
	}
	assert.ElementsMatch(t, []string{
		"agent-1 [INFO] Runway incursion lessons",
		"agent-2 [INFO] Runway incursion lessons",
		"doc-lfbo [INFO] Runway incursion lessons",
		"alice [INFO] Runway incursion lessons",
		"bob [INFO] Runway incursion lessons",
	}, titles)
	assert.Equal(t, domain.StatusInProgress, result.Mother.Status)
	assert.Empty(t, result.Unresolved)
}

func TestDiffuse_InformationWithNoChildrenClosesMother(t *testing.T) {
	f := newFixture(t)
	seedDirectory(f)

	result, err := f.diffusion.Diffuse(context.Background(), domain.DiffusionRequest{
		Source:      memo,
		InitiatorID: "qse",
		Mode:        domain.DiffusionInformation,
		ScopeCodes:  []string{"LFMN"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Children)
	assert.Equal(t, []string{"LFMN"}, result.Unresolved)
	assert.Equal(t, domain.StatusValidated, result.Mother.Status)
	assert.Equal(t, 100, result.Mother.Progress)
	assert.Equal(t, "Diffusion DOCUMENT MEMO-2026-12 v2", result.Mother.Title)
	assert.Equal(t, []domain.HistoryKind{domain.HistoryClosed, domain.HistoryCreated}, f.historyKinds(t, result.Mother.ID))
}

func TestDiffuse_AcknowledgementFlowsBackToMother(t *testing.T) {
	f := newFixture(t)
	seedDirectory(f)
	ctx := context.Background()

	result, err := f.diffusion.Diffuse(ctx, domain.DiffusionRequest{
		Source:       memo,
		InitiatorID:  "qse",
		Mode:         domain.DiffusionAcknowledgement,
		RecipientIDs: []string{"alice", "bob"},
	})
	require.NoError(t, err)
	require.Len(t, result.Children, 2)

	for _, c := range result.Children {
		assert.Equal(t, "[ACK] Diffusion DOCUMENT MEMO-2026-12 v2", c.Title)
		_, err := f.actions.Acknowledge(ctx, c.ID, domain.Actor{AgentID: c.ResponsibleID})
		require.NoError(t, err)
	}

	mother := f.reload(t, result.Mother.ID)
	assert.Equal(t, 99, mother.Progress)
	assert.Equal(t, domain.StatusPendingValidation, mother.Status)
}

func TestDiffuse_Validation(t *testing.T) {
	f := newFixture(t)
	seedDirectory(f)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.DiffusionRequest
		want error
	}{
		{"no source", domain.DiffusionRequest{InitiatorID: "qse", Mode: domain.DiffusionInformation, ScopeCodes: []string{"LFBO"}}, domain.ErrMissingSource},
		{"no initiator", domain.DiffusionRequest{Source: memo, Mode: domain.DiffusionInformation, ScopeCodes: []string{"LFBO"}}, domain.ErrMissingInitiator},
		{"bad mode", domain.DiffusionRequest{Source: memo, InitiatorID: "qse", Mode: "LOUD", ScopeCodes: []string{"LFBO"}}, domain.ErrInvalidMode},
		{"no targets", domain.DiffusionRequest{Source: memo, InitiatorID: "qse", Mode: domain.DiffusionInformation}, domain.ErrNoTargets},
		{"unknown scope", domain.DiffusionRequest{Source: memo, InitiatorID: "qse", Mode: domain.DiffusionInformation, ScopeCodes: []string{"ZZZZ"}}, domain.ErrScopeNotFound},
		{"unknown recipient", domain.DiffusionRequest{Source: memo, InitiatorID: "qse", Mode: domain.DiffusionInformation, RecipientIDs: []string{"ghost"}}, domain.ErrAgentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.diffusion.Diffuse(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	total, err := f.store.Actions().Count(ctx, domain.ActionFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDiffuse_InactiveRecipientIsReported(t *testing.T) {
	f := newFixture(t)
	seedDirectory(f)

	result, err := f.diffusion.Diffuse(context.Background(), domain.DiffusionRequest{
		Source:       domain.CyberRisk{ID: "cr-1", Code: "CR-001"},
		InitiatorID:  "qse",
		Mode:         domain.DiffusionAcknowledgement,
		RecipientIDs: []string{"retired", "bob"},
	})
	require.NoError(t, err)

	require.Len(t, result.Children, 1)
	assert.Equal(t, "bob", result.Children[0].ResponsibleID)
	assert.Equal(t, []string{"agent:retired"}, result.Unresolved)
}
