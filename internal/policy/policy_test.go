package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/girrex/suivi/internal/domain"
)

func TestEvaluate(t *testing.T) {
	root := domain.NewAction("Diffusion", "", domain.CategoryDocumentDiffusion, domain.PriorityLow, "chief", "chief")
	child := domain.NewAction("Ack", "", domain.CategoryDocumentDiffusion, domain.PriorityLow, "agent", "chief")
	child.AttachTo(root)

	owner := domain.Actor{AgentID: "agent"}
	chief := domain.Actor{AgentID: "chief"}
	stranger := domain.Actor{AgentID: "someone"}
	national := domain.Actor{AgentID: "qse", Roles: []string{domain.RoleNationalQSE}}

	tests := []struct {
		name    string
		actor   domain.Actor
		op      Operation
		allowed bool
	}{
		{"anonymous is denied", domain.Actor{}, OpView, false},
		{"anyone views", stranger, OpView, true},
		{"anyone comments", stranger, OpComment, true},
		{"responsible acknowledges", owner, OpAcknowledge, true},
		{"national cannot acknowledge for someone", national, OpAcknowledge, false},
		{"responsible updates", owner, OpUpdate, true},
		{"stranger cannot update", stranger, OpUpdate, false},
		{"national updates", national, OpUpdate, true},
		{"root responsible closes child", chief, OpClose, true},
		{"child responsible cannot close", owner, OpClose, false},
		{"national closes", national, OpClose, true},
		{"responsible cannot delete", owner, OpDelete, false},
		{"national deletes", national, OpDelete, true},
		{"unknown op", owner, Operation("FLY"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.actor, Resource{Action: child, Root: root}, tt.op)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
			assert.NotEmpty(t, d.Reason)
			if tt.allowed {
				assert.NoError(t, d.Err())
			} else {
				assert.Equal(t, domain.KindAuthorization, domain.KindOf(d.Err()))
			}
		})
	}
}
