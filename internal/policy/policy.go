// Package policy decides whether an actor may perform an operation on an action.
// It is independent of any request object so every caller gets the same answer.
package policy

import (
	"fmt"

	"github.com/girrex/suivi/internal/domain"
)

// Operation is something an actor wants to do to an action
type Operation string

const (
	OpView        Operation = "VIEW"
	OpUpdate      Operation = "UPDATE"
	OpComment     Operation = "COMMENT"
	OpAcknowledge Operation = "ACKNOWLEDGE"
	OpValidate    Operation = "VALIDATE"
	OpClose       Operation = "CLOSE"
	OpArchive     Operation = "ARCHIVE"
	OpDelete      Operation = "DELETE"
	OpDiffuse     Operation = "DIFFUSE"
)

// Decision is the outcome of an evaluation
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Err returns nil when allowed, otherwise an authorization error carrying the reason
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.Forbidden(d.Reason)
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Resource is what the actor acts upon. Root is the top-level ancestor of Action and
// may be Action itself; it is only consulted for OpClose.
type Resource struct {
	Action *domain.Action
	Root   *domain.Action
}

// Evaluate decides whether actor may perform op on resource
func Evaluate(actor domain.Actor, resource Resource, op Operation) Decision {
	if actor.AgentID == "" {
		return deny("anonymous actor")
	}

	switch op {
	case OpView, OpComment, OpDiffuse:
		return allow("any authenticated agent")
	}

	action := resource.Action
	if action == nil {
		return deny(fmt.Sprintf("%s requires an action", op))
	}

	national := actor.IsNational()
	responsible := action.ResponsibleID == actor.AgentID

	switch op {
	case OpAcknowledge:
		if responsible {
			return allow("responsible party acknowledges")
		}
		return deny("only the responsible party can acknowledge this action")
	case OpUpdate, OpValidate, OpArchive:
		if responsible {
			return allow("responsible party")
		}
		if national {
			return allow("national role")
		}
		return deny(fmt.Sprintf("%s is reserved to the responsible party or a national role", op))
	case OpClose:
		root := resource.Root
		if root == nil {
			root = action
		}
		if root.ResponsibleID == actor.AgentID {
			return allow("responsible party of the top-level action")
		}
		if national {
			return allow("national role")
		}
		return deny("final closure is reserved to the top-level responsible party or a national role")
	case OpDelete:
		if national {
			return allow("national role")
		}
		return deny("deletion is reserved to a national role")
	}

	return deny(fmt.Sprintf("unknown operation %s", op))
}
