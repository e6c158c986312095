package pipeline

import (
	"context"
	"fmt"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

// DenialKind classifies why the guard refused a transition.
type DenialKind string

const (
	DenyInvalidTransition  DenialKind = "invalid_transition"
	DenyUnauthorized       DenialKind = "unauthorized"
	DenyPreconditionFailed DenialKind = "precondition_failed"
	DenyArchived           DenialKind = "archived"
)

// Decision is the guard's verdict. The guard only classifies; it never
// mutates anything. CheckName is set for precondition denials.
type Decision struct {
	Allowed   bool
	Deny      DenialKind
	CheckName string
	Edge      TransitionDefinition
}

func allow(edge TransitionDefinition) Decision {
	return Decision{Allowed: true, Edge: edge}
}

func deny(kind DenialKind) Decision {
	return Decision{Deny: kind}
}

// Guard decides whether an actor may move an entity to a target state.
type Guard struct {
	registry      *Registry
	preconditions PreconditionProvider
}

func NewGuard(registry *Registry, preconditions PreconditionProvider) *Guard {
	if registry == nil || preconditions == nil {
		return nil
	}
	return &Guard{registry: registry, preconditions: preconditions}
}

// Evaluate runs the full check sequence: archived, edge reachability,
// role, preconditions. A returned error means a check could not be
// evaluated (provider failure), not that the transition was denied.
func (g *Guard) Evaluate(ctx context.Context, entity domain.PipelineEntity, actor domain.Actor, target domain.Status) (Decision, error) {
	if g == nil {
		return Decision{}, fmt.Errorf("guard not initialized")
	}
	if entity.Archived {
		return deny(DenyArchived), nil
	}
	if !g.registry.ValidState(entity.EntityType, target) {
		return deny(DenyInvalidTransition), nil
	}
	if g.registry.IsTerminal(entity.EntityType, entity.Status) {
		return deny(DenyInvalidTransition), nil
	}

	edge, ok := g.registry.Find(entity.EntityType, entity.Status, target)
	if !ok {
		return deny(DenyInvalidTransition), nil
	}
	if !edge.AllowsRole(actor.Role) {
		return deny(DenyUnauthorized), nil
	}
	for _, name := range edge.Preconditions {
		ok, err := g.preconditions.Check(ctx, name, entity)
		if err != nil {
			return Decision{}, fmt.Errorf("precondition %q: %w", name, err)
		}
		if !ok {
			d := deny(DenyPreconditionFailed)
			d.CheckName = name
			return d, nil
		}
	}
	return allow(edge), nil
}
