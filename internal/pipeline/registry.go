package pipeline

import (
	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

// Precondition check names referenced by transition definitions. The
// predicates themselves are supplied by providers (see preconditions.go).
const (
	CheckDocumentsComplete  = "documents_complete"
	CheckCardConfigComplete = "card_config_complete"
)

// TransitionDefinition is a declared edge in a pipeline. Override
// edges sit off the linear happy path (reject, restore, suspend) and
// bypass the adjacency check, but still pass through the guard.
type TransitionDefinition struct {
	EntityType    domain.EntityType
	FromStates    []domain.Status
	ToState       domain.Status
	AllowedRoles  []string
	Preconditions []string
	Override      bool
}

func (d TransitionDefinition) allowsFrom(from domain.Status) bool {
	for _, s := range d.FromStates {
		if s == from {
			return true
		}
	}
	return false
}

// AllowsRole reports whether the actor role may trigger this edge.
func (d TransitionDefinition) AllowsRole(role string) bool {
	for _, r := range d.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Definition describes one entity type's pipeline: the ordered happy
// path, its initial and terminal states, the branch states reachable
// only via override edges, and every declared edge.
type Definition struct {
	EntityType  domain.EntityType
	HappyPath   []domain.Status
	Initial     domain.Status
	Terminals   []domain.Status
	Branches    []domain.Status
	Transitions []TransitionDefinition
}

func (d Definition) happyIndex(status domain.Status) int {
	for i, s := range d.HappyPath {
		if s == status {
			return i
		}
	}
	return -1
}

// States returns every declared state of the pipeline, happy path first.
func (d Definition) States() []domain.Status {
	out := make([]domain.Status, 0, len(d.HappyPath)+len(d.Branches))
	out = append(out, d.HappyPath...)
	out = append(out, d.Branches...)
	return out
}

// Registry is the static per-entity-type pipeline table. Pure lookup,
// no side effects; definitions are immutable after construction.
type Registry struct {
	defs map[domain.EntityType]Definition
}

// NewRegistry builds the registry with the three business pipelines.
func NewRegistry() *Registry {
	defs := map[domain.EntityType]Definition{
		domain.EntityTypeClient: clientPipeline(),
		domain.EntityTypeBroker: brokerPipeline(),
		domain.EntityTypeCard:   cardPipeline(),
	}
	return &Registry{defs: defs}
}

func clientPipeline() Definition {
	happy := []domain.Status{
		domain.StatusNewLead,
		domain.StatusContacted,
		domain.StatusQualification,
		domain.StatusApproved,
		domain.StatusActive,
	}
	managers := []string{domain.RoleManager, domain.RoleAdmin}

	transitions := make([]TransitionDefinition, 0, 16)
	for i := 0; i < len(happy)-1; i++ {
		def := TransitionDefinition{
			EntityType:   domain.EntityTypeClient,
			FromStates:   []domain.Status{happy[i]},
			ToState:      happy[i+1],
			AllowedRoles: managers,
		}
		if happy[i] == domain.StatusQualification {
			def.Preconditions = []string{CheckDocumentsComplete}
		}
		transitions = append(transitions, def)
	}
	// Admins and managers may walk a client back one step.
	for i := len(happy) - 1; i > 0; i-- {
		transitions = append(transitions, TransitionDefinition{
			EntityType:   domain.EntityTypeClient,
			FromStates:   []domain.Status{happy[i]},
			ToState:      happy[i-1],
			AllowedRoles: managers,
		})
	}
	transitions = append(transitions,
		TransitionDefinition{
			EntityType: domain.EntityTypeClient,
			FromStates: []domain.Status{
				domain.StatusNewLead,
				domain.StatusContacted,
				domain.StatusQualification,
				domain.StatusApproved,
			},
			ToState:      domain.StatusRejected,
			AllowedRoles: managers,
			Override:     true,
		},
		TransitionDefinition{
			EntityType:   domain.EntityTypeClient,
			FromStates:   []domain.Status{domain.StatusRejected},
			ToState:      domain.StatusNewLead,
			AllowedRoles: []string{domain.RoleAdmin},
			Override:     true,
		},
	)

	return Definition{
		EntityType:  domain.EntityTypeClient,
		HappyPath:   happy,
		Initial:     domain.StatusNewLead,
		Branches:    []domain.Status{domain.StatusRejected},
		Transitions: transitions,
	}
}

func brokerPipeline() Definition {
	happy := []domain.Status{
		domain.StatusRegistered,
		domain.StatusValidated,
		domain.StatusActive,
	}
	admins := []string{domain.RoleAdmin}

	transitions := []TransitionDefinition{
		{
			EntityType:   domain.EntityTypeBroker,
			FromStates:   []domain.Status{domain.StatusRegistered},
			ToState:      domain.StatusValidated,
			AllowedRoles: admins,
		},
		{
			EntityType:   domain.EntityTypeBroker,
			FromStates:   []domain.Status{domain.StatusValidated},
			ToState:      domain.StatusActive,
			AllowedRoles: admins,
		},
		{
			EntityType:   domain.EntityTypeBroker,
			FromStates:   []domain.Status{domain.StatusActive},
			ToState:      domain.StatusSuspended,
			AllowedRoles: admins,
			Override:     true,
		},
		{
			EntityType:   domain.EntityTypeBroker,
			FromStates:   []domain.Status{domain.StatusSuspended},
			ToState:      domain.StatusActive,
			AllowedRoles: admins,
			Override:     true,
		},
	}

	return Definition{
		EntityType:  domain.EntityTypeBroker,
		HappyPath:   happy,
		Initial:     domain.StatusRegistered,
		Branches:    []domain.Status{domain.StatusSuspended},
		Transitions: transitions,
	}
}

func cardPipeline() Definition {
	happy := []domain.Status{
		domain.StatusUnderReview,
		domain.StatusAccepted,
		domain.StatusAssigned,
	}

	transitions := []TransitionDefinition{
		{
			EntityType:    domain.EntityTypeCard,
			FromStates:    []domain.Status{domain.StatusUnderReview},
			ToState:       domain.StatusAccepted,
			AllowedRoles:  []string{domain.RoleAdmin},
			Preconditions: []string{CheckCardConfigComplete},
		},
		{
			EntityType:   domain.EntityTypeCard,
			FromStates:   []domain.Status{domain.StatusAccepted},
			ToState:      domain.StatusAssigned,
			AllowedRoles: []string{domain.RoleManager, domain.RoleAdmin},
		},
		{
			EntityType:   domain.EntityTypeCard,
			FromStates:   []domain.Status{domain.StatusUnderReview, domain.StatusAccepted},
			ToState:      domain.StatusRejected,
			AllowedRoles: []string{domain.RoleAdmin},
			Override:     true,
		},
	}

	return Definition{
		EntityType:  domain.EntityTypeCard,
		HappyPath:   happy,
		Initial:     domain.StatusUnderReview,
		Terminals:   []domain.Status{domain.StatusAssigned, domain.StatusRejected},
		Branches:    []domain.Status{domain.StatusRejected},
		Transitions: transitions,
	}
}

// Definition returns the pipeline for an entity type.
func (r *Registry) Definition(entityType domain.EntityType) (Definition, bool) {
	def, ok := r.defs[entityType]
	return def, ok
}

// EntityTypes lists the registered pipelines.
func (r *Registry) EntityTypes() []domain.EntityType {
	return []domain.EntityType{
		domain.EntityTypeClient,
		domain.EntityTypeBroker,
		domain.EntityTypeCard,
	}
}

// InitialState returns the state new entities are created in.
func (r *Registry) InitialState(entityType domain.EntityType) (domain.Status, bool) {
	def, ok := r.defs[entityType]
	if !ok {
		return "", false
	}
	return def.Initial, true
}

// IsTerminal reports whether status is a declared terminal state.
func (r *Registry) IsTerminal(entityType domain.EntityType, status domain.Status) bool {
	def, ok := r.defs[entityType]
	if !ok {
		return false
	}
	for _, s := range def.Terminals {
		if s == status {
			return true
		}
	}
	return false
}

// ValidState reports whether status belongs to the pipeline's state set.
func (r *Registry) ValidState(entityType domain.EntityType, status domain.Status) bool {
	def, ok := r.defs[entityType]
	if !ok {
		return false
	}
	for _, s := range def.States() {
		if s == status {
			return true
		}
	}
	return false
}

// NextStates returns the ordinary forward edges out of status.
func (r *Registry) NextStates(entityType domain.EntityType, status domain.Status) []domain.Status {
	return r.ordinaryEdges(entityType, status, +1)
}

// PrevStates returns the ordinary backward edges out of status.
func (r *Registry) PrevStates(entityType domain.EntityType, status domain.Status) []domain.Status {
	return r.ordinaryEdges(entityType, status, -1)
}

func (r *Registry) ordinaryEdges(entityType domain.EntityType, status domain.Status, direction int) []domain.Status {
	def, ok := r.defs[entityType]
	if !ok {
		return nil
	}
	fromIdx := def.happyIndex(status)
	if fromIdx < 0 {
		return nil
	}
	out := make([]domain.Status, 0, 1)
	for _, t := range def.Transitions {
		if t.Override || !t.allowsFrom(status) {
			continue
		}
		toIdx := def.happyIndex(t.ToState)
		if toIdx < 0 {
			continue
		}
		if toIdx-fromIdx == direction {
			out = append(out, t.ToState)
		}
	}
	return out
}

// OverrideEdges returns the override targets reachable from status.
func (r *Registry) OverrideEdges(entityType domain.EntityType, status domain.Status) []domain.Status {
	def, ok := r.defs[entityType]
	if !ok {
		return nil
	}
	out := make([]domain.Status, 0, 1)
	for _, t := range def.Transitions {
		if t.Override && t.allowsFrom(status) {
			out = append(out, t.ToState)
		}
	}
	return out
}

// Find returns the declared edge matching (from, to), ordinary edges
// taking precedence when both could match.
func (r *Registry) Find(entityType domain.EntityType, from, to domain.Status) (TransitionDefinition, bool) {
	def, ok := r.defs[entityType]
	if !ok {
		return TransitionDefinition{}, false
	}
	for _, t := range def.Transitions {
		if !t.Override && t.allowsFrom(from) && t.ToState == to {
			return t, true
		}
	}
	for _, t := range def.Transitions {
		if t.Override && t.allowsFrom(from) && t.ToState == to {
			return t, true
		}
	}
	return TransitionDefinition{}, false
}
