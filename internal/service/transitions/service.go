package transitions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
	"github.com/tradeline-labs/tradeline-go/internal/pipeline"
	"github.com/tradeline-labs/tradeline-go/internal/repo"
)

// Kind classifies the outcome of a transition attempt. These are data,
// not errors: every kind is recoverable by re-reading and retrying.
type Kind string

const (
	KindSuccess            Kind = "success"
	KindInvalidTransition  Kind = "invalid_transition"
	KindUnauthorized       Kind = "unauthorized"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
	KindNotFound           Kind = "not_found"
	KindArchived           Kind = "archived"
)

// Message returns the user-facing explanation for a failure kind.
func (k Kind) Message() string {
	switch k {
	case KindSuccess:
		return "ok"
	case KindInvalidTransition:
		return "that move is not allowed from the record's current stage"
	case KindUnauthorized:
		return "your role is not permitted to make this move"
	case KindPreconditionFailed:
		return "the record is missing required information for this move"
	case KindConflict:
		return "someone else just moved this record - refresh and retry"
	case KindNotFound:
		return "the record no longer exists"
	case KindArchived:
		return "archived records cannot be moved"
	default:
		return "unknown outcome"
	}
}

// Result reports one transition attempt.
type Result struct {
	Kind       Kind
	NewVersion int64
	CheckName  string
	FromStatus domain.Status
	ToStatus   domain.Status
}

func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// Service is the single entry point permitted to mutate entity status.
type Service struct {
	entities repo.EntityRepository
	registry *pipeline.Registry
	guard    *pipeline.Guard
	now      func() time.Time
}

func New(entities repo.EntityRepository, registry *pipeline.Registry, guard *pipeline.Guard) *Service {
	if entities == nil || registry == nil || guard == nil {
		return nil
	}
	return &Service{
		entities: entities,
		registry: registry,
		guard:    guard,
		now:      time.Now,
	}
}

// CreateParams describes a new entity; status and version are owned by
// the pipeline and are not caller inputs.
type CreateParams struct {
	ID        string
	Owner     string
	Metadata  domain.Metadata
	CreatedBy string
	RequestID string
}

// Create inserts an entity in its pipeline's initial state at version 0.
func (s *Service) Create(ctx context.Context, entityType domain.EntityType, params CreateParams) (domain.PipelineEntity, error) {
	if s == nil {
		return domain.PipelineEntity{}, errors.New("service not initialized")
	}
	initial, ok := s.registry.InitialState(entityType)
	if !ok {
		return domain.PipelineEntity{}, fmt.Errorf("no pipeline registered for %q", entityType)
	}
	now := s.now().UTC()
	entity := domain.PipelineEntity{
		ID:         strings.TrimSpace(params.ID),
		EntityType: entityType,
		Status:     initial,
		Version:    0,
		Owner:      strings.TrimSpace(params.Owner),
		Metadata:   params.Metadata.Clone(),
		CreatedAt:  now,
		CreatedBy:  strings.TrimSpace(params.CreatedBy),
		UpdatedAt:  now,
	}
	if err := entity.Validate(); err != nil {
		return domain.PipelineEntity{}, err
	}
	if err := s.entities.Create(ctx, entity); err != nil {
		return domain.PipelineEntity{}, err
	}
	return entity, nil
}

// Get returns the current entity snapshot.
func (s *Service) Get(ctx context.Context, entityType domain.EntityType, id string) (domain.PipelineEntity, error) {
	return s.entities.Get(ctx, entityType, id)
}

// List returns entity snapshots matching the filter.
func (s *Service) List(ctx context.Context, filter repo.EntityFilter) ([]domain.PipelineEntity, error) {
	return s.entities.List(ctx, filter)
}

// AttemptTransition applies one validated transition. Order matters:
// the version check runs before the guard so a stale caller always
// receives a retry signal instead of a guard verdict computed against
// state it has not seen.
func (s *Service) AttemptTransition(ctx context.Context, entityType domain.EntityType, id string, target domain.Status, actor domain.Actor, expectedVersion int64, reason, requestID string) (Result, error) {
	if s == nil {
		return Result{}, errors.New("service not initialized")
	}
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}

	entity, err := s.entities.Get(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Result{Kind: KindNotFound, ToStatus: target}, nil
		}
		return Result{}, err
	}
	if entity.Version != expectedVersion {
		return Result{Kind: KindConflict, FromStatus: entity.Status, ToStatus: target}, nil
	}

	decision, err := s.guard.Evaluate(ctx, entity, actor, target)
	if err != nil {
		return Result{}, err
	}
	if !decision.Allowed {
		return denialResult(decision, entity.Status, target), nil
	}

	record := domain.TransitionRecord{
		EntityID:   entity.ID,
		EntityType: entity.EntityType,
		FromStatus: entity.Status,
		ToStatus:   target,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Reason:     strings.TrimSpace(reason),
		RequestID:  strings.TrimSpace(requestID),
		OccurredAt: s.now().UTC(),
	}
	newVersion, err := s.entities.ApplyTransition(ctx, expectedVersion, record)
	if err != nil {
		// A concurrent writer can still win between the read above and
		// the swap; that race resolves here.
		if errors.Is(err, repo.ErrVersionConflict) {
			return Result{Kind: KindConflict, FromStatus: entity.Status, ToStatus: target}, nil
		}
		if errors.Is(err, repo.ErrNotFound) {
			return Result{Kind: KindNotFound, ToStatus: target}, nil
		}
		return Result{}, err
	}
	return Result{
		Kind:       KindSuccess,
		NewVersion: newVersion,
		FromStatus: entity.Status,
		ToStatus:   target,
	}, nil
}

// Archive freezes an entity permanently. The status stays as-is; the
// archived flag blocks every further transition.
func (s *Service) Archive(ctx context.Context, entityType domain.EntityType, id string, actor domain.Actor, expectedVersion int64, requestID string) (Result, error) {
	if s == nil {
		return Result{}, errors.New("service not initialized")
	}
	if err := actor.Validate(); err != nil {
		return Result{}, err
	}
	if !domain.RoleAtLeast(actor.Role, domain.RoleManager) {
		return Result{Kind: KindUnauthorized}, nil
	}

	entity, err := s.entities.Get(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Result{Kind: KindNotFound}, nil
		}
		return Result{}, err
	}
	if entity.Archived {
		return Result{Kind: KindArchived, FromStatus: entity.Status}, nil
	}
	if entity.Version != expectedVersion {
		return Result{Kind: KindConflict, FromStatus: entity.Status}, nil
	}

	record := domain.TransitionRecord{
		EntityID:   entity.ID,
		EntityType: entity.EntityType,
		FromStatus: entity.Status,
		ToStatus:   entity.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Reason:     "archived",
		RequestID:  strings.TrimSpace(requestID),
		OccurredAt: s.now().UTC(),
	}
	newVersion, err := s.entities.Archive(ctx, expectedVersion, record)
	if err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return Result{Kind: KindConflict, FromStatus: entity.Status}, nil
		}
		if errors.Is(err, repo.ErrNotFound) {
			return Result{Kind: KindNotFound}, nil
		}
		return Result{}, err
	}
	return Result{
		Kind:       KindSuccess,
		NewVersion: newVersion,
		FromStatus: entity.Status,
		ToStatus:   entity.Status,
	}, nil
}

func denialResult(decision pipeline.Decision, from, to domain.Status) Result {
	result := Result{FromStatus: from, ToStatus: to, CheckName: decision.CheckName}
	switch decision.Deny {
	case pipeline.DenyArchived:
		result.Kind = KindArchived
	case pipeline.DenyUnauthorized:
		result.Kind = KindUnauthorized
	case pipeline.DenyPreconditionFailed:
		result.Kind = KindPreconditionFailed
	default:
		result.Kind = KindInvalidTransition
	}
	return result
}
