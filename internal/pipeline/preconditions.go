package pipeline

import (
	"context"
	"fmt"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

// PreconditionProvider evaluates a named predicate against an entity
// snapshot. Implementations may do I/O (document lookups), so checks
// take a context.
type PreconditionProvider interface {
	Check(ctx context.Context, name string, entity domain.PipelineEntity) (bool, error)
}

// CheckFunc is a single named predicate.
type CheckFunc func(ctx context.Context, entity domain.PipelineEntity) (bool, error)

// ProviderSet is a registry of named precondition checks.
type ProviderSet struct {
	checks map[string]CheckFunc
}

func NewProviderSet() *ProviderSet {
	return &ProviderSet{checks: map[string]CheckFunc{}}
}

func (p *ProviderSet) Register(name string, fn CheckFunc) {
	if p == nil || fn == nil {
		return
	}
	p.checks[name] = fn
}

func (p *ProviderSet) Check(ctx context.Context, name string, entity domain.PipelineEntity) (bool, error) {
	if p == nil {
		return false, fmt.Errorf("provider set not initialized")
	}
	fn, ok := p.checks[name]
	if !ok {
		return false, fmt.Errorf("unknown precondition check %q", name)
	}
	return fn(ctx, entity)
}

// CardConfigComplete builds the check gating card acceptance: every
// listed metadata field must be present and positive. Pure over the
// snapshot, no I/O.
func CardConfigComplete(fields []string) CheckFunc {
	return func(ctx context.Context, entity domain.PipelineEntity) (bool, error) {
		for _, field := range fields {
			v, ok := entity.MetadataNumber(field)
			if !ok || v <= 0 {
				return false, nil
			}
		}
		return true, nil
	}
}
