package repo

import (
	"context"
	"errors"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

var (
	// ErrNotFound indicates the entity reference did not resolve.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict indicates another transition committed first.
	ErrVersionConflict = errors.New("version conflict")
)

// EntityFilter narrows List queries.
type EntityFilter struct {
	EntityType domain.EntityType
	Status     domain.Status
	Archived   *bool
	CreatedBy  string
	Limit      int
}

// EntityRepository manages pipeline entities. ApplyTransition and
// Archive are compare-and-swap writes: they succeed only against the
// expected version, bump it by exactly one, and append the transition
// record in the same unit of work. Status is never written through any
// other path.
type EntityRepository interface {
	Create(ctx context.Context, entity domain.PipelineEntity) error
	Get(ctx context.Context, entityType domain.EntityType, id string) (domain.PipelineEntity, error)
	List(ctx context.Context, filter EntityFilter) ([]domain.PipelineEntity, error)

	// ApplyTransition moves record.EntityID to record.ToStatus iff the
	// stored version equals expectedVersion and the entity is not
	// archived. Returns the new version, ErrVersionConflict, or
	// ErrNotFound.
	ApplyTransition(ctx context.Context, expectedVersion int64, record domain.TransitionRecord) (int64, error)

	// Archive freezes the entity permanently, with the same version
	// discipline and its own trail record.
	Archive(ctx context.Context, expectedVersion int64, record domain.TransitionRecord) (int64, error)
}

// TransitionTrail reads the append-only transition history. Writes
// happen only inside EntityRepository's transactional methods.
type TransitionTrail interface {
	History(ctx context.Context, entityID string, limit, offset int) ([]domain.TransitionRecord, error)
}
