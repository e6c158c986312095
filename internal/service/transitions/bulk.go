package transitions

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
	"github.com/tradeline-labs/tradeline-go/internal/repo"
)

// defaultBulkParallelism bounds concurrent per-item transitions. Items
// are independently version-checked, so parallelism is safe; the bound
// keeps a large board selection from saturating the database pool.
const defaultBulkParallelism = 8

// BulkItem is the per-entity outcome of a bulk operation.
type BulkItem struct {
	EntityID   string
	Kind       Kind
	NewVersion int64
	CheckName  string
	Detail     string
}

// BulkReport aggregates a bulk operation. Succeeded plus Failed always
// cover every requested entity exactly once.
type BulkReport struct {
	Target    domain.Status
	Succeeded []BulkItem
	Failed    []BulkItem
}

// ApplyToMany applies one target transition to each entity, each with
// its own freshly-read version. There is no cross-item atomicity: one
// entity's failure neither blocks nor rolls back the others, and the
// report is always complete.
func (s *Service) ApplyToMany(ctx context.Context, entityType domain.EntityType, ids []string, target domain.Status, actor domain.Actor, requestID string) BulkReport {
	report := BulkReport{Target: target}
	if s == nil || len(ids) == 0 {
		return report
	}

	items := make([]BulkItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBulkParallelism)
	for i, id := range ids {
		g.Go(func() error {
			items[i] = s.applyOne(gctx, entityType, id, target, actor, requestID)
			return nil
		})
	}
	// Workers never return errors; failures land in their report slot.
	_ = g.Wait()

	for _, item := range items {
		if item.Kind == KindSuccess {
			report.Succeeded = append(report.Succeeded, item)
			continue
		}
		report.Failed = append(report.Failed, item)
	}
	sort.Slice(report.Succeeded, func(i, j int) bool { return report.Succeeded[i].EntityID < report.Succeeded[j].EntityID })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].EntityID < report.Failed[j].EntityID })
	return report
}

func (s *Service) applyOne(ctx context.Context, entityType domain.EntityType, id string, target domain.Status, actor domain.Actor, requestID string) BulkItem {
	item := BulkItem{EntityID: id}

	entity, err := s.entities.Get(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			item.Kind = KindNotFound
			item.Detail = KindNotFound.Message()
			return item
		}
		// Infrastructure failure on this item only; surface it as a
		// retryable entry rather than aborting the batch.
		item.Kind = KindConflict
		item.Detail = err.Error()
		return item
	}

	result, err := s.AttemptTransition(ctx, entityType, id, target, actor, entity.Version, "", requestID)
	if err != nil {
		item.Kind = KindConflict
		item.Detail = err.Error()
		return item
	}
	item.Kind = result.Kind
	item.NewVersion = result.NewVersion
	item.CheckName = result.CheckName
	item.Detail = result.Kind.Message()
	return item
}
