package transitions

import (
	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

// StatusSummary is one Kanban column header: how many cards it holds
// and the sum of an optional numeric field across them.
type StatusSummary struct {
	Count int
	Sum   float64
}

// ValueFunc extracts the numeric field to aggregate; nil means counts
// only.
type ValueFunc func(domain.PipelineEntity) float64

// MetadataValue aggregates a numeric metadata field such as deal_value
// or payout. Entities without the field contribute zero.
func MetadataValue(key string) ValueFunc {
	return func(entity domain.PipelineEntity) float64 {
		v, _ := entity.MetadataNumber(key)
		return v
	}
}

// CountsByStatus is the read-side projection behind dashboard and board
// headers: per-status count and sum over a supplied snapshot list.
// Pure; archived entities are excluded, every other entity is counted
// exactly once.
func CountsByStatus(entities []domain.PipelineEntity, valueOf ValueFunc) map[domain.Status]StatusSummary {
	out := make(map[domain.Status]StatusSummary)
	for _, entity := range entities {
		if entity.Archived {
			continue
		}
		summary := out[entity.Status]
		summary.Count++
		if valueOf != nil {
			summary.Sum += valueOf(entity)
		}
		out[entity.Status] = summary
	}
	return out
}
