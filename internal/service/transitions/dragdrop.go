package transitions

import (
	"context"
	"errors"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

// MoveResult is the outcome of a board drag gesture. PriorStatus is
// the column the card came from; on any failure the caller must put
// the card back there - the adapter holds no UI state.
type MoveResult struct {
	Result
	PriorStatus domain.Status
	NoOp        bool
}

// ProposeMove translates a completed drag gesture into at most one
// transition. Dropping a card onto its own column is an idempotent
// success and touches neither persistence nor the trail.
func (s *Service) ProposeMove(ctx context.Context, entityType domain.EntityType, id string, fromColumn, toColumn domain.Status, actor domain.Actor, expectedVersion int64, requestID string) (MoveResult, error) {
	if s == nil {
		return MoveResult{}, errors.New("service not initialized")
	}
	if fromColumn == toColumn {
		return MoveResult{
			Result: Result{
				Kind:       KindSuccess,
				NewVersion: expectedVersion,
				FromStatus: fromColumn,
				ToStatus:   toColumn,
			},
			PriorStatus: fromColumn,
			NoOp:        true,
		}, nil
	}

	result, err := s.AttemptTransition(ctx, entityType, id, toColumn, actor, expectedVersion, "", requestID)
	if err != nil {
		return MoveResult{PriorStatus: fromColumn}, err
	}
	return MoveResult{Result: result, PriorStatus: fromColumn}, nil
}
