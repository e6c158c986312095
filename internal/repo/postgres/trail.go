package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

const insertTransitionRecordQuery = `INSERT INTO transition_records (
	entity_id,
	entity_type,
	from_status,
	to_status,
	actor_id,
	actor_role,
	reason,
	request_id,
	occurred_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING record_id`

const selectHistoryQuery = `SELECT record_id, entity_id, entity_type, from_status, to_status, actor_id, actor_role, reason, request_id, occurred_at
FROM transition_records
WHERE entity_id = $1
ORDER BY record_id ASC`

func insertTransitionRecord(ctx context.Context, q queryer, record domain.TransitionRecord) (int64, error) {
	if err := record.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := q.QueryRowContext(
		ctx,
		insertTransitionRecordQuery,
		strings.TrimSpace(record.EntityID),
		string(record.EntityType),
		string(record.FromStatus),
		string(record.ToStatus),
		strings.TrimSpace(record.ActorID),
		strings.TrimSpace(record.ActorRole),
		nullIfEmpty(strings.TrimSpace(record.Reason)),
		nullIfEmpty(strings.TrimSpace(record.RequestID)),
		record.OccurredAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transition record: %w", err)
	}
	return id, nil
}

// TrailStore reads the append-only transition history. There is no
// update or delete path, by construction.
type TrailStore struct {
	db DB
}

func NewTrailStore(db DB) *TrailStore {
	if db == nil {
		return nil
	}
	return &TrailStore{db: db}
}

// History returns an entity's transition records oldest first.
func (s *TrailStore) History(ctx context.Context, entityID string, limit, offset int) ([]domain.TransitionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("trail store not initialized")
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}

	query := selectHistoryQuery
	args := []any{entityID}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.TransitionRecord, 0)
	for rows.Next() {
		var record domain.TransitionRecord
		var reason, requestID sql.NullString
		if err := rows.Scan(
			&record.RecordID,
			&record.EntityID,
			&record.EntityType,
			&record.FromStatus,
			&record.ToStatus,
			&record.ActorID,
			&record.ActorRole,
			&reason,
			&requestID,
			&record.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan transition record: %w", err)
		}
		record.Reason = reason.String
		record.RequestID = requestID.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}
