package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
	"github.com/tradeline-labs/tradeline-go/internal/repo"
)

const insertEntityQuery = `INSERT INTO pipeline_entities (
	entity_id,
	entity_type,
	status,
	version,
	archived,
	owner,
	metadata,
	created_at,
	created_by,
	updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

const selectEntityQuery = `SELECT entity_id, entity_type, status, version, archived, owner, metadata, created_at, created_by, updated_at
FROM pipeline_entities
WHERE entity_type = $1 AND entity_id = $2`

const casTransitionQuery = `UPDATE pipeline_entities
SET status = $1, version = version + 1, updated_at = $2
WHERE entity_type = $3 AND entity_id = $4 AND version = $5 AND archived = FALSE
RETURNING version`

const casArchiveQuery = `UPDATE pipeline_entities
SET archived = TRUE, version = version + 1, updated_at = $1
WHERE entity_type = $2 AND entity_id = $3 AND version = $4 AND archived = FALSE
RETURNING version`

const selectEntityVersionQuery = `SELECT version FROM pipeline_entities
WHERE entity_type = $1 AND entity_id = $2`

// EntityStore is the postgres EntityRepository. Transition and archive
// writes run the CAS update and the trail insert in one transaction.
type EntityStore struct {
	db DB
}

func NewEntityStore(db DB) *EntityStore {
	if db == nil {
		return nil
	}
	return &EntityStore{db: db}
}

func (s *EntityStore) Create(ctx context.Context, entity domain.PipelineEntity) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("entity store not initialized")
	}
	if err := entity.Validate(); err != nil {
		return err
	}
	metadataJSON, err := encodeMetadata(entity.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	createdAt := normalizeTime(entity.CreatedAt)
	updatedAt := normalizeTime(entity.UpdatedAt)
	_, err = s.db.ExecContext(
		ctx,
		insertEntityQuery,
		strings.TrimSpace(entity.ID),
		string(entity.EntityType),
		string(entity.Status),
		entity.Version,
		entity.Archived,
		nullIfEmpty(strings.TrimSpace(entity.Owner)),
		metadataJSON,
		createdAt,
		strings.TrimSpace(entity.CreatedBy),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *EntityStore) Get(ctx context.Context, entityType domain.EntityType, id string) (domain.PipelineEntity, error) {
	if s == nil || s.db == nil {
		return domain.PipelineEntity{}, fmt.Errorf("entity store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PipelineEntity{}, fmt.Errorf("entity id is required")
	}
	if !entityType.Valid() {
		return domain.PipelineEntity{}, fmt.Errorf("entity type is invalid")
	}
	row := s.db.QueryRowContext(ctx, selectEntityQuery, string(entityType), id)
	return scanEntity(row)
}

func (s *EntityStore) List(ctx context.Context, filter repo.EntityFilter) ([]domain.PipelineEntity, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("entity store not initialized")
	}
	if !filter.EntityType.Valid() {
		return nil, fmt.Errorf("entity type is required")
	}

	clauses := make([]string, 0, 4)
	args := make([]any, 0, 5)

	args = append(args, string(filter.EntityType))
	clauses = append(clauses, fmt.Sprintf("entity_type = $%d", len(args)))
	if strings.TrimSpace(string(filter.Status)) != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		clauses = append(clauses, fmt.Sprintf("archived = $%d", len(args)))
	}
	if strings.TrimSpace(filter.CreatedBy) != "" {
		args = append(args, strings.TrimSpace(filter.CreatedBy))
		clauses = append(clauses, fmt.Sprintf("created_by = $%d", len(args)))
	}

	query := `SELECT entity_id, entity_type, status, version, archived, owner, metadata, created_at, created_by, updated_at FROM pipeline_entities`
	query += " WHERE " + strings.Join(clauses, " AND ")
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	entities := make([]domain.PipelineEntity, 0)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return entities, nil
}

func (s *EntityStore) ApplyTransition(ctx context.Context, expectedVersion int64, record domain.TransitionRecord) (int64, error) {
	return s.compareAndSwap(ctx, casTransitionQuery, []any{
		string(record.ToStatus),
	}, expectedVersion, record)
}

func (s *EntityStore) Archive(ctx context.Context, expectedVersion int64, record domain.TransitionRecord) (int64, error) {
	return s.compareAndSwap(ctx, casArchiveQuery, nil, expectedVersion, record)
}

// compareAndSwap runs the versioned update and the trail insert in one
// transaction so the status change and its audit record commit or roll
// back together.
func (s *EntityStore) compareAndSwap(ctx context.Context, query string, leadingArgs []any, expectedVersion int64, record domain.TransitionRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("entity store not initialized")
	}
	if err := record.Validate(); err != nil {
		return 0, err
	}
	if expectedVersion < 0 {
		return 0, fmt.Errorf("expected version must be >= 0")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	occurredAt := normalizeTime(record.OccurredAt)
	args := append(leadingArgs,
		occurredAt,
		string(record.EntityType),
		strings.TrimSpace(record.EntityID),
		expectedVersion,
	)

	var newVersion int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&newVersion); err != nil {
		if err == sql.ErrNoRows {
			return 0, s.classifyCASMiss(ctx, record.EntityType, record.EntityID)
		}
		return 0, fmt.Errorf("apply transition: %w", err)
	}

	record.OccurredAt = occurredAt
	if _, err := insertTransitionRecord(ctx, tx, record); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transition: %w", err)
	}
	return newVersion, nil
}

// classifyCASMiss distinguishes a missing entity from a lost race.
// Archived entities report a conflict too: their version can no longer
// match any caller expectation going forward.
func (s *EntityStore) classifyCASMiss(ctx context.Context, entityType domain.EntityType, id string) error {
	var version int64
	err := s.db.QueryRowContext(ctx, selectEntityVersionQuery, string(entityType), strings.TrimSpace(id)).Scan(&version)
	if err == sql.ErrNoRows {
		return repo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("classify transition miss: %w", err)
	}
	return repo.ErrVersionConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (domain.PipelineEntity, error) {
	var entity domain.PipelineEntity
	var owner sql.NullString
	var metadataJSON []byte
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&entity.ID,
		&entity.EntityType,
		&entity.Status,
		&entity.Version,
		&entity.Archived,
		&owner,
		&metadataJSON,
		&createdAt,
		&entity.CreatedBy,
		&updatedAt,
	); err != nil {
		return domain.PipelineEntity{}, handleNotFound(err)
	}
	if owner.Valid {
		entity.Owner = owner.String
	}
	meta, err := decodeMetadata(metadataJSON)
	if err != nil {
		return domain.PipelineEntity{}, fmt.Errorf("decode metadata: %w", err)
	}
	entity.Metadata = meta
	entity.CreatedAt = createdAt
	entity.UpdatedAt = updatedAt
	return entity, nil
}
