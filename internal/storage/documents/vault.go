package documents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
	"github.com/tradeline-labs/tradeline-go/internal/pipeline"
)

// Lister is the slice of the MinIO client the vault needs.
type Lister interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Vault reads the document store to answer one question: does this
// entity have every required document kind on file? Objects are keyed
// <entity_type>/<entity_id>/<kind>/<filename>; a kind counts as on
// file when at least one object sits under its prefix.
type Vault struct {
	store  Lister
	bucket string
	rules  pipeline.Rules
}

func NewVault(store Lister, bucket string, rules pipeline.Rules) *Vault {
	if store == nil || strings.TrimSpace(bucket) == "" {
		return nil
	}
	return &Vault{store: store, bucket: strings.TrimSpace(bucket), rules: rules}
}

// RequiredKinds returns the document kinds the rules demand for the
// entity type. Empty means the type has no document gate.
func (v *Vault) RequiredKinds(entityType domain.EntityType) []string {
	if v == nil {
		return nil
	}
	return v.rules.DocumentKinds(entityType)
}

// UploadedKinds lists the vault under the entity prefix and reports
// every kind with at least one stored object.
func (v *Vault) UploadedKinds(ctx context.Context, entityType domain.EntityType, entityID string) (map[string]bool, error) {
	if v == nil || v.store == nil {
		return nil, errors.New("vault is not configured")
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, errors.New("entity id is required")
	}

	prefix := ObjectPrefix(entityType, entityID)
	kinds := map[string]bool{}
	for info := range v.store.ListObjects(ctx, v.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list documents for %s/%s: %w", entityType, entityID, info.Err)
		}
		if kind, ok := KindFromKey(prefix, info.Key); ok {
			kinds[kind] = true
		}
	}
	return kinds, nil
}

// Missing returns the required kinds the entity has not uploaded yet,
// sorted for stable responses.
func (v *Vault) Missing(ctx context.Context, entity domain.PipelineEntity) ([]string, error) {
	required := v.RequiredKinds(entity.EntityType)
	if len(required) == 0 {
		return nil, nil
	}
	uploaded, err := v.UploadedKinds(ctx, entity.EntityType, entity.ID)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, kind := range required {
		if !uploaded[kind] {
			missing = append(missing, kind)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// Complete is the precondition check wired into the transition guard.
func (v *Vault) Complete(ctx context.Context, entity domain.PipelineEntity) (bool, error) {
	missing, err := v.Missing(ctx, entity)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// ObjectPrefix is the store prefix holding an entity's documents.
func ObjectPrefix(entityType domain.EntityType, entityID string) string {
	return string(entityType) + "/" + strings.TrimSpace(entityID) + "/"
}

// KindFromKey extracts the document kind segment from an object key
// under the given entity prefix. Keys without a kind segment (objects
// written directly under the entity prefix) report false.
func KindFromKey(prefix, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return "", false
	}
	kind, _, ok := strings.Cut(rest, "/")
	if !ok {
		return "", false
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", false
	}
	return kind, true
}
