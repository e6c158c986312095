package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
	"github.com/tradeline-labs/tradeline-go/internal/pipeline"
)

type fakeLister struct {
	keys []string
	err  error
}

func (f fakeLister) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		if f.err != nil {
			ch <- minio.ObjectInfo{Err: f.err}
			return
		}
		for _, key := range f.keys {
			if len(opts.Prefix) > 0 && len(key) >= len(opts.Prefix) && key[:len(opts.Prefix)] == opts.Prefix {
				ch <- minio.ObjectInfo{Key: key}
			}
		}
	}()
	return ch
}

func TestKindFromKey(t *testing.T) {
	prefix := ObjectPrefix(domain.EntityTypeClient, "c-1")

	cases := []struct {
		key  string
		kind string
		ok   bool
	}{
		{"client/c-1/ssn_card/front.png", "ssn_card", true},
		{"client/c-1/utility_bill/2026-07.pdf", "utility_bill", true},
		{"client/c-1/orphan.pdf", "", false},
		{"client/c-2/ssn_card/front.png", "", false},
		{"client/c-1//file.pdf", "", false},
	}
	for _, tc := range cases {
		kind, ok := KindFromKey(prefix, tc.key)
		if kind != tc.kind || ok != tc.ok {
			t.Fatalf("KindFromKey(%q)=(%q,%v), want (%q,%v)", tc.key, kind, ok, tc.kind, tc.ok)
		}
	}
}

func TestVault_Missing(t *testing.T) {
	rules := pipeline.DefaultRules()
	vault := NewVault(fakeLister{keys: []string{
		"client/c-1/drivers_license/front.jpg",
		"client/c-1/ssn_card/card.png",
		"client/c-1/bank_statement/jan.pdf",
		"client/c-1/bank_statement/feb.pdf",
	}}, "documents", rules)

	entity := domain.PipelineEntity{ID: "c-1", EntityType: domain.EntityTypeClient, Status: domain.StatusQualification}
	missing, err := vault.Missing(context.Background(), entity)
	if err != nil {
		t.Fatalf("Missing() err=%v", err)
	}
	want := []string{"credit_report", "utility_bill"}
	if len(missing) != len(want) {
		t.Fatalf("missing=%v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("missing=%v, want %v", missing, want)
		}
	}
}

func TestVault_Complete(t *testing.T) {
	rules := pipeline.Rules{
		Schema:            pipeline.RulesSchemaV1,
		RequiredDocuments: map[string][]string{"client": {"ssn_card"}},
	}
	vault := NewVault(fakeLister{keys: []string{"client/c-1/ssn_card/card.png"}}, "documents", rules)

	entity := domain.PipelineEntity{ID: "c-1", EntityType: domain.EntityTypeClient, Status: domain.StatusQualification}
	ok, err := vault.Complete(context.Background(), entity)
	if err != nil {
		t.Fatalf("Complete() err=%v", err)
	}
	if !ok {
		t.Fatalf("expected documents complete")
	}

	other := domain.PipelineEntity{ID: "c-2", EntityType: domain.EntityTypeClient, Status: domain.StatusQualification}
	ok, err = vault.Complete(context.Background(), other)
	if err != nil {
		t.Fatalf("Complete() err=%v", err)
	}
	if ok {
		t.Fatalf("expected documents incomplete for entity with no uploads")
	}
}

func TestVault_ListErrorPropagates(t *testing.T) {
	rules := pipeline.Rules{
		Schema:            pipeline.RulesSchemaV1,
		RequiredDocuments: map[string][]string{"client": {"ssn_card"}},
	}
	vault := NewVault(fakeLister{err: errors.New("connection refused")}, "documents", rules)

	entity := domain.PipelineEntity{ID: "c-1", EntityType: domain.EntityTypeClient, Status: domain.StatusQualification}
	if _, err := vault.Complete(context.Background(), entity); err == nil {
		t.Fatalf("expected listing error to propagate")
	}
}

func TestVault_Complete_NoGate(t *testing.T) {
	vault := NewVault(fakeLister{}, "documents", pipeline.DefaultRules())
	entity := domain.PipelineEntity{ID: "b-1", EntityType: domain.EntityTypeBroker, Status: domain.StatusRegistered}
	ok, err := vault.Complete(context.Background(), entity)
	if err != nil {
		t.Fatalf("Complete() err=%v", err)
	}
	if !ok {
		t.Fatalf("entity type without required documents should pass")
	}
}
