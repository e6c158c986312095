package domain

import (
	"testing"
	"time"
)

func TestParseEntityType(t *testing.T) {
	for _, raw := range []string{"client", "broker", "card"} {
		if _, ok := ParseEntityType(raw); !ok {
			t.Fatalf("ParseEntityType(%q) not ok", raw)
		}
	}
	if _, ok := ParseEntityType("vendor"); ok {
		t.Fatalf("expected vendor to be rejected")
	}
	if _, ok := ParseEntityType(" client "); !ok {
		t.Fatalf("expected surrounding whitespace to be tolerated")
	}
}

func TestPipelineEntity_Validate(t *testing.T) {
	now := time.Now().UTC()
	valid := PipelineEntity{
		ID:         "c-1",
		EntityType: EntityTypeClient,
		Status:     StatusNewLead,
		CreatedAt:  now,
		CreatedBy:  "m-1",
		UpdatedAt:  now,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	missingID := valid
	missingID.ID = " "
	if err := missingID.Validate(); err == nil {
		t.Fatalf("expected error for empty id")
	}

	badType := valid
	badType.EntityType = "vendor"
	if err := badType.Validate(); err == nil {
		t.Fatalf("expected error for unknown entity type")
	}
}

func TestMetadataNumber(t *testing.T) {
	entity := PipelineEntity{Metadata: Metadata{
		"payout":  float64(150),
		"cycles":  2,
		"label":   "prime",
		"spots":   int64(5),
		"invalid": []string{"x"},
	}}

	cases := []struct {
		key  string
		want float64
		ok   bool
	}{
		{"payout", 150, true},
		{"cycles", 2, true},
		{"spots", 5, true},
		{"label", 0, false},
		{"invalid", 0, false},
		{"missing", 0, false},
	}
	for _, tc := range cases {
		got, ok := entity.MetadataNumber(tc.key)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("MetadataNumber(%q)=(%v,%v), want (%v,%v)", tc.key, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMetadata_Clone(t *testing.T) {
	original := Metadata{"deal_value": float64(100)}
	clone := original.Clone()
	clone["deal_value"] = float64(999)
	if original["deal_value"] != float64(100) {
		t.Fatalf("clone aliases the original map")
	}
	if clone := Metadata(nil).Clone(); clone == nil || len(clone) != 0 {
		t.Fatalf("nil metadata should clone to an empty map, got %v", clone)
	}
}

func TestRoleLevels(t *testing.T) {
	if !RoleAtLeast(RoleAdmin, RoleManager) {
		t.Fatalf("admin should outrank manager")
	}
	if RoleAtLeast(RoleBroker, RoleManager) {
		t.Fatalf("broker should not reach manager")
	}
	if RoleAtLeast("stranger", RoleViewer) {
		t.Fatalf("unknown role has no level")
	}
	if RoleLevel(RoleViewer) >= RoleLevel(RoleBroker) {
		t.Fatalf("viewer should rank below broker")
	}
}
