package domain

import (
	"errors"
	"strings"
	"time"
)

// EntityType identifies which pipeline an entity belongs to.
type EntityType string

const (
	EntityTypeClient EntityType = "client"
	EntityTypeBroker EntityType = "broker"
	EntityTypeCard   EntityType = "card"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeClient, EntityTypeBroker, EntityTypeCard:
		return true
	default:
		return false
	}
}

// ParseEntityType maps free-form input to a canonical entity type.
func ParseEntityType(value string) (EntityType, bool) {
	t := EntityType(strings.ToLower(strings.TrimSpace(value)))
	return t, t.Valid()
}

// Status is a pipeline state. The set of valid values depends on the
// entity type; membership is owned by the pipeline registry.
type Status string

// Client pipeline states.
const (
	StatusNewLead       Status = "new_lead"
	StatusContacted     Status = "contacted"
	StatusQualification Status = "qualification"
	StatusApproved      Status = "approved"
	StatusActive        Status = "active"
	StatusRejected      Status = "rejected"
)

// Broker pipeline states. StatusActive is shared with the client pipeline.
const (
	StatusRegistered Status = "registered"
	StatusValidated  Status = "validated"
	StatusSuspended  Status = "suspended"
)

// Card pipeline states. StatusRejected is shared with the client pipeline.
const (
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusAssigned    Status = "assigned"
)

// Actor is the authenticated principal attempting a transition. The
// engine never authenticates; the role arrives from the auth boundary.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("actor id is required")
	}
	if strings.TrimSpace(a.Role) == "" {
		return errors.New("actor role is required")
	}
	return nil
}

// PipelineEntity is a record moving through a pipeline. Status and
// Version are mutated only by the transition executor; Version is the
// sole concurrency token. Archived entities accept no transitions.
type PipelineEntity struct {
	ID         string
	EntityType EntityType
	Status     Status
	Version    int64
	Archived   bool
	Owner      string
	Metadata   Metadata
	CreatedAt  time.Time
	CreatedBy  string
	UpdatedAt  time.Time
}

func (e PipelineEntity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("entity id is required")
	}
	if !e.EntityType.Valid() {
		return errors.New("entity type is invalid")
	}
	if strings.TrimSpace(string(e.Status)) == "" {
		return errors.New("status is required")
	}
	if e.Version < 0 {
		return errors.New("version must be >= 0")
	}
	return nil
}

// MetadataNumber extracts a numeric metadata field. JSON decoding
// yields float64; integers stored directly are also accepted.
func (e PipelineEntity) MetadataNumber(key string) (float64, bool) {
	if e.Metadata == nil {
		return 0, false
	}
	switch v := e.Metadata[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
