package domain

import (
	"errors"
	"strings"
	"time"
)

// TransitionRecord is an immutable audit entry. Exactly one record is
// written per successful transition, in the same unit of work as the
// status change; records are never mutated or deleted.
type TransitionRecord struct {
	RecordID   int64
	EntityID   string
	EntityType EntityType
	FromStatus Status
	ToStatus   Status
	ActorID    string
	ActorRole  string
	Reason     string
	RequestID  string
	OccurredAt time.Time
}

func (r TransitionRecord) Validate() error {
	if strings.TrimSpace(r.EntityID) == "" {
		return errors.New("entity id is required")
	}
	if !r.EntityType.Valid() {
		return errors.New("entity type is invalid")
	}
	if strings.TrimSpace(string(r.FromStatus)) == "" {
		return errors.New("from status is required")
	}
	if strings.TrimSpace(string(r.ToStatus)) == "" {
		return errors.New("to status is required")
	}
	if strings.TrimSpace(r.ActorID) == "" {
		return errors.New("actor id is required")
	}
	if strings.TrimSpace(r.ActorRole) == "" {
		return errors.New("actor role is required")
	}
	if r.OccurredAt.IsZero() {
		return errors.New("occurred_at is required")
	}
	return nil
}
