package transitions

import (
	"context"
	"testing"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

func TestProposeMove_SameColumnIsNoOp(t *testing.T) {
	// No entity exists at all: a same-column drop must not touch
	// persistence, so it cannot even notice.
	store := newFakeEntityRepo()
	svc := newTestService(t, store)
	manager := domain.Actor{ID: "m-1", Role: domain.RoleManager}

	moved, err := svc.ProposeMove(context.Background(), domain.EntityTypeClient, "c-1", domain.StatusContacted, domain.StatusContacted, manager, 3, "req-1")
	if err != nil {
		t.Fatalf("ProposeMove() err=%v", err)
	}
	if !moved.NoOp || !moved.OK() || moved.NewVersion != 3 {
		t.Fatalf("moved=%+v, want no-op success at caller's version", moved)
	}
	if store.trailLen() != 0 {
		t.Fatalf("trail=%d records, want 0", store.trailLen())
	}
}

func TestProposeMove_CrossColumn(t *testing.T) {
	store := newFakeEntityRepo()
	svc := newTestService(t, store)
	manager := domain.Actor{ID: "m-1", Role: domain.RoleManager}
	mustCreate(t, svc, domain.EntityTypeClient, "c-1", nil)

	moved, err := svc.ProposeMove(context.Background(), domain.EntityTypeClient, "c-1", domain.StatusNewLead, domain.StatusContacted, manager, 0, "req-1")
	if err != nil {
		t.Fatalf("ProposeMove() err=%v", err)
	}
	if !moved.OK() || moved.NewVersion != 1 || moved.NoOp {
		t.Fatalf("moved=%+v, want committed move", moved)
	}
	if moved.PriorStatus != domain.StatusNewLead {
		t.Fatalf("prior status=%s, want new_lead", moved.PriorStatus)
	}
}

func TestProposeMove_DeniedReportsPriorColumn(t *testing.T) {
	store := newFakeEntityRepo()
	svc := newTestService(t, store)
	broker := domain.Actor{ID: "b-1", Role: domain.RoleBroker}
	mustCreate(t, svc, domain.EntityTypeClient, "c-1", nil)

	moved, err := svc.ProposeMove(context.Background(), domain.EntityTypeClient, "c-1", domain.StatusNewLead, domain.StatusContacted, broker, 0, "req-1")
	if err != nil {
		t.Fatalf("ProposeMove() err=%v", err)
	}
	if moved.Kind != KindUnauthorized {
		t.Fatalf("moved=%+v, want unauthorized", moved)
	}
	// The UI puts the card back where it came from.
	if moved.PriorStatus != domain.StatusNewLead {
		t.Fatalf("prior status=%s, want new_lead", moved.PriorStatus)
	}
}

func TestProposeMove_StageSkipDenied(t *testing.T) {
	store := newFakeEntityRepo()
	svc := newTestService(t, store)
	manager := domain.Actor{ID: "m-1", Role: domain.RoleManager}
	mustCreate(t, svc, domain.EntityTypeClient, "c-1", nil)

	moved, err := svc.ProposeMove(context.Background(), domain.EntityTypeClient, "c-1", domain.StatusNewLead, domain.StatusApproved, manager, 0, "req-1")
	if err != nil {
		t.Fatalf("ProposeMove() err=%v", err)
	}
	if moved.Kind != KindInvalidTransition {
		t.Fatalf("moved=%+v, want invalid_transition", moved)
	}
}
