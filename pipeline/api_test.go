package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
	"github.com/tradeline-labs/tradeline-go/internal/pipeline"
	"github.com/tradeline-labs/tradeline-go/internal/platform/auth"
	"github.com/tradeline-labs/tradeline-go/internal/repo"
	"github.com/tradeline-labs/tradeline-go/internal/service/transitions"
)

type fakeService struct {
	created    []transitions.CreateParams
	getEntity  domain.PipelineEntity
	getErr     error
	listResult []domain.PipelineEntity
	result     transitions.Result
	moveResult transitions.MoveResult
	report     transitions.BulkReport

	lastTarget  domain.Status
	lastActor   domain.Actor
	lastVersion int64
}

func (f *fakeService) Create(ctx context.Context, entityType domain.EntityType, params transitions.CreateParams) (domain.PipelineEntity, error) {
	f.created = append(f.created, params)
	return domain.PipelineEntity{
		ID:         params.ID,
		EntityType: entityType,
		Status:     domain.StatusNewLead,
	}, nil
}

func (f *fakeService) Get(ctx context.Context, entityType domain.EntityType, id string) (domain.PipelineEntity, error) {
	return f.getEntity, f.getErr
}

func (f *fakeService) List(ctx context.Context, filter repo.EntityFilter) ([]domain.PipelineEntity, error) {
	return f.listResult, nil
}

func (f *fakeService) AttemptTransition(ctx context.Context, entityType domain.EntityType, id string, target domain.Status, actor domain.Actor, expectedVersion int64, reason, requestID string) (transitions.Result, error) {
	f.lastTarget = target
	f.lastActor = actor
	f.lastVersion = expectedVersion
	return f.result, nil
}

func (f *fakeService) ProposeMove(ctx context.Context, entityType domain.EntityType, id string, fromColumn, toColumn domain.Status, actor domain.Actor, expectedVersion int64, requestID string) (transitions.MoveResult, error) {
	f.lastTarget = toColumn
	f.lastActor = actor
	f.lastVersion = expectedVersion
	return f.moveResult, nil
}

func (f *fakeService) ApplyToMany(ctx context.Context, entityType domain.EntityType, ids []string, target domain.Status, actor domain.Actor, requestID string) transitions.BulkReport {
	f.lastTarget = target
	f.lastActor = actor
	return f.report
}

func (f *fakeService) Archive(ctx context.Context, entityType domain.EntityType, id string, actor domain.Actor, expectedVersion int64, requestID string) (transitions.Result, error) {
	f.lastActor = actor
	f.lastVersion = expectedVersion
	return f.result, nil
}

type fakeTrail struct {
	records []domain.TransitionRecord
}

func (f *fakeTrail) History(ctx context.Context, entityID string, limit, offset int) ([]domain.TransitionRecord, error) {
	return f.records, nil
}

func newTestAPI(svc *fakeService, trail *fakeTrail) (*pipelineAPI, *http.ServeMux) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	api := newPipelineAPI(logger, svc, trail, pipeline.NewRegistry())
	mux := http.NewServeMux()
	api.register(mux)
	return api, mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body string, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://example.test"+path, reader)
	if len(roles) > 0 {
		identity := auth.Identity{Subject: "u-1", Roles: roles}
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAPI_CreateRequiresManager(t *testing.T) {
	svc := &fakeService{}
	_, mux := newTestAPI(svc, &fakeTrail{})

	rec := doRequest(t, mux, http.MethodPost, "/entities/client", `{"owner":"b-1"}`, domain.RoleBroker)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("broker create status=%d, want 403", rec.Code)
	}
	if len(svc.created) != 0 {
		t.Fatalf("create reached the service despite the role gate")
	}

	rec = doRequest(t, mux, http.MethodPost, "/entities/client", `{"owner":"b-1"}`, domain.RoleManager)
	if rec.Code != http.StatusCreated {
		t.Fatalf("manager create status=%d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 || svc.created[0].ID == "" {
		t.Fatalf("created=%+v, want generated entity id", svc.created)
	}
}

func TestAPI_CreateUnknownType(t *testing.T) {
	_, mux := newTestAPI(&fakeService{}, &fakeTrail{})
	rec := doRequest(t, mux, http.MethodPost, "/entities/vendor", `{}`, domain.RoleAdmin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestAPI_TransitionOutcomeStatusCodes(t *testing.T) {
	cases := []struct {
		kind   transitions.Kind
		status int
	}{
		{transitions.KindSuccess, http.StatusOK},
		{transitions.KindInvalidTransition, http.StatusBadRequest},
		{transitions.KindUnauthorized, http.StatusForbidden},
		{transitions.KindPreconditionFailed, http.StatusUnprocessableEntity},
		{transitions.KindConflict, http.StatusConflict},
		{transitions.KindArchived, http.StatusConflict},
		{transitions.KindNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		svc := &fakeService{result: transitions.Result{Kind: tc.kind}}
		_, mux := newTestAPI(svc, &fakeTrail{})

		rec := doRequest(t, mux, http.MethodPost, "/entities/client/c-1:transition",
			`{"target_status":"contacted","expected_version":3}`, domain.RoleManager)
		if rec.Code != tc.status {
			t.Fatalf("kind %s status=%d, want %d", tc.kind, rec.Code, tc.status)
		}
		if svc.lastVersion != 3 {
			t.Fatalf("expected_version=%d, want 3", svc.lastVersion)
		}
	}
}

func TestAPI_TransitionRequiresExpectedVersion(t *testing.T) {
	_, mux := newTestAPI(&fakeService{}, &fakeTrail{})
	rec := doRequest(t, mux, http.MethodPost, "/entities/client/c-1:transition",
		`{"target_status":"contacted"}`, domain.RoleManager)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestAPI_TransitionUsesHighestRole(t *testing.T) {
	svc := &fakeService{result: transitions.Result{Kind: transitions.KindSuccess}}
	_, mux := newTestAPI(svc, &fakeTrail{})

	doRequest(t, mux, http.MethodPost, "/entities/client/c-1:transition",
		`{"target_status":"contacted","expected_version":0}`, domain.RoleViewer, domain.RoleAdmin)
	if svc.lastActor.Role != domain.RoleAdmin {
		t.Fatalf("actor role=%q, want admin", svc.lastActor.Role)
	}
}

func TestAPI_Move(t *testing.T) {
	svc := &fakeService{moveResult: transitions.MoveResult{
		Result:      transitions.Result{Kind: transitions.KindSuccess, NewVersion: 4},
		PriorStatus: domain.StatusNewLead,
	}}
	_, mux := newTestAPI(svc, &fakeTrail{})

	rec := doRequest(t, mux, http.MethodPost, "/entities/client/c-1:move",
		`{"from_status":"new_lead","to_status":"contacted","expected_version":3}`, domain.RoleManager)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		PriorStatus string `json:"prior_status"`
		NewVersion  int64  `json:"new_version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.PriorStatus != "new_lead" || body.NewVersion != 4 {
		t.Fatalf("body=%+v", body)
	}
}

func TestAPI_BulkTransition(t *testing.T) {
	svc := &fakeService{report: transitions.BulkReport{
		Target: domain.StatusContacted,
		Succeeded: []transitions.BulkItem{
			{EntityID: "c-1", Kind: transitions.KindSuccess, NewVersion: 1},
		},
		Failed: []transitions.BulkItem{
			{EntityID: "c-2", Kind: transitions.KindConflict, Detail: "someone else just moved this record - refresh and retry"},
		},
	}}
	_, mux := newTestAPI(svc, &fakeTrail{})

	rec := doRequest(t, mux, http.MethodPost, "/entities/client:bulk-transition",
		`{"entity_ids":["c-1","c-2"],"target_status":"contacted"}`, domain.RoleManager)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Succeeded []struct {
			EntityID string `json:"entity_id"`
		} `json:"succeeded"`
		Failed []struct {
			EntityID string `json:"entity_id"`
			Outcome  string `json:"outcome"`
		} `json:"failed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Succeeded) != 1 || len(body.Failed) != 1 {
		t.Fatalf("body=%+v", body)
	}
	if body.Failed[0].Outcome != "conflict" {
		t.Fatalf("failed outcome=%q", body.Failed[0].Outcome)
	}
}

func TestAPI_BulkTransitionRejectsEmptyIDs(t *testing.T) {
	_, mux := newTestAPI(&fakeService{}, &fakeTrail{})
	rec := doRequest(t, mux, http.MethodPost, "/entities/client:bulk-transition",
		`{"entity_ids":["  "],"target_status":"contacted"}`, domain.RoleManager)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestAPI_History(t *testing.T) {
	trail := &fakeTrail{records: []domain.TransitionRecord{
		{RecordID: 1, EntityID: "c-1", EntityType: domain.EntityTypeClient, FromStatus: domain.StatusNewLead, ToStatus: domain.StatusContacted, ActorID: "m-1", ActorRole: domain.RoleManager},
	}}
	svc := &fakeService{getEntity: domain.PipelineEntity{ID: "c-1", EntityType: domain.EntityTypeClient, Status: domain.StatusContacted}}
	_, mux := newTestAPI(svc, trail)

	rec := doRequest(t, mux, http.MethodGet, "/entities/client/c-1/history", "", domain.RoleViewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Records []struct {
			RecordID int64 `json:"record_id"`
		} `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Records) != 1 || body.Records[0].RecordID != 1 {
		t.Fatalf("body=%+v", body)
	}
}

func TestAPI_HistoryUnknownEntity(t *testing.T) {
	svc := &fakeService{getErr: repo.ErrNotFound}
	_, mux := newTestAPI(svc, &fakeTrail{})

	rec := doRequest(t, mux, http.MethodGet, "/entities/client/ghost/history", "", domain.RoleViewer)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestAPI_Summary(t *testing.T) {
	svc := &fakeService{listResult: []domain.PipelineEntity{
		{ID: "c-1", EntityType: domain.EntityTypeClient, Status: domain.StatusNewLead, Metadata: domain.Metadata{"deal_value": float64(100)}},
		{ID: "c-2", EntityType: domain.EntityTypeClient, Status: domain.StatusNewLead, Metadata: domain.Metadata{"deal_value": float64(50)}},
		{ID: "c-3", EntityType: domain.EntityTypeClient, Status: domain.StatusActive, Archived: true},
	}}
	_, mux := newTestAPI(svc, &fakeTrail{})

	rec := doRequest(t, mux, http.MethodGet, "/entities/client/summary?value_field=deal_value", "", domain.RoleViewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Columns []struct {
			Status string  `json:"status"`
			Count  int     `json:"count"`
			Sum    float64 `json:"sum"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Columns) == 0 || body.Columns[0].Status != "new_lead" {
		t.Fatalf("columns=%+v, want happy-path order starting at new_lead", body.Columns)
	}
	if body.Columns[0].Count != 2 || body.Columns[0].Sum != 150 {
		t.Fatalf("new_lead column=%+v", body.Columns[0])
	}
	for _, column := range body.Columns {
		if column.Status == "active" && column.Count != 0 {
			t.Fatalf("archived entity leaked into summary: %+v", column)
		}
	}
}

func TestAPI_Pipelines(t *testing.T) {
	_, mux := newTestAPI(&fakeService{}, &fakeTrail{})

	rec := doRequest(t, mux, http.MethodGet, "/pipelines", "", domain.RoleViewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var body struct {
		Pipelines []struct {
			EntityType string `json:"entity_type"`
		} `json:"pipelines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Pipelines) != 3 {
		t.Fatalf("pipelines=%+v, want client, broker, card", body.Pipelines)
	}

	rec = doRequest(t, mux, http.MethodGet, "/pipelines/card", "", domain.RoleViewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var card struct {
		Initial   string   `json:"initial_status"`
		Terminals []string `json:"terminal_statuses"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if card.Initial != "under_review" || len(card.Terminals) != 2 {
		t.Fatalf("card pipeline=%+v", card)
	}
}

func TestAPI_UnknownAction(t *testing.T) {
	_, mux := newTestAPI(&fakeService{}, &fakeTrail{})
	rec := doRequest(t, mux, http.MethodPost, "/entities/client/c-1:promote", `{}`, domain.RoleAdmin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}
