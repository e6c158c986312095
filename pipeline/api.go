package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
	"github.com/tradeline-labs/tradeline-go/internal/pipeline"
	"github.com/tradeline-labs/tradeline-go/internal/platform/auth"
	"github.com/tradeline-labs/tradeline-go/internal/repo"
	"github.com/tradeline-labs/tradeline-go/internal/service/transitions"
)

// transitionService is the slice of the transitions service the HTTP
// layer consumes.
type transitionService interface {
	Create(ctx context.Context, entityType domain.EntityType, params transitions.CreateParams) (domain.PipelineEntity, error)
	Get(ctx context.Context, entityType domain.EntityType, id string) (domain.PipelineEntity, error)
	List(ctx context.Context, filter repo.EntityFilter) ([]domain.PipelineEntity, error)
	AttemptTransition(ctx context.Context, entityType domain.EntityType, id string, target domain.Status, actor domain.Actor, expectedVersion int64, reason, requestID string) (transitions.Result, error)
	ProposeMove(ctx context.Context, entityType domain.EntityType, id string, fromColumn, toColumn domain.Status, actor domain.Actor, expectedVersion int64, requestID string) (transitions.MoveResult, error)
	ApplyToMany(ctx context.Context, entityType domain.EntityType, ids []string, target domain.Status, actor domain.Actor, requestID string) transitions.BulkReport
	Archive(ctx context.Context, entityType domain.EntityType, id string, actor domain.Actor, expectedVersion int64, requestID string) (transitions.Result, error)
}

type pipelineAPI struct {
	logger   *slog.Logger
	svc      transitionService
	trail    repo.TransitionTrail
	registry *pipeline.Registry
}

func newPipelineAPI(logger *slog.Logger, svc transitionService, trail repo.TransitionTrail, registry *pipeline.Registry) *pipelineAPI {
	return &pipelineAPI{
		logger:   logger,
		svc:      svc,
		trail:    trail,
		registry: registry,
	}
}

func (api *pipelineAPI) register(mux *http.ServeMux) {
	// Custom-method suffixes (":transition" etc.) ride inside the path
	// wildcards and are split off in the handlers.
	mux.HandleFunc("POST /entities/{collection}", api.handleCollectionAction)
	mux.HandleFunc("GET /entities/{entity_type}", api.handleList)
	mux.HandleFunc("GET /entities/{entity_type}/summary", api.handleSummary)
	mux.HandleFunc("GET /entities/{entity_type}/{entity_id}", api.handleGet)
	mux.HandleFunc("POST /entities/{entity_type}/{entity_ref}", api.handleEntityAction)
	mux.HandleFunc("GET /entities/{entity_type}/{entity_id}/history", api.handleHistory)

	mux.HandleFunc("GET /pipelines", api.handleListPipelines)
	mux.HandleFunc("GET /pipelines/{entity_type}", api.handleGetPipeline)
}

type entityResponse struct {
	EntityID   string          `json:"entity_id"`
	EntityType string          `json:"entity_type"`
	Status     string          `json:"status"`
	Version    int64           `json:"version"`
	Archived   bool            `json:"archived"`
	Owner      string          `json:"owner,omitempty"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	CreatedBy  string          `json:"created_by"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toEntityResponse(entity domain.PipelineEntity) entityResponse {
	return entityResponse{
		EntityID:   entity.ID,
		EntityType: string(entity.EntityType),
		Status:     string(entity.Status),
		Version:    entity.Version,
		Archived:   entity.Archived,
		Owner:      entity.Owner,
		Metadata:   entity.Metadata,
		CreatedAt:  entity.CreatedAt,
		CreatedBy:  entity.CreatedBy,
		UpdatedAt:  entity.UpdatedAt,
	}
}

type createEntityRequest struct {
	EntityID string          `json:"entity_id,omitempty"`
	Owner    string          `json:"owner,omitempty"`
	Metadata domain.Metadata `json:"metadata,omitempty"`
}

type transitionRequest struct {
	TargetStatus    string `json:"target_status"`
	ExpectedVersion *int64 `json:"expected_version"`
	Reason          string `json:"reason,omitempty"`
}

type moveRequest struct {
	FromStatus      string `json:"from_status"`
	ToStatus        string `json:"to_status"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type bulkTransitionRequest struct {
	EntityIDs    []string `json:"entity_ids"`
	TargetStatus string   `json:"target_status"`
}

type archiveRequest struct {
	ExpectedVersion *int64 `json:"expected_version"`
}

type transitionResponse struct {
	Outcome     string `json:"outcome"`
	Message     string `json:"message"`
	FromStatus  string `json:"from_status,omitempty"`
	ToStatus    string `json:"to_status,omitempty"`
	NewVersion  int64  `json:"new_version,omitempty"`
	CheckName   string `json:"check_name,omitempty"`
	PriorStatus string `json:"prior_status,omitempty"`
	NoOp        bool   `json:"no_op,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// handleCollectionAction dispatches POST /entities/{collection}, where
// collection is either a bare entity type (create) or
// "<entity_type>:bulk-transition".
func (api *pipelineAPI) handleCollectionAction(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("collection")
	typeSegment, action, _ := strings.Cut(raw, ":")
	entityType, ok := domain.ParseEntityType(typeSegment)
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}

	switch action {
	case "":
		api.handleCreate(w, r, entityType)
	case "bulk-transition":
		api.handleBulkTransition(w, r, entityType)
	default:
		api.writeError(w, r, http.StatusNotFound, "unknown_action")
	}
}

// handleEntityAction dispatches POST /entities/{entity_type}/{entity_ref},
// where entity_ref is "<entity_id>:<transition|move|archive>".
func (api *pipelineAPI) handleEntityAction(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("entity_type"))
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}
	entityID, action, found := strings.Cut(r.PathValue("entity_ref"), ":")
	entityID = strings.TrimSpace(entityID)
	if !found || entityID == "" {
		api.writeError(w, r, http.StatusNotFound, "unknown_action")
		return
	}

	switch action {
	case "transition":
		api.handleTransition(w, r, entityType, entityID)
	case "move":
		api.handleMove(w, r, entityType, entityID)
	case "archive":
		api.handleArchive(w, r, entityType, entityID)
	default:
		api.writeError(w, r, http.StatusNotFound, "unknown_action")
	}
}

func (api *pipelineAPI) handleCreate(w http.ResponseWriter, r *http.Request, entityType domain.EntityType) {
	actor, identity, ok := api.actorFromRequest(w, r)
	if !ok {
		return
	}
	if !auth.HasAtLeast(identity.Roles, domain.RoleManager) {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var req createEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	entityID := strings.TrimSpace(req.EntityID)
	if entityID == "" {
		entityID = uuid.NewString()
	}

	entity, err := api.svc.Create(r.Context(), entityType, transitions.CreateParams{
		ID:        entityID,
		Owner:     req.Owner,
		Metadata:  req.Metadata,
		CreatedBy: actor.ID,
		RequestID: requestID(r),
	})
	if err != nil {
		api.logger.Error("create entity failed", "entity_type", entityType, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusCreated, toEntityResponse(entity))
}

func (api *pipelineAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("entity_type"))
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}
	entityID := strings.TrimSpace(r.PathValue("entity_id"))

	entity, err := api.svc.Get(r.Context(), entityType, entityID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.logger.Error("get entity failed", "entity_type", entityType, "entity_id", entityID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, toEntityResponse(entity))
}

func (api *pipelineAPI) handleList(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("entity_type"))
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}

	filter := repo.EntityFilter{EntityType: entityType}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filter.Status = domain.Status(status)
	}
	if archivedRaw := strings.TrimSpace(r.URL.Query().Get("archived")); archivedRaw != "" {
		archived, err := strconv.ParseBool(archivedRaw)
		if err != nil {
			api.writeError(w, r, http.StatusBadRequest, "invalid_archived")
			return
		}
		filter.Archived = &archived
	}
	filter.CreatedBy = strings.TrimSpace(r.URL.Query().Get("created_by"))
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil || limit < 0 {
			api.writeError(w, r, http.StatusBadRequest, "invalid_limit")
			return
		}
		filter.Limit = limit
	}

	entities, err := api.svc.List(r.Context(), filter)
	if err != nil {
		api.logger.Error("list entities failed", "entity_type", entityType, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]entityResponse, 0, len(entities))
	for _, entity := range entities {
		out = append(out, toEntityResponse(entity))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"entities": out})
}

func (api *pipelineAPI) handleTransition(w http.ResponseWriter, r *http.Request, entityType domain.EntityType, entityID string) {
	actor, _, ok := api.actorFromRequest(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	target := domain.Status(strings.TrimSpace(req.TargetStatus))
	if target == "" {
		api.writeError(w, r, http.StatusBadRequest, "target_status_required")
		return
	}
	if req.ExpectedVersion == nil {
		api.writeError(w, r, http.StatusBadRequest, "expected_version_required")
		return
	}

	result, err := api.svc.AttemptTransition(r.Context(), entityType, entityID, target, actor, *req.ExpectedVersion, req.Reason, requestID(r))
	if err != nil {
		api.logger.Error("transition failed", "entity_type", entityType, "entity_id", entityID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeResult(w, r, result)
}

func (api *pipelineAPI) handleMove(w http.ResponseWriter, r *http.Request, entityType domain.EntityType, entityID string) {
	actor, _, ok := api.actorFromRequest(w, r)
	if !ok {
		return
	}

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	from := domain.Status(strings.TrimSpace(req.FromStatus))
	to := domain.Status(strings.TrimSpace(req.ToStatus))
	if from == "" || to == "" {
		api.writeError(w, r, http.StatusBadRequest, "from_and_to_status_required")
		return
	}
	if req.ExpectedVersion == nil {
		api.writeError(w, r, http.StatusBadRequest, "expected_version_required")
		return
	}

	moved, err := api.svc.ProposeMove(r.Context(), entityType, entityID, from, to, actor, *req.ExpectedVersion, requestID(r))
	if err != nil {
		api.logger.Error("move failed", "entity_type", entityType, "entity_id", entityID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	body := resultBody(moved.Result, requestID(r))
	body.PriorStatus = string(moved.PriorStatus)
	body.NoOp = moved.NoOp
	api.writeJSON(w, statusForKind(moved.Kind), body)
}

func (api *pipelineAPI) handleBulkTransition(w http.ResponseWriter, r *http.Request, entityType domain.EntityType) {
	actor, _, ok := api.actorFromRequest(w, r)
	if !ok {
		return
	}

	var req bulkTransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	target := domain.Status(strings.TrimSpace(req.TargetStatus))
	if target == "" {
		api.writeError(w, r, http.StatusBadRequest, "target_status_required")
		return
	}
	ids := make([]string, 0, len(req.EntityIDs))
	for _, id := range req.EntityIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		api.writeError(w, r, http.StatusBadRequest, "entity_ids_required")
		return
	}

	report := api.svc.ApplyToMany(r.Context(), entityType, ids, target, actor, requestID(r))

	type bulkItemBody struct {
		EntityID   string `json:"entity_id"`
		Outcome    string `json:"outcome"`
		NewVersion int64  `json:"new_version,omitempty"`
		CheckName  string `json:"check_name,omitempty"`
		Detail     string `json:"detail,omitempty"`
	}
	toBody := func(items []transitions.BulkItem) []bulkItemBody {
		out := make([]bulkItemBody, 0, len(items))
		for _, item := range items {
			out = append(out, bulkItemBody{
				EntityID:   item.EntityID,
				Outcome:    string(item.Kind),
				NewVersion: item.NewVersion,
				CheckName:  item.CheckName,
				Detail:     item.Detail,
			})
		}
		return out
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"target_status": string(report.Target),
		"succeeded":     toBody(report.Succeeded),
		"failed":        toBody(report.Failed),
		"request_id":    requestID(r),
	})
}

func (api *pipelineAPI) handleArchive(w http.ResponseWriter, r *http.Request, entityType domain.EntityType, entityID string) {
	actor, _, ok := api.actorFromRequest(w, r)
	if !ok {
		return
	}

	var req archiveRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ExpectedVersion == nil {
		api.writeError(w, r, http.StatusBadRequest, "expected_version_required")
		return
	}

	result, err := api.svc.Archive(r.Context(), entityType, entityID, actor, *req.ExpectedVersion, requestID(r))
	if err != nil {
		api.logger.Error("archive failed", "entity_type", entityType, "entity_id", entityID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeResult(w, r, result)
}

func (api *pipelineAPI) handleHistory(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("entity_type"))
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}
	entityID := strings.TrimSpace(r.PathValue("entity_id"))

	// Resolve the entity first so an unknown id reads as 404, not an
	// empty trail.
	if _, err := api.svc.Get(r.Context(), entityType, entityID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.logger.Error("history lookup failed", "entity_id", entityID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	limit := 100
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			api.writeError(w, r, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = parsed
	}
	offset := 0
	if offsetRaw := strings.TrimSpace(r.URL.Query().Get("offset")); offsetRaw != "" {
		parsed, err := strconv.Atoi(offsetRaw)
		if err != nil || parsed < 0 {
			api.writeError(w, r, http.StatusBadRequest, "invalid_offset")
			return
		}
		offset = parsed
	}

	records, err := api.trail.History(r.Context(), entityID, limit, offset)
	if err != nil {
		api.logger.Error("history read failed", "entity_id", entityID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	type recordBody struct {
		RecordID   int64     `json:"record_id"`
		FromStatus string    `json:"from_status"`
		ToStatus   string    `json:"to_status"`
		ActorID    string    `json:"actor_id"`
		ActorRole  string    `json:"actor_role"`
		Reason     string    `json:"reason,omitempty"`
		RequestID  string    `json:"request_id,omitempty"`
		OccurredAt time.Time `json:"occurred_at"`
	}
	out := make([]recordBody, 0, len(records))
	for _, record := range records {
		out = append(out, recordBody{
			RecordID:   record.RecordID,
			FromStatus: string(record.FromStatus),
			ToStatus:   string(record.ToStatus),
			ActorID:    record.ActorID,
			ActorRole:  record.ActorRole,
			Reason:     record.Reason,
			RequestID:  record.RequestID,
			OccurredAt: record.OccurredAt,
		})
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": entityID,
		"records":   out,
	})
}

func (api *pipelineAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("entity_type"))
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}

	var valueOf transitions.ValueFunc
	valueField := strings.TrimSpace(r.URL.Query().Get("value_field"))
	if valueField != "" {
		valueOf = transitions.MetadataValue(valueField)
	}

	entities, err := api.svc.List(r.Context(), repo.EntityFilter{EntityType: entityType})
	if err != nil {
		api.logger.Error("summary list failed", "entity_type", entityType, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	summaries := transitions.CountsByStatus(entities, valueOf)

	type columnBody struct {
		Status string  `json:"status"`
		Count  int     `json:"count"`
		Sum    float64 `json:"sum,omitempty"`
	}
	def, _ := api.registry.Definition(entityType)
	columns := make([]columnBody, 0, len(summaries))
	for _, status := range def.States() {
		summary := summaries[status]
		columns = append(columns, columnBody{Status: string(status), Count: summary.Count, Sum: summary.Sum})
		delete(summaries, status)
	}
	// Statuses outside the declared pipeline should not exist; surface
	// them anyway rather than hiding bad data.
	rest := make([]columnBody, 0, len(summaries))
	for status, summary := range summaries {
		rest = append(rest, columnBody{Status: string(status), Count: summary.Count, Sum: summary.Sum})
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Status < rest[j].Status })
	columns = append(columns, rest...)

	api.writeJSON(w, http.StatusOK, map[string]any{
		"entity_type": string(entityType),
		"value_field": valueField,
		"columns":     columns,
	})
}

type pipelineBody struct {
	EntityType string         `json:"entity_type"`
	Initial    string         `json:"initial_status"`
	States     []string       `json:"states"`
	Terminals  []string       `json:"terminal_statuses,omitempty"`
	Edges      []pipelineEdge `json:"edges"`
}

type pipelineEdge struct {
	FromStates    []string `json:"from_statuses"`
	ToState       string   `json:"to_status"`
	AllowedRoles  []string `json:"allowed_roles"`
	Preconditions []string `json:"preconditions,omitempty"`
	Override      bool     `json:"override,omitempty"`
}

func toPipelineBody(def pipeline.Definition) pipelineBody {
	body := pipelineBody{
		EntityType: string(def.EntityType),
		Initial:    string(def.Initial),
	}
	for _, s := range def.States() {
		body.States = append(body.States, string(s))
	}
	for _, s := range def.Terminals {
		body.Terminals = append(body.Terminals, string(s))
	}
	for _, t := range def.Transitions {
		edge := pipelineEdge{
			ToState:       string(t.ToState),
			AllowedRoles:  t.AllowedRoles,
			Preconditions: t.Preconditions,
			Override:      t.Override,
		}
		for _, s := range t.FromStates {
			edge.FromStates = append(edge.FromStates, string(s))
		}
		body.Edges = append(body.Edges, edge)
	}
	return body
}

func (api *pipelineAPI) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	var bodies []pipelineBody
	for _, entityType := range api.registry.EntityTypes() {
		if def, ok := api.registry.Definition(entityType); ok {
			bodies = append(bodies, toPipelineBody(def))
		}
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"pipelines": bodies})
}

func (api *pipelineAPI) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("entity_type"))
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}
	def, ok := api.registry.Definition(entityType)
	if !ok {
		api.writeError(w, r, http.StatusNotFound, "unknown_entity_type")
		return
	}
	api.writeJSON(w, http.StatusOK, toPipelineBody(def))
}

func (api *pipelineAPI) actorFromRequest(w http.ResponseWriter, r *http.Request) (domain.Actor, auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return domain.Actor{}, auth.Identity{}, false
	}
	role := auth.HighestRole(identity.Roles)
	if role == "" {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return domain.Actor{}, auth.Identity{}, false
	}
	return domain.Actor{ID: identity.Subject, Role: role}, identity, true
}

func statusForKind(kind transitions.Kind) int {
	switch kind {
	case transitions.KindSuccess:
		return http.StatusOK
	case transitions.KindInvalidTransition:
		return http.StatusBadRequest
	case transitions.KindUnauthorized:
		return http.StatusForbidden
	case transitions.KindPreconditionFailed:
		return http.StatusUnprocessableEntity
	case transitions.KindConflict, transitions.KindArchived:
		return http.StatusConflict
	case transitions.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func resultBody(result transitions.Result, reqID string) transitionResponse {
	return transitionResponse{
		Outcome:    string(result.Kind),
		Message:    result.Kind.Message(),
		FromStatus: string(result.FromStatus),
		ToStatus:   string(result.ToStatus),
		NewVersion: result.NewVersion,
		CheckName:  result.CheckName,
		RequestID:  reqID,
	}
}

func (api *pipelineAPI) writeResult(w http.ResponseWriter, r *http.Request, result transitions.Result) {
	api.writeJSON(w, statusForKind(result.Kind), resultBody(result, requestID(r)))
}

func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *pipelineAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": requestID(r),
	})
}

func (api *pipelineAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}
