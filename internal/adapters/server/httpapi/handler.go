// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evanschultz/beacon/internal/adapters/server/common"
	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// HeaderStoreError carries the store banner on mutation responses when one is set.
const HeaderStoreError = "X-Beacon-Store-Error"

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	svc    common.InitiativeService
	router chi.Router
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over svc.
func NewHandler(svc common.InitiativeService) *Handler {
	h := &Handler{svc: svc}
	r := chi.NewRouter()
	r.Use(attribution)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{Code: common.CodeNotFound, Message: "endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, APIError{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.Get("/state", h.handleState)
	r.Delete("/state/error", h.handleClearError)
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/updates", h.handleListUpdates)
	r.Get("/audit", h.handleAudit)
	r.Route("/initiatives", func(r chi.Router) {
		r.Get("/", h.handleListInitiatives)
		r.Post("/", h.handleCreateInitiative)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetInitiative)
			r.Put("/", h.handleUpdateInitiative)
			r.Delete("/", h.handleDeleteInitiative)
			r.Post("/archive", h.handleArchive)
			r.Post("/restore", h.handleRestore)
			r.Put("/progress", h.handleProgress)
			r.Put("/kpis", h.handleKPIs)
			r.Get("/updates", h.handleListInitiativeUpdates)
			r.Post("/updates", h.handleAddUpdate)
		})
	})
	h.router = r
	return h
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// attribution copies actor and request id headers into the request context.
func attribution(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.ContextWithHeaders(r.Context(), r.Header, app.ActorTypeUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// initiativeRequest is the create payload; omitted fields take the form defaults.
type initiativeRequest struct {
	ProjectID            string                `json:"projectId"`
	Title                string                `json:"title"`
	Owner                string                `json:"owner"`
	Progress             int                   `json:"progress"`
	Status               domain.Status         `json:"status"`
	DueDate              string                `json:"dueDate"`
	Department           string                `json:"department"`
	Description          string                `json:"description"`
	Category             string                `json:"category"`
	Priority             domain.Priority       `json:"priority"`
	Type                 domain.InitiativeType `json:"type"`
	Stage                domain.Stage          `json:"stage"`
	Objectives           []string              `json:"objectives"`
	Stakeholders         []string              `json:"stakeholders"`
	KPIs                 []domain.KPI          `json:"kpis"`
	ResourceRequirements []domain.Resource     `json:"resourceRequirements"`
	TimeTracking         []domain.TimeEntry    `json:"timeTracking"`
	Documentation        []domain.Document     `json:"documentation"`
	Integrations         []domain.Integration  `json:"integrations"`
	Budget               domain.Budget         `json:"budget"`
	Timeline             domain.Timeline       `json:"timeline"`
}

func (r initiativeRequest) input() app.CreateInitiativeInput {
	return app.CreateInitiativeInput{
		ProjectID:            r.ProjectID,
		Title:                r.Title,
		Owner:                r.Owner,
		Progress:             r.Progress,
		Status:               r.Status,
		DueDate:              r.DueDate,
		Department:           r.Department,
		Description:          r.Description,
		Category:             r.Category,
		Priority:             r.Priority,
		Type:                 r.Type,
		Stage:                r.Stage,
		Objectives:           r.Objectives,
		Stakeholders:         r.Stakeholders,
		KPIs:                 r.KPIs,
		ResourceRequirements: r.ResourceRequirements,
		TimeTracking:         r.TimeTracking,
		Documentation:        r.Documentation,
		Integrations:         r.Integrations,
		Budget:               r.Budget,
		Timeline:             r.Timeline,
	}
}

// progressRequest is the PUT `/initiatives/{id}/progress` payload.
type progressRequest struct {
	Progress *int `json:"progress"`
}

// kpisRequest is the PUT `/initiatives/{id}/kpis` payload.
type kpisRequest struct {
	KPIs []domain.KPI `json:"kpis"`
}

// updateRequest is the POST `/initiatives/{id}/updates` payload.
type updateRequest struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// listResponse wraps list payloads with their count.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

// handleState serves GET `/state`.
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State(r.Context()))
}

// handleClearError serves DELETE `/state/error`.
func (h *Handler) handleClearError(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearError(r.Context()); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDashboard serves GET `/dashboard`.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, common.BuildDashboard(r.Context(), h.svc))
}

// handleListInitiatives serves GET `/initiatives`.
func (h *Handler) handleListInitiatives(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	archived, err := parseBoolQuery(query.Get("archived"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	filter, err := common.ListRequest{
		View:            query.Get("view"),
		Department:      query.Get("department"),
		Status:          query.Get("status"),
		Priority:        query.Get("priority"),
		Query:           query.Get("q"),
		Sort:            query.Get("sort"),
		Order:           query.Get("order"),
		IncludeArchived: archived,
	}.Filter()
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	items, err := h.svc.ListInitiatives(r.Context(), filter)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// handleCreateInitiative serves POST `/initiatives`.
func (h *Handler) handleCreateInitiative(w http.ResponseWriter, r *http.Request) {
	var req initiativeRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	created, err := h.svc.CreateInitiative(r.Context(), req.input())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("initiatives/%d", created.ID))
	h.writeMutation(w, r, http.StatusCreated, created)
}

// handleGetInitiative serves GET `/initiatives/{id}`.
func (h *Handler) handleGetInitiative(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	initiative, err := h.svc.GetInitiative(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiative)
}

// handleUpdateInitiative serves PUT `/initiatives/{id}` with a full record body.
func (h *Handler) handleUpdateInitiative(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body domain.Initiative
	if err := decodeJSONBody(r.Context(), w, r, &body); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if body.ID != 0 && body.ID != id {
		writeErrorFrom(w, fmt.Errorf("body id %d does not match path id %d: %w", body.ID, id, common.ErrInvalidRequest))
		return
	}
	body.ID = id
	updated, err := h.svc.UpdateInitiative(r.Context(), body)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, updated)
}

// handleDeleteInitiative serves DELETE `/initiatives/{id}`.
func (h *Handler) handleDeleteInitiative(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteInitiative(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleArchive serves POST `/initiatives/{id}/archive`.
func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, h.svc.ArchiveInitiative)
}

// handleRestore serves POST `/initiatives/{id}/restore`.
func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, h.svc.RestoreInitiative)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (domain.Initiative, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := fn(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, out)
}

// handleProgress serves PUT `/initiatives/{id}/progress`.
func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if req.Progress == nil {
		writeErrorFrom(w, fmt.Errorf("progress is required: %w", common.ErrInvalidRequest))
		return
	}
	out, err := h.svc.UpdateProgress(r.Context(), id, *req.Progress)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, out)
}

// handleKPIs serves PUT `/initiatives/{id}/kpis`.
func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req kpisRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if req.KPIs == nil {
		req.KPIs = []domain.KPI{}
	}
	out, err := h.svc.UpdateKPIs(r.Context(), id, req.KPIs)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, out)
}

// handleListInitiativeUpdates serves GET `/initiatives/{id}/updates`.
func (h *Handler) handleListInitiativeUpdates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	initiative, err := h.svc.GetInitiative(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(h.svc.ListUpdates(r.Context(), app.UpdateFilter{
		Initiative: initiative.Title,
		Limit:      limit,
	})))
}

// handleAddUpdate serves POST `/initiatives/{id}/updates`.
func (h *Handler) handleAddUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	kind, err := domain.ParseUpdateType(req.Type)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	up, err := h.svc.AddUpdate(r.Context(), id, req.Message, kind)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// handleListUpdates serves GET `/updates`.
func (h *Handler) handleListUpdates(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(h.svc.ListUpdates(r.Context(), app.UpdateFilter{
		Initiative: strings.TrimSpace(r.URL.Query().Get("initiative")),
		Limit:      limit,
	})))
}

// handleAudit serves GET `/audit`.
func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(h.svc.AuditLog(r.Context(), limit)))
}

// writeMutation writes a mutation result and surfaces the store banner as a header.
func (h *Handler) writeMutation(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if banner := h.svc.State(r.Context()).Error; banner != "" {
		w.Header().Set(HeaderStoreError, banner)
	}
	writeJSON(w, status, payload)
}

// pathID parses the `{id}` route parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorFrom(w, err)
		return 0, false
	}
	return id, true
}

// parseLimit parses an optional non-negative limit query value.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("limit %q: %w", raw, common.ErrInvalidRequest)
	}
	return limit, nil
}

// parseBoolQuery parses an optional boolean query value.
func parseBoolQuery(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	out, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("boolean %q: %w", raw, common.ErrInvalidRequest)
	}
	return out, nil
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	switch code := common.ErrorCode(err); code {
	case common.CodeNotFound:
		writeJSONError(w, http.StatusNotFound, APIError{Code: code, Message: message})
	case common.CodeInvalidRequest:
		writeJSONError(w, http.StatusBadRequest, APIError{Code: code, Message: message})
	case common.CodeValidationFailed:
		writeJSONError(w, http.StatusUnprocessableEntity, APIError{
			Code:    code,
			Message: message,
			Hint:    "Progress must stay within 0-100.",
		})
	case common.CodeUnavailable:
		writeJSONError(w, http.StatusServiceUnavailable, APIError{Code: code, Message: message})
	case common.CodeCanceled:
		writeJSONError(w, http.StatusRequestTimeout, APIError{Code: code, Message: message})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{Code: code, Message: message})
	}
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
