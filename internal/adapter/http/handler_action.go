package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/usecase"
	apperror "github.com/girrex/suivi/pkg/error"
)

// ActionUseCase defines the behavior the handler depends on
type ActionUseCase interface {
	CreateAction(ctx context.Context, req usecase.CreateActionRequest) (*domain.Action, error)
	GetAction(ctx context.Context, actionID string, actor domain.Actor) (*domain.Action, error)
	ListActions(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, int, error)
	UpdateProgress(ctx context.Context, req usecase.UpdateProgressRequest) (*domain.Action, error)
	AddComment(ctx context.Context, actionID, body string, actor domain.Actor) (*domain.HistoryEntry, error)
	GetHistory(ctx context.Context, actionID string, limit int, actor domain.Actor) ([]*domain.HistoryEntry, error)
	GetChildren(ctx context.Context, actionID string, actor domain.Actor) ([]*domain.Action, error)
	Acknowledge(ctx context.Context, actionID string, actor domain.Actor) (*domain.Action, error)
	Validate(ctx context.Context, actionID string, actor domain.Actor) (*domain.Action, error)
	Archive(ctx context.Context, actionIDs []string, actor domain.Actor) ([]*domain.Action, error)
	CloseCascade(ctx context.Context, actionID string, actor domain.Actor) (*usecase.CloseResult, error)
	DeleteAction(ctx context.Context, actionID string, actor domain.Actor) error
	Stats(ctx context.Context, responsibleID string) (map[domain.ActionStatus]int, error)
}

// ActionHandler handles HTTP requests for actions
type ActionHandler struct {
	actions ActionUseCase
	log     logger.Logger
}

// NewActionHandler creates a new action handler
func NewActionHandler(actions ActionUseCase, log logger.Logger) *ActionHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ActionHandler{actions: actions, log: log}
}

// RegisterRoutes registers action routes. Fixed paths come before /actions/{id}.
func (h *ActionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/actions", h.CreateAction).Methods("POST")
	router.HandleFunc("/actions", h.ListActions).Methods("GET")
	router.HandleFunc("/actions/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/actions/archive", h.Archive).Methods("POST")
	router.HandleFunc("/actions/{id}", h.GetAction).Methods("GET")
	router.HandleFunc("/actions/{id}", h.DeleteAction).Methods("DELETE")
	router.HandleFunc("/actions/{id}/progress", h.UpdateProgress).Methods("PATCH")
	router.HandleFunc("/actions/{id}/comments", h.AddComment).Methods("POST")
	router.HandleFunc("/actions/{id}/history", h.GetHistory).Methods("GET")
	router.HandleFunc("/actions/{id}/children", h.GetChildren).Methods("GET")
	router.HandleFunc("/actions/{id}/acknowledge", h.Acknowledge).Methods("POST")
	router.HandleFunc("/actions/{id}/validate", h.Validate).Methods("POST")
	router.HandleFunc("/actions/{id}/close", h.Close).Methods("POST")
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}
	return nil
}

// CreateAction handles action creation
func (h *ActionHandler) CreateAction(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateActionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	req.Actor = ActorFrom(r.Context())

	action, err := h.actions.CreateAction(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Action created successfully", action)
}

// GetAction handles retrieving a single action
func (h *ActionHandler) GetAction(w http.ResponseWriter, r *http.Request) {
	action, err := h.actions.GetAction(r.Context(), mux.Vars(r)["id"], ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Action retrieved successfully", action)
}

func parseFilter(r *http.Request, actor domain.Actor) domain.ActionFilter {
	q := r.URL.Query()
	filter := domain.ActionFilter{}

	if status := q.Get("status"); status != "" {
		s := domain.ActionStatus(status)
		filter.Status = &s
	}
	if category := q.Get("category"); category != "" {
		c := domain.ActionCategory(category)
		filter.Category = &c
	}
	if priority := q.Get("priority"); priority != "" {
		p := domain.ActionPriority(priority)
		filter.Priority = &p
	}
	if responsible := q.Get("responsible_id"); responsible != "" {
		filter.ResponsibleID = &responsible
	}
	if q.Get("mine") == "true" {
		filter.ResponsibleID = &actor.AgentID
	}
	if parent := q.Get("parent_id"); parent != "" {
		filter.ParentID = &parent
	}
	filter.RootsOnly = q.Get("roots") == "true"
	if scope := q.Get("scope"); scope != "" {
		filter.Scope = &scope
	}
	if kind := q.Get("source_kind"); kind != "" {
		k := domain.SourceKind(kind)
		filter.SourceKind = &k
	}
	if sourceID := q.Get("source_id"); sourceID != "" {
		filter.SourceID = &sourceID
	}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}
	return filter
}

// ListActions handles listing actions with filters
func (h *ActionHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r, ActorFrom(r.Context()))

	actions, total, err := h.actions.ListActions(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if actions == nil {
		actions = []*domain.Action{}
	}

	writeSuccess(w, http.StatusOK, "Actions retrieved successfully", map[string]interface{}{
		"actions": actions,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// UpdateProgress handles manual progress edits
func (h *ActionHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req usecase.UpdateProgressRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	req.ActionID = mux.Vars(r)["id"]
	req.Actor = ActorFrom(r.Context())

	action, err := h.actions.UpdateProgress(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Progress updated successfully", action)
}

// AddComment handles comment creation
func (h *ActionHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	entry, err := h.actions.AddComment(r.Context(), mux.Vars(r)["id"], req.Body, ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Comment added successfully", entry)
}

// GetHistory handles listing the history of an action
func (h *ActionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.actions.GetHistory(r.Context(), mux.Vars(r)["id"], limit, ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if entries == nil {
		entries = []*domain.HistoryEntry{}
	}
	writeSuccess(w, http.StatusOK, "History retrieved successfully", entries)
}

// GetChildren handles listing the children of an action
func (h *ActionHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.actions.GetChildren(r.Context(), mux.Vars(r)["id"], ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if children == nil {
		children = []*domain.Action{}
	}
	writeSuccess(w, http.StatusOK, "Children retrieved successfully", children)
}

// Acknowledge handles acknowledgement by the responsible party
func (h *ActionHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	action, err := h.actions.Acknowledge(r.Context(), mux.Vars(r)["id"], ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Action acknowledged", action)
}

// Validate handles the sign-off of an action pending validation
func (h *ActionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	action, err := h.actions.Validate(r.Context(), mux.Vars(r)["id"], ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Action validated", action)
}

// Close handles the final closure of an action and its descendants
func (h *ActionHandler) Close(w http.ResponseWriter, r *http.Request) {
	result, err := h.actions.CloseCascade(r.Context(), mux.Vars(r)["id"], ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Action closed", result)
}

// Archive handles bulk archival
func (h *ActionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	archived, err := h.actions.Archive(r.Context(), req.IDs, ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Actions archived", archived)
}

// DeleteAction handles deletion of an action and its descendants
func (h *ActionHandler) DeleteAction(w http.ResponseWriter, r *http.Request) {
	if err := h.actions.DeleteAction(r.Context(), mux.Vars(r)["id"], ActorFrom(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles the dashboard counters. Without responsible_id the caller's own
// actions are counted; national roles may pass "all".
func (h *ActionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	responsible := r.URL.Query().Get("responsible_id")
	switch {
	case responsible == "":
		responsible = actor.AgentID
	case responsible == "all" && actor.IsNational():
		responsible = ""
	case responsible != actor.AgentID && !actor.IsNational():
		writeError(w, r, h.log, domain.Forbidden("statistics of other agents are reserved to a national role"))
		return
	}

	stats, err := h.actions.Stats(r.Context(), responsible)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Statistics retrieved successfully", stats)
}
