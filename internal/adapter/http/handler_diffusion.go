package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
)

// DiffusionUseCase defines the behavior the handler depends on
type DiffusionUseCase interface {
	Diffuse(ctx context.Context, req domain.DiffusionRequest) (*domain.DiffusionResult, error)
}

// DiffusionHandler handles HTTP requests for diffusions
type DiffusionHandler struct {
	diffusions DiffusionUseCase
	log        logger.Logger
}

// NewDiffusionHandler creates a new diffusion handler
func NewDiffusionHandler(diffusions DiffusionUseCase, log logger.Logger) *DiffusionHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &DiffusionHandler{diffusions: diffusions, log: log}
}

// RegisterRoutes registers diffusion routes
func (h *DiffusionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/diffusions", h.CreateDiffusion).Methods("POST")
}

type diffusionRequest struct {
	Source      domain.SourceRef      `json:"source"`
	Mode        domain.DiffusionMode  `json:"mode"`
	Category    domain.ActionCategory `json:"category"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.ActionPriority `json:"priority"`
	DueDate     *time.Time            `json:"due_date,omitempty"`
	Scopes      []string              `json:"scopes"`
	Recipients  []string              `json:"recipients"`
	Direct      bool                  `json:"direct"`
}

// CreateDiffusion handles the fan-out of a source record. The initiator is the caller.
func (h *DiffusionHandler) CreateDiffusion(w http.ResponseWriter, r *http.Request) {
	var body diffusionRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	req := domain.DiffusionRequest{
		InitiatorID:  ActorFrom(r.Context()).AgentID,
		Mode:         body.Mode,
		Category:     body.Category,
		Title:        body.Title,
		Description:  body.Description,
		Priority:     body.Priority,
		DueDate:      body.DueDate,
		ScopeCodes:   body.Scopes,
		RecipientIDs: body.Recipients,
		Direct:       body.Direct,
	}
	if body.Source.Kind != "" && body.Source.ID != "" {
		req.Source = body.Source
	}

	result, err := h.diffusions.Diffuse(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Diffusion created successfully", result)
}
