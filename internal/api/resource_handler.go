package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/api/shared"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/redact"
	"github.com/listas/listas-api/internal/service"
)

// ResourceHandler handles resource-related HTTP requests
type ResourceHandler struct {
	resourceService service.ResourceService
	logger          *slog.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(
	resourceService service.ResourceService,
	logger *slog.Logger,
) *ResourceHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ResourceHandler")
	}

	return &ResourceHandler{
		resourceService: resourceService,
		logger:          logger.With(slog.String("component", "resource_handler")),
	}
}

// CreateResource handles POST /resources requests
// It appends a new resource to a list; replication to subscribed lists and
// metadata enrichment happen asynchronously after the response.
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateResourceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	listID, err := uuid.Parse(req.ListID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid list ID format")
		return
	}

	resource, err := h.resourceService.CreateResource(r.Context(), service.CreateResourceParams{
		ListID:      listID,
		UserID:      userID,
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		Tags:        req.Tags,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("resource created via API",
		slog.String("resource_id", resource.ID.String()),
		slog.String("list_id", resource.ListID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, resourceToResponse(resource))
}

// RepositionResource handles PUT /resources/{id}/position requests
// A nil previous moves the resource to the front of its list; otherwise it
// lands directly after the named resource.
func (h *ResourceHandler) RepositionResource(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	resourceID, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req RepositionResourceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	listID, err := uuid.Parse(req.ListID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid list ID format")
		return
	}

	var previousID *uuid.UUID
	if req.Previous != nil {
		parsed, err := uuid.Parse(*req.Previous)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid previous resource ID format")
			return
		}
		previousID = &parsed
	}

	position, err := h.resourceService.Reposition(r.Context(), userID, resourceID, listID, previousID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("resource repositioned via API",
		slog.String("resource_id", resourceID.String()),
		slog.Int("position", position))
	shared.RespondWithJSON(w, r, http.StatusOK, RepositionResponse{
		ID:       resourceID.String(),
		Position: position,
	})
}

// CompleteResource handles POST /resources/{id}/complete requests
func (h *ResourceHandler) CompleteResource(w http.ResponseWriter, r *http.Request) {
	h.setCompletion(w, r, true)
}

// UncompleteResource handles DELETE /resources/{id}/complete requests
func (h *ResourceHandler) UncompleteResource(w http.ResponseWriter, r *http.Request) {
	h.setCompletion(w, r, false)
}

func (h *ResourceHandler) setCompletion(w http.ResponseWriter, r *http.Request, completed bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	resourceID, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	var err error
	if completed {
		err = h.resourceService.Complete(r.Context(), userID, resourceID)
	} else {
		err = h.resourceService.Uncomplete(r.Context(), userID, resourceID)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteResource handles DELETE /resources/{id} requests
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	resourceID, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.resourceService.Delete(r.Context(), userID, resourceID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireUserID extracts the authenticated user's ID from the request context
// (set by the identity middleware). Writes a 401 and returns false when absent.
func requireUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

// parseIDParam extracts and parses the {id} URL parameter.
// Writes a 400 and returns false when missing or malformed.
func parseIDParam(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		log.Warn("resource ID not found in URL path")
		shared.RespondWithError(w, r, http.StatusBadRequest, "Resource ID is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid resource ID format", slog.String("resource_id", raw))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid resource ID format")
		return uuid.Nil, false
	}
	return id, true
}
