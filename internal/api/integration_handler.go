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

// IntegrationHandler handles subscription-related HTTP requests
type IntegrationHandler struct {
	integrationService service.IntegrationService
	logger             *slog.Logger
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(
	integrationService service.IntegrationService,
	logger *slog.Logger,
) *IntegrationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for IntegrationHandler")
	}

	return &IntegrationHandler{
		integrationService: integrationService,
		logger:             logger.With(slog.String("component", "integration_handler")),
	}
}

// CreateSubscription handles POST /integrations requests
// It links a source list to a target list owned by the caller; from then on
// new resources in the source are replicated into the target.
func (h *IntegrationHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateSubscriptionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	sourceListID, err := uuid.Parse(req.SourceListID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid source list ID format")
		return
	}
	targetListID, err := uuid.Parse(req.TargetListID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid target list ID format")
		return
	}

	integration, err := h.integrationService.Subscribe(r.Context(), userID, sourceListID, targetListID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("subscription created via API",
		slog.String("integration_id", integration.ID.String()),
		slog.String("source_list_id", integration.SourceListID.String()),
		slog.String("target_list_id", integration.TargetListID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, integrationToResponse(integration))
}

// DeleteSubscription handles DELETE /integrations/{id} requests
func (h *IntegrationHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	integrationID, ok := parseIntegrationIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.integrationService.Unsubscribe(r.Context(), userID, integrationID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseIntegrationIDParam extracts and parses the {id} URL parameter.
// Writes a 400 and returns false when missing or malformed.
func parseIntegrationIDParam(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		log.Warn("integration ID not found in URL path")
		shared.RespondWithError(w, r, http.StatusBadRequest, "Integration ID is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid integration ID format", slog.String("integration_id", raw))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid integration ID format")
		return uuid.Nil, false
	}
	return id, true
}
