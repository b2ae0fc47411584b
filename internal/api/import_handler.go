package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/api/shared"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/redact"
	"github.com/listas/listas-api/internal/service"
)

// ImportHandler handles bulk import HTTP requests
type ImportHandler struct {
	importService service.ImportService
	logger        *slog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(
	importService service.ImportService,
	logger *slog.Logger,
) *ImportHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ImportHandler")
	}

	return &ImportHandler{
		importService: importService,
		logger:        logger.With(slog.String("component", "import_handler")),
	}
}

// ImportResources handles POST /import-resources requests
// It parses the payload into URLs and queues a background batch; the 202
// response only means the batch was accepted, not that resources exist yet.
func (h *ImportHandler) ImportResources(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req ImportResourcesRequest
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

	queued, err := h.importService.Import(r.Context(), service.ImportParams{
		ListID:  listID,
		UserID:  userID,
		Payload: req.Payload,
		Format:  req.Format,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("import accepted",
		slog.String("list_id", listID.String()),
		slog.Int("queued", queued))
	shared.RespondWithJSON(w, r, http.StatusAccepted, ImportResponse{Queued: queued})
}
