package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mediagraph"
	"github.com/soundprediction/mediagraph/pkg/server/dto"
)

// IngestHandler handles title ingestion requests
type IngestHandler struct {
	engine Engine
	logger *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(e Engine, logger *slog.Logger) *IngestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestHandler{
		engine: e,
		logger: logger,
	}
}

// IngestTitle handles POST /api/v1/titles/:id. It runs the pipeline
// synchronously and returns the IngestResult.
func (h *IngestHandler) IngestTitle(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := dto.ValidateTitleID(id); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.engine.Ingest(c.Request.Context(), id)
	if err != nil {
		status, code := statusForError(err)
		h.logger.ErrorContext(c.Request.Context(), "Failed to ingest title", "id", id, "status", status, "error", err)
		if result != nil {
			c.JSON(status, result)
			return
		}
		writeError(c, status, code, err)
		return
	}

	c.JSON(statusForOutcome(result.Outcome), result)
}

// IngestBatch handles POST /api/v1/titles with a list of ids.
func (h *IngestHandler) IngestBatch(c *gin.Context) {
	var req dto.IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	results, err := h.engine.IngestMany(c.Request.Context(), req.IDs, req.Workers)
	if err != nil {
		status, code := statusForError(err)
		h.logger.ErrorContext(c.Request.Context(), "Failed to ingest batch", "titles", len(req.IDs), "error", err)
		writeError(c, status, code, err)
		return
	}

	c.JSON(http.StatusOK, dto.BatchResponse{
		Results: results,
		Summary: mediagraph.Summarize(results),
	})
}
