package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mediagraph/pkg/server/dto"
)

// GraphHandler serves graph-wide statistics and maintenance.
type GraphHandler struct {
	engine Engine
	logger *slog.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(e Engine, logger *slog.Logger) *GraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHandler{engine: e, logger: logger}
}

// Stats handles GET /api/v1/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		status, code := statusForError(err)
		writeError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClearGraph handles DELETE /api/v1/graph?confirm=true
func (h *GraphHandler) ClearGraph(c *gin.Context) {
	if c.Query("confirm") != "true" {
		writeError(c, http.StatusBadRequest, "confirmation_required", errors.New("pass confirm=true to delete every node"))
		return
	}

	deleted, err := h.engine.ClearDB(c.Request.Context())
	if err != nil {
		status, code := statusForError(err)
		writeError(c, status, code, err)
		return
	}
	h.logger.WarnContext(c.Request.Context(), "Graph cleared over HTTP", "nodes_deleted", deleted, "client_ip", c.ClientIP())
	c.JSON(http.StatusOK, dto.ClearResponse{NodesDeleted: deleted})
}
