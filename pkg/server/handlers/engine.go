package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mediagraph"
	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/omdb"
	"github.com/soundprediction/mediagraph/pkg/server/dto"
	"github.com/soundprediction/mediagraph/pkg/types"
)

// Engine is the part of *mediagraph.Client the handlers use.
type Engine interface {
	Ingest(ctx context.Context, id string) (*types.IngestResult, error)
	IngestMany(ctx context.Context, ids []string, workers int) ([]*types.IngestResult, error)
	Stats(ctx context.Context) (*driver.GraphStats, error)
	ClearDB(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Provider() driver.GraphProvider
}

var _ Engine = (*mediagraph.Client)(nil)

func writeError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, dto.ErrorResponse{
		Error:   code,
		Message: err.Error(),
		Code:    status,
	})
}

// statusForError maps engine errors onto HTTP statuses.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, omdb.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, driver.ErrUnauthorized),
		errors.Is(err, driver.ErrUnavailable),
		errors.Is(err, mediagraph.ErrClientClosed):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, types.ErrEmptyID):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusBadGateway, "ingest_failed"
	}
}

// statusForOutcome is the response status for a completed pipeline.
func statusForOutcome(o types.Outcome) int {
	switch o {
	case types.OutcomeCreated:
		return http.StatusCreated
	case types.OutcomeUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
