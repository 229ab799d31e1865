package dto

import (
	"github.com/soundprediction/mediagraph/pkg/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// ClearResponse is the body of DELETE /api/v1/graph.
type ClearResponse struct {
	NodesDeleted int64 `json:"nodes_deleted"`
}

// BatchResponse is the body of POST /api/v1/titles.
type BatchResponse struct {
	Results []*types.IngestResult `json:"results"`
	Summary map[types.Outcome]int `json:"summary"`
}
