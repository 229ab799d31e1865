package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestBatchRequestValidate(t *testing.T) {
	req := IngestBatchRequest{IDs: []string{" tt0111161 ", "tt0903747"}, Workers: 2}
	assert.NoError(t, req.Validate())
	assert.Equal(t, "tt0111161", req.IDs[0])

	tests := []struct {
		name string
		req  IngestBatchRequest
		want error
	}{
		{"empty", IngestBatchRequest{}, ErrEmptyIDs},
		{"too many", IngestBatchRequest{IDs: strings.Split(strings.Repeat("tt0111161,", MaxBatchIDs+1), ",")}, ErrTooManyIDs},
		{"bad id", IngestBatchRequest{IDs: []string{"tt0111161", "nm0000151"}}, ErrInvalidID},
		{"bad workers", IngestBatchRequest{IDs: []string{"tt0111161"}, Workers: MaxWorkers + 1}, ErrTooManyWorkers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.req.Validate(), tt.want)
		})
	}
}
