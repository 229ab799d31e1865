package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrEmptyIDs       = errors.New("ids cannot be empty")
	ErrTooManyIDs     = fmt.Errorf("ids exceeds maximum count (%d)", MaxBatchIDs)
	ErrInvalidID      = errors.New("invalid title id")
	ErrTooManyWorkers = fmt.Errorf("workers exceeds maximum (%d)", MaxWorkers)
)

// Request limits
const (
	MaxBatchIDs = 500
	MaxWorkers  = 32
)

var titleIDPattern = regexp.MustCompile(`^tt\d{7,10}$`)

// ValidateTitleID checks the shape of an IMDb title id.
func ValidateTitleID(id string) error {
	if !titleIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// IngestBatchRequest represents a request to ingest several titles
type IngestBatchRequest struct {
	IDs     []string `json:"ids" binding:"required"`
	Workers int      `json:"workers,omitempty"`
}

// Validate trims ids in place and checks limits.
func (r *IngestBatchRequest) Validate() error {
	if len(r.IDs) == 0 {
		return ErrEmptyIDs
	}
	if len(r.IDs) > MaxBatchIDs {
		return ErrTooManyIDs
	}
	if r.Workers < 0 || r.Workers > MaxWorkers {
		return ErrTooManyWorkers
	}
	for i, id := range r.IDs {
		r.IDs[i] = strings.TrimSpace(id)
		if err := ValidateTitleID(r.IDs[i]); err != nil {
			return fmt.Errorf("ids[%d]: %w", i, err)
		}
	}
	return nil
}
