package types

import (
	"fmt"
	"strings"
)

// RelationType is the type of a relationship in the graph.
type RelationType string

const (
	RatedRelation          RelationType = "RATED"
	SpokenLanguageRelation RelationType = "SPOKEN_LANGUAGE"
	GenreRelation          RelationType = "GENRE"
	WroteRelation          RelationType = "WROTE"
	DirectedRelation       RelationType = "DIRECTED"
	ActedInRelation        RelationType = "ACTED_IN"
	ProducedRelation       RelationType = "PRODUCED"
	CountryRelation        RelationType = "COUNTRY"
	ScoredRelation         RelationType = "SCORED"
	BelongsToRelation      RelationType = "BELONGS_TO"
)

// AllRelationTypes lists every relation type in a stable order.
var AllRelationTypes = []RelationType{
	RatedRelation,
	SpokenLanguageRelation,
	GenreRelation,
	WroteRelation,
	DirectedRelation,
	ActedInRelation,
	ProducedRelation,
	CountryRelation,
	ScoredRelation,
	BelongsToRelation,
}

// Valid reports whether t is one of the known relation types.
func (t RelationType) Valid() bool {
	for _, known := range AllRelationTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t RelationType) String() string {
	return string(t)
}

// ParseRelationType converts s into a RelationType, matching case-insensitively.
func ParseRelationType(s string) (RelationType, error) {
	for _, known := range AllRelationTypes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRelation, s)
}

// Edge is a directed, typed relationship between two existing nodes.
type Edge struct {
	Type       RelationType   `json:"type"`
	Source     NodeRef        `json:"source"`
	Target     NodeRef        `json:"target"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Validate checks the relation type and both endpoints.
func (e *Edge) Validate() error {
	if e == nil {
		return ErrNilEdge
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRelation, e.Type)
	}
	if err := e.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := e.Target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	return nil
}

// Key is the identity of the relationship, used for per-edge coordination.
func (e *Edge) Key() string {
	return e.Source.Key() + "-[" + string(e.Type) + "]->" + e.Target.Key()
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", e.Source, e.Type, e.Target)
}
