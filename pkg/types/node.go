package types

import (
	"fmt"
	"strings"
)

// NodeLabel is the category of a node in the graph.
type NodeLabel string

const (
	MovieLabel       NodeLabel = "Movie"
	SeriesLabel      NodeLabel = "Series"
	EpisodeLabel     NodeLabel = "Episode"
	PersonLabel      NodeLabel = "Person"
	ProducerLabel    NodeLabel = "Producer"
	GenreLabel       NodeLabel = "Genre"
	LanguageLabel    NodeLabel = "Language"
	CountryLabel     NodeLabel = "Country"
	RatingLabel      NodeLabel = "Rating"
	ScoreOutletLabel NodeLabel = "ScoreOutlet"
)

// AllNodeLabels lists every label in a stable order.
var AllNodeLabels = []NodeLabel{
	MovieLabel,
	SeriesLabel,
	EpisodeLabel,
	PersonLabel,
	ProducerLabel,
	GenreLabel,
	LanguageLabel,
	CountryLabel,
	RatingLabel,
	ScoreOutletLabel,
}

// Valid reports whether l is one of the known labels.
func (l NodeLabel) Valid() bool {
	for _, known := range AllNodeLabels {
		if l == known {
			return true
		}
	}
	return false
}

// IsTitle reports whether l is one of the Title variants.
func (l NodeLabel) IsTitle() bool {
	return l == MovieLabel || l == SeriesLabel || l == EpisodeLabel
}

func (l NodeLabel) String() string {
	return string(l)
}

// ParseNodeLabel converts s into a NodeLabel, matching case-insensitively.
func ParseNodeLabel(s string) (NodeLabel, error) {
	for _, known := range AllNodeLabels {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLabel, s)
}

// NodeRef identifies a node by label and name.
type NodeRef struct {
	Label NodeLabel `json:"label"`
	Name  string    `json:"name"`
}

// Validate checks the label and name of the reference.
func (r NodeRef) Validate() error {
	if !r.Label.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, r.Label)
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Key is the identity of the node, used for per-name coordination.
func (r NodeRef) Key() string {
	return string(r.Label) + ":" + r.Name
}

func (r NodeRef) String() string {
	return fmt.Sprintf("(%s %q)", r.Label, r.Name)
}

// Node is a node to be written to the graph. Properties never include the
// name, which is carried separately as the identifying attribute.
type Node struct {
	Label      NodeLabel      `json:"label"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Ref returns the identity of the node.
func (n *Node) Ref() NodeRef {
	return NodeRef{Label: n.Label, Name: n.Name}
}

// Validate checks the node before it is written.
func (n *Node) Validate() error {
	if n == nil {
		return ErrNilNode
	}
	return n.Ref().Validate()
}
