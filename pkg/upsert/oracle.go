package upsert

import (
	"context"

	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
)

// Oracle answers whether nodes and relationships already exist. Answers are
// only as fresh as the read; callers that act on them hold the key lock.
type Oracle struct {
	reader driver.GraphReader
}

// NewOracle creates an Oracle over reader.
func NewOracle(reader driver.GraphReader) *Oracle {
	return &Oracle{reader: reader}
}

// Exists reports whether a node named name exists under label.
func (o *Oracle) Exists(ctx context.Context, name string, label types.NodeLabel) (bool, error) {
	return o.reader.NodeExists(ctx, types.NodeRef{Label: label, Name: name})
}

// RelationExists reports whether (sourceLabel {name: sourceName})-[rel]->({name: targetName})
// exists, whatever the target's label.
func (o *Oracle) RelationExists(ctx context.Context, sourceName string, sourceLabel types.NodeLabel, targetName string, rel types.RelationType) (bool, error) {
	source := types.NodeRef{Label: sourceLabel, Name: sourceName}
	return o.reader.RelationExists(ctx, source, rel, types.NodeRef{Name: targetName})
}

// EdgeExists reports whether an edge of the same type joins the same two
// labeled endpoints.
func (o *Oracle) EdgeExists(ctx context.Context, edge *types.Edge) (bool, error) {
	return o.reader.RelationExists(ctx, edge.Source, edge.Type, edge.Target)
}
