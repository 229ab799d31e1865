package driver

import (
	"context"

	"github.com/soundprediction/mediagraph/pkg/types"
)

// This file defines focused interfaces that follow the Interface Segregation Principle.
// GraphSession is composed from these smaller interfaces.
// Consumers should depend on the smallest interface that meets their needs.

// GraphReader answers existence questions. It has no side effects.
type GraphReader interface {
	// NodeExists reports whether a node with ref's label and name exists.
	NodeExists(ctx context.Context, ref types.NodeRef) (bool, error)

	// RelationExists reports whether source -[rel]-> target exists. An empty
	// target label matches a target node of any label.
	RelationExists(ctx context.Context, source types.NodeRef, rel types.RelationType, target types.NodeRef) (bool, error)
}

// GraphWriter creates nodes and edges. Nothing is ever updated in place.
type GraphWriter interface {
	// CreateNode creates exactly one node. It returns ErrAlreadyExists when a
	// uniqueness constraint rejects the write.
	CreateNode(ctx context.Context, node *types.Node) error

	// CreateEdge creates one edge between two existing nodes. It returns
	// ErrEndpointMissing when either endpoint is absent.
	CreateEdge(ctx context.Context, edge *types.Edge) error
}

// GraphAdmin provides administrative operations for database maintenance.
type GraphAdmin interface {
	// ClearAll detaches and deletes every node, returning the number deleted.
	ClearAll(ctx context.Context) (int64, error)

	// EnsureSchema creates name indices for every label, and uniqueness
	// constraints on name when unique is true.
	EnsureSchema(ctx context.Context, unique bool) error

	// Stats retrieves node and edge counts.
	Stats(ctx context.Context) (*GraphStats, error)
}

// GraphSession is a single logical session against the store.
type GraphSession interface {
	GraphReader
	GraphWriter
	GraphAdmin

	Close(ctx context.Context) error
}

var (
	_ GraphDriver  = (*Neo4jDriver)(nil)
	_ GraphDriver  = (*MemoryDriver)(nil)
	_ GraphSession = (*Neo4jSession)(nil)
	_ GraphSession = (*MemorySession)(nil)
)
