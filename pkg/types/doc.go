// Package types defines the core data types for the mediagraph property graph.
//
// This package contains the fundamental types used throughout mediagraph:
//   - NodeLabel: the closed set of node categories (titles and category nodes)
//   - RelationType: the closed set of relationship types
//   - Node/NodeRef and Edge: graph write operations
//   - Title: a catalog record for a movie, series or episode
//   - IngestResult: the terminal state of one ingestion
//
// # Labels and relation types
//
// Labels and relation types are the only values ever interpolated into query
// text. They are validated against the enumerations here before any query is
// built:
//
//	label, err := types.ParseNodeLabel("Genre")
//	if err != nil {
//	    // reject input
//	}
//
// # Edge direction
//
// Attribute-collection relations point from the title to the category node.
// SCORED points from the ScoreOutlet to the title and BELONGS_TO points from
// the episode to its series.
package types
