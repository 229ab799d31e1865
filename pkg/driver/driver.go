package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GraphProvider represents the type of graph database provider
type GraphProvider string

const (
	GraphProviderNeo4j    GraphProvider = "neo4j"
	GraphProviderMemgraph GraphProvider = "memgraph"
	GraphProviderMemory   GraphProvider = "memory"
)

// ParseGraphProvider converts a configuration value into a GraphProvider.
func ParseGraphProvider(s string) (GraphProvider, error) {
	switch GraphProvider(strings.ToLower(strings.TrimSpace(s))) {
	case GraphProviderNeo4j:
		return GraphProviderNeo4j, nil
	case GraphProviderMemgraph:
		return GraphProviderMemgraph, nil
	case GraphProviderMemory:
		return GraphProviderMemory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
}

var (
	// ErrAlreadyExists is returned by CreateNode when a uniqueness constraint
	// rejects the write. Callers treat it as the duplicate signal.
	ErrAlreadyExists = errors.New("node already exists")

	// ErrEndpointMissing is returned by CreateEdge when either endpoint is absent.
	ErrEndpointMissing = errors.New("edge endpoint not found")

	// ErrUnauthorized is returned when the store rejects the credentials.
	ErrUnauthorized = errors.New("graph store rejected credentials")

	// ErrUnavailable is returned when the store cannot be reached.
	ErrUnavailable = errors.New("graph store unavailable")

	ErrUnsupportedProvider = errors.New("unsupported graph provider")
	ErrSessionClosed       = errors.New("session closed")
)

// Config holds the connection settings for a graph driver.
type Config struct {
	Provider              GraphProvider
	URI                   string
	Username              string
	Password              string
	Database              string
	MaxConnectionPoolSize int
	ConnectTimeout        time.Duration
}

// GraphDriver owns the connection to a graph store and hands out sessions.
type GraphDriver interface {
	// Session opens a session. Sessions are not safe for concurrent use;
	// each orchestrator owns exactly one.
	Session(ctx context.Context) (GraphSession, error)

	// VerifyConnectivity fails with ErrUnauthorized or ErrUnavailable when
	// the store cannot be used.
	VerifyConnectivity(ctx context.Context) error

	Provider() GraphProvider
	Close(ctx context.Context) error
}

// GraphStats holds statistics about the graph.
type GraphStats struct {
	NodeCount    int64            `json:"node_count"`
	EdgeCount    int64            `json:"edge_count"`
	NodesByLabel map[string]int64 `json:"nodes_by_label"`
	EdgesByType  map[string]int64 `json:"edges_by_type"`
	LastUpdated  time.Time        `json:"last_updated"`
}

// NewDriver creates the driver for cfg.Provider.
func NewDriver(cfg Config) (GraphDriver, error) {
	switch cfg.Provider {
	case GraphProviderNeo4j, GraphProviderMemgraph:
		return NewNeo4jDriver(cfg)
	case GraphProviderMemory:
		return NewMemoryDriver(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
