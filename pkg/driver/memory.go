package driver

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/mediagraph/pkg/types"
)

// MemoryDriver is an in-process graph store with the same contract as the
// Bolt driver. Like a store without constraints it accepts duplicate names
// until EnsureSchema is called with unique set.
type MemoryDriver struct {
	mu     sync.RWMutex
	nodes  map[types.NodeRef][]map[string]any
	edges  []types.Edge
	unique bool
	closed bool
}

// NewMemoryDriver creates an empty in-memory graph.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		nodes: make(map[types.NodeRef][]map[string]any),
	}
}

// Session returns a session over the shared in-memory graph.
func (m *MemoryDriver) Session(_ context.Context) (GraphSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	return &MemorySession{store: m}, nil
}

// VerifyConnectivity fails only after Close.
func (m *MemoryDriver) VerifyConnectivity(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrUnavailable
	}
	return nil
}

// Provider returns the provider type.
func (m *MemoryDriver) Provider() GraphProvider {
	return GraphProviderMemory
}

// Close marks the driver closed. The graph contents are discarded.
func (m *MemoryDriver) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.nodes = make(map[types.NodeRef][]map[string]any)
	m.edges = nil
	return nil
}

// NodeCount returns the number of nodes carrying ref's label and name.
func (m *MemoryDriver) NodeCount(ref types.NodeRef) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes[ref])
}

// NodeProperties returns a copy of the first node matching ref.
func (m *MemoryDriver) NodeProperties(ref types.NodeRef) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := m.nodes[ref]
	if len(found) == 0 {
		return nil, false
	}
	return maps.Clone(found[0]), true
}

// Nodes returns the refs of all nodes with label, sorted by name. Duplicate
// nodes appear once per copy.
func (m *MemoryDriver) Nodes(label types.NodeLabel) []types.NodeRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var refs []types.NodeRef
	for ref, copies := range m.nodes {
		if ref.Label != label {
			continue
		}
		for range copies {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs
}

// Edges returns a copy of every edge, optionally filtered by type.
func (m *MemoryDriver) Edges(rel types.RelationType) []types.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var edges []types.Edge
	for _, e := range m.edges {
		if rel != "" && e.Type != rel {
			continue
		}
		e.Properties = maps.Clone(e.Properties)
		edges = append(edges, e)
	}
	return edges
}

// MemorySession implements GraphSession over a MemoryDriver.
type MemorySession struct {
	store  *MemoryDriver
	closed bool
}

func (s *MemorySession) check(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	return ctx.Err()
}

// NodeExists checks if a node exists in the graph.
func (s *MemorySession) NodeExists(ctx context.Context, ref types.NodeRef) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if err := ref.Validate(); err != nil {
		return false, err
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return len(s.store.nodes[ref]) > 0, nil
}

// RelationExists checks if source -[rel]-> target exists.
func (s *MemorySession) RelationExists(ctx context.Context, source types.NodeRef, rel types.RelationType, target types.NodeRef) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if err := source.Validate(); err != nil {
		return false, fmt.Errorf("source: %w", err)
	}
	if !rel.Valid() {
		return false, fmt.Errorf("%w: %q", types.ErrInvalidRelation, rel)
	}
	if strings.TrimSpace(target.Name) == "" {
		return false, fmt.Errorf("target: %w", types.ErrEmptyName)
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	for _, e := range s.store.edges {
		if e.Type != rel || e.Source != source || e.Target.Name != target.Name {
			continue
		}
		if target.Label == "" || e.Target.Label == target.Label {
			return true, nil
		}
	}
	return false, nil
}

// CreateNode creates exactly one node.
func (s *MemorySession) CreateNode(ctx context.Context, node *types.Node) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := node.Validate(); err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	ref := node.Ref()
	if s.store.unique && len(s.store.nodes[ref]) > 0 {
		return fmt.Errorf("create node %s: %w", ref, ErrAlreadyExists)
	}
	props := maps.Clone(node.Properties)
	if props == nil {
		props = make(map[string]any)
	}
	props["name"] = node.Name
	s.store.nodes[ref] = append(s.store.nodes[ref], props)
	return nil
}

// CreateEdge creates one edge between two existing nodes.
func (s *MemorySession) CreateEdge(ctx context.Context, edge *types.Edge) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := edge.Validate(); err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if len(s.store.nodes[edge.Source]) == 0 || len(s.store.nodes[edge.Target]) == 0 {
		return fmt.Errorf("create edge %s: %w", edge, ErrEndpointMissing)
	}
	created := *edge
	created.Properties = maps.Clone(edge.Properties)
	s.store.edges = append(s.store.edges, created)
	return nil
}

// ClearAll detaches and deletes every node.
func (s *MemorySession) ClearAll(ctx context.Context) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var deleted int64
	for _, copies := range s.store.nodes {
		deleted += int64(len(copies))
	}
	s.store.nodes = make(map[types.NodeRef][]map[string]any)
	s.store.edges = nil
	return deleted, nil
}

// EnsureSchema enables name uniqueness when unique is true. Indices are a
// no-op in memory.
func (s *MemorySession) EnsureSchema(ctx context.Context, unique bool) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if !unique {
		return nil
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for ref, copies := range s.store.nodes {
		if len(copies) > 1 {
			return fmt.Errorf("unique constraint on %s: %d nodes share the name", ref, len(copies))
		}
	}
	s.store.unique = true
	return nil
}

// Stats retrieves node and edge counts by label and type.
func (s *MemorySession) Stats(ctx context.Context) (*GraphStats, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	stats := &GraphStats{
		NodesByLabel: make(map[string]int64),
		EdgesByType:  make(map[string]int64),
		LastUpdated:  time.Now(),
	}
	for ref, copies := range s.store.nodes {
		stats.NodesByLabel[string(ref.Label)] += int64(len(copies))
		stats.NodeCount += int64(len(copies))
	}
	for _, e := range s.store.edges {
		stats.EdgesByType[string(e.Type)]++
		stats.EdgeCount++
	}
	return stats, nil
}

// Close closes the session. The shared graph is untouched.
func (s *MemorySession) Close(_ context.Context) error {
	s.closed = true
	return nil
}
