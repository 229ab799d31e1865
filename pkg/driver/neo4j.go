package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/soundprediction/mediagraph/pkg/types"
)

// Neo4jDriver implements GraphDriver for Bolt stores (Neo4j and Memgraph).
type Neo4jDriver struct {
	client   neo4j.DriverWithContext
	provider GraphProvider
	database string
	queries  *QueryBuilder
}

// NewNeo4jDriver creates a new Bolt driver instance. Creating the driver does
// not connect; call VerifyConnectivity before first use.
func NewNeo4jDriver(cfg Config) (*Neo4jDriver, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = GraphProviderNeo4j
	}
	if provider != GraphProviderNeo4j && provider != GraphProviderMemgraph {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectTimeout > 0 {
				c.SocketConnectTimeout = cfg.ConnectTimeout
				c.ConnectionAcquisitionTimeout = cfg.ConnectTimeout
			}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", provider, err)
	}

	database := cfg.Database
	if database == "" && provider == GraphProviderNeo4j {
		database = "neo4j"
	}

	return &Neo4jDriver{
		client:   client,
		provider: provider,
		database: database,
		queries:  NewQueryBuilder(provider),
	}, nil
}

// Session opens the long-lived session owned by one orchestrator.
func (n *Neo4jDriver) Session(ctx context.Context) (GraphSession, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	return &Neo4jSession{
		session:  session,
		queries:  n.queries,
		provider: n.provider,
	}, nil
}

// VerifyConnectivity checks if the driver can connect to the database.
func (n *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	if err := n.client.VerifyConnectivity(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// Provider returns the provider type.
func (n *Neo4jDriver) Provider() GraphProvider {
	return n.provider
}

// Close closes the driver and all pooled connections.
func (n *Neo4jDriver) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}

// Neo4jSession implements GraphSession over a single neo4j session.
type Neo4jSession struct {
	session  neo4j.SessionWithContext
	queries  *QueryBuilder
	provider GraphProvider
	closed   bool
}

// NodeExists checks if a node exists in the database.
func (s *Neo4jSession) NodeExists(ctx context.Context, ref types.NodeRef) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	query, err := s.queries.NodeExistsQuery(ref.Label)
	if err != nil {
		return false, err
	}
	count, err := s.readCount(ctx, query, map[string]any{"name": ref.Name})
	if err != nil {
		return false, fmt.Errorf("check node %s: %w", ref, err)
	}
	return count > 0, nil
}

// RelationExists checks if source -[rel]-> target exists.
func (s *Neo4jSession) RelationExists(ctx context.Context, source types.NodeRef, rel types.RelationType, target types.NodeRef) (bool, error) {
	if err := source.Validate(); err != nil {
		return false, fmt.Errorf("source: %w", err)
	}
	if strings.TrimSpace(target.Name) == "" {
		return false, fmt.Errorf("target: %w", types.ErrEmptyName)
	}
	query, err := s.queries.RelationExistsQuery(source.Label, rel, target.Label)
	if err != nil {
		return false, err
	}
	count, err := s.readCount(ctx, query, map[string]any{
		"source": source.Name,
		"target": target.Name,
	})
	if err != nil {
		return false, fmt.Errorf("check relation %s -[%s]-> %q: %w", source, rel, target.Name, err)
	}
	return count > 0, nil
}

// CreateNode creates exactly one node.
func (s *Neo4jSession) CreateNode(ctx context.Context, node *types.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	query, err := s.queries.CreateNodeQuery(node.Label)
	if err != nil {
		return err
	}
	props := node.Properties
	if props == nil {
		props = map[string]any{}
	}

	_, err = s.writeCount(ctx, query, map[string]any{
		"name":  node.Name,
		"props": props,
	})
	if err != nil {
		return fmt.Errorf("create node %s: %w", node.Ref(), err)
	}
	return nil
}

// CreateEdge creates one edge between two existing nodes.
func (s *Neo4jSession) CreateEdge(ctx context.Context, edge *types.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	query, err := s.queries.CreateEdgeQuery(edge.Source.Label, edge.Type, edge.Target.Label)
	if err != nil {
		return err
	}
	props := edge.Properties
	if props == nil {
		props = map[string]any{}
	}

	created, err := s.writeCount(ctx, query, map[string]any{
		"source": edge.Source.Name,
		"target": edge.Target.Name,
		"props":  props,
	})
	if err != nil {
		return fmt.Errorf("create edge %s: %w", edge, err)
	}
	if created == 0 {
		return fmt.Errorf("create edge %s: %w", edge, ErrEndpointMissing)
	}
	return nil
}

// ClearAll detaches and deletes every node.
func (s *Neo4jSession) ClearAll(ctx context.Context) (int64, error) {
	deleted, err := s.writeCount(ctx, clearAllQuery, nil)
	if err != nil {
		return 0, fmt.Errorf("clear graph: %w", err)
	}
	return deleted, nil
}

// EnsureSchema creates indices (and optionally constraints). Schema
// statements run in auto-commit transactions, which Memgraph requires.
func (s *Neo4jSession) EnsureSchema(ctx context.Context, unique bool) error {
	if s.closed {
		return ErrSessionClosed
	}
	for _, query := range s.queries.SchemaQueries(unique) {
		res, err := s.session.Run(ctx, query, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil && !isAlreadyDefined(err) {
			return fmt.Errorf("schema %q: %w", query, classifyError(err))
		}
	}
	return nil
}

// Stats retrieves node and edge counts by label and type.
func (s *Neo4jSession) Stats(ctx context.Context) (*GraphStats, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	result, err := s.session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stats := &GraphStats{
			NodesByLabel: make(map[string]int64),
			EdgesByType:  make(map[string]int64),
		}

		nodeRes, err := tx.Run(ctx, nodeCountsQuery, nil)
		if err != nil {
			return nil, err
		}
		nodeRecords, err := nodeRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, record := range nodeRecords {
			label, _ := record.Get("label")
			count, _ := record.Get("count")
			l, ok := AsString(label)
			if !ok {
				continue
			}
			c, _ := AsInt64(count)
			stats.NodesByLabel[l] = c
		}

		edgeRes, err := tx.Run(ctx, edgeCountsQuery, nil)
		if err != nil {
			return nil, err
		}
		edgeRecords, err := edgeRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, record := range edgeRecords {
			relType, _ := record.Get("type")
			count, _ := record.Get("count")
			t, ok := AsString(relType)
			if !ok {
				continue
			}
			c, _ := AsInt64(count)
			stats.EdgesByType[t] = c
			stats.EdgeCount += c
		}
		return stats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph stats: %w", classifyError(err))
	}

	stats := result.(*GraphStats)
	// Every node here carries exactly one label.
	for _, c := range stats.NodesByLabel {
		stats.NodeCount += c
	}
	stats.LastUpdated = time.Now()
	return stats, nil
}

// Close closes the underlying session.
func (s *Neo4jSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.session.Close(ctx)
}

func (s *Neo4jSession) readCount(ctx context.Context, query string, params map[string]any) (int64, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	result, err := s.session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return singleCount(ctx, tx, query, params)
	})
	if err != nil {
		return 0, classifyError(err)
	}
	return result.(int64), nil
}

func (s *Neo4jSession) writeCount(ctx context.Context, query string, params map[string]any) (int64, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	result, err := s.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return singleCount(ctx, tx, query, params)
	})
	if err != nil {
		return 0, classifyError(err)
	}
	return result.(int64), nil
}

func singleCount(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) (int64, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return 0, err
	}
	value, _ := record.Get("count")
	if value == nil {
		value, _ = record.Get("deleted")
	}
	return MustInt64(value, "count")
}

// classifyError maps driver errors onto the package sentinels while keeping
// the original error in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security."):
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		case neoErr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed":
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		case strings.Contains(strings.ToLower(neoErr.Msg), "unique constraint violation"):
			// Memgraph reports constraint violations with a generic code.
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}
		return err
	}

	if neo4j.IsConnectivityError(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "authentication failure"):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"), strings.Contains(msg, "i/o timeout"):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func isAlreadyDefined(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "An equivalent") ||
		strings.Contains(msg, "EquivalentSchemaRuleAlreadyExists")
}
