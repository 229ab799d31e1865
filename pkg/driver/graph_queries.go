package driver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/soundprediction/mediagraph/pkg/types"
)

// Labels and relation types are the only values interpolated into query text.
// Every builder below validates them against the closed enumerations first;
// names and attributes always travel as parameters.

// GetNameIndices returns provider-specific name index creation queries
func GetNameIndices(provider GraphProvider) []string {
	queries := make([]string, 0, len(types.AllNodeLabels))
	for _, label := range types.AllNodeLabels {
		switch provider {
		case GraphProviderMemgraph:
			queries = append(queries, fmt.Sprintf("CREATE INDEX ON :%s(name)", label))
		default: // Neo4j
			queries = append(queries, fmt.Sprintf(
				"CREATE INDEX %s_name IF NOT EXISTS FOR (n:%s) ON (n.name)",
				strings.ToLower(string(label)), label))
		}
	}
	return queries
}

// GetUniqueConstraints returns provider-specific uniqueness constraints on name
func GetUniqueConstraints(provider GraphProvider) []string {
	queries := make([]string, 0, len(types.AllNodeLabels))
	for _, label := range types.AllNodeLabels {
		switch provider {
		case GraphProviderMemgraph:
			queries = append(queries, fmt.Sprintf(
				"CREATE CONSTRAINT ON (n:%s) ASSERT n.name IS UNIQUE", label))
		default: // Neo4j
			queries = append(queries, fmt.Sprintf(
				"CREATE CONSTRAINT %s_name_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.name IS UNIQUE",
				strings.ToLower(string(label)), label))
		}
	}
	return queries
}

const (
	clearAllQuery = `MATCH (n) DETACH DELETE n RETURN count(n) AS deleted`

	nodeCountsQuery = `
		MATCH (n)
		UNWIND labels(n) AS label
		RETURN label, count(*) AS count
		ORDER BY label
	`

	edgeCountsQuery = `
		MATCH ()-[r]->()
		RETURN type(r) AS type, count(*) AS count
		ORDER BY type
	`
)

// QueryBuilder builds validated query templates and caches them per
// label or relation so each template is formatted once.
type QueryBuilder struct {
	provider GraphProvider
	cache    sync.Map
}

// NewQueryBuilder creates a new query builder for the specified provider
func NewQueryBuilder(provider GraphProvider) *QueryBuilder {
	return &QueryBuilder{provider: provider}
}

func (qb *QueryBuilder) cached(key string, build func() string) string {
	if q, ok := qb.cache.Load(key); ok {
		return q.(string)
	}
	q, _ := qb.cache.LoadOrStore(key, build())
	return q.(string)
}

// NodeExistsQuery matches a node by label and $name.
func (qb *QueryBuilder) NodeExistsQuery(label types.NodeLabel) (string, error) {
	if !label.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidLabel, label)
	}
	return qb.cached("exists:"+string(label), func() string {
		return fmt.Sprintf(`MATCH (n:%s {name: $name}) RETURN count(n) AS count`, label)
	}), nil
}

// RelationExistsQuery matches ($source)-[rel]->($target). An empty target
// label leaves the target unlabeled.
func (qb *QueryBuilder) RelationExistsQuery(source types.NodeLabel, rel types.RelationType, target types.NodeLabel) (string, error) {
	if !source.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidLabel, source)
	}
	if !rel.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidRelation, rel)
	}
	if target != "" && !target.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidLabel, target)
	}
	key := fmt.Sprintf("relexists:%s:%s:%s", source, rel, target)
	return qb.cached(key, func() string {
		return fmt.Sprintf(
			`MATCH (a:%s {name: $source})-[r:%s]->(b%s {name: $target}) RETURN count(r) AS count`,
			source, rel, labelSuffix(target))
	}), nil
}

// CreateNodeQuery creates a node with $name and $props.
func (qb *QueryBuilder) CreateNodeQuery(label types.NodeLabel) (string, error) {
	if !label.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidLabel, label)
	}
	return qb.cached("create:"+string(label), func() string {
		return fmt.Sprintf(`CREATE (n:%s {name: $name}) SET n += $props RETURN count(n) AS count`, label)
	}), nil
}

// CreateEdgeQuery matches both endpoints by name and creates one edge with
// $props. It returns zero rows when either endpoint is absent.
func (qb *QueryBuilder) CreateEdgeQuery(source types.NodeLabel, rel types.RelationType, target types.NodeLabel) (string, error) {
	if !source.Valid() || !target.Valid() {
		return "", fmt.Errorf("%w: %q -> %q", types.ErrInvalidLabel, source, target)
	}
	if !rel.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidRelation, rel)
	}
	key := fmt.Sprintf("createedge:%s:%s:%s", source, rel, target)
	return qb.cached(key, func() string {
		return fmt.Sprintf(
			`MATCH (a:%s {name: $source}), (b:%s {name: $target}) CREATE (a)-[r:%s]->(b) SET r += $props RETURN count(r) AS count`,
			source, target, rel)
	}), nil
}

// SchemaQueries returns the schema statements for this provider. Uniqueness
// constraints imply an index on Neo4j, so indices are only added without them.
func (qb *QueryBuilder) SchemaQueries(unique bool) []string {
	if unique {
		if qb.provider == GraphProviderMemgraph {
			return append(GetNameIndices(qb.provider), GetUniqueConstraints(qb.provider)...)
		}
		return GetUniqueConstraints(qb.provider)
	}
	return GetNameIndices(qb.provider)
}

func labelSuffix(label types.NodeLabel) string {
	if label == "" {
		return ""
	}
	return ":" + string(label)
}
