package driver

import (
	"strings"
	"testing"

	"github.com/soundprediction/mediagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNameIndices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider GraphProvider
		contains string
	}{
		{"neo4j", GraphProviderNeo4j, "CREATE INDEX movie_name IF NOT EXISTS FOR (n:Movie) ON (n.name)"},
		{"memgraph", GraphProviderMemgraph, "CREATE INDEX ON :Movie(name)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			queries := GetNameIndices(tt.provider)
			assert.Len(t, queries, len(types.AllNodeLabels))
			assert.Contains(t, queries, tt.contains)
		})
	}
}

func TestGetUniqueConstraints(t *testing.T) {
	t.Parallel()

	neo := GetUniqueConstraints(GraphProviderNeo4j)
	assert.Contains(t, neo, "CREATE CONSTRAINT scoreoutlet_name_unique IF NOT EXISTS FOR (n:ScoreOutlet) REQUIRE n.name IS UNIQUE")

	mg := GetUniqueConstraints(GraphProviderMemgraph)
	assert.Contains(t, mg, "CREATE CONSTRAINT ON (n:Person) ASSERT n.name IS UNIQUE")
}

func TestSchemaQueries(t *testing.T) {
	t.Parallel()

	n := len(types.AllNodeLabels)
	assert.Len(t, NewQueryBuilder(GraphProviderNeo4j).SchemaQueries(false), n)
	assert.Len(t, NewQueryBuilder(GraphProviderNeo4j).SchemaQueries(true), n)
	assert.Len(t, NewQueryBuilder(GraphProviderMemgraph).SchemaQueries(true), 2*n)
}

func TestQueryBuilderRejectsUnknownIdentifiers(t *testing.T) {
	t.Parallel()

	qb := NewQueryBuilder(GraphProviderNeo4j)

	_, err := qb.NodeExistsQuery("Movie) DETACH DELETE (m")
	assert.ErrorIs(t, err, types.ErrInvalidLabel)

	_, err = qb.CreateNodeQuery("")
	assert.ErrorIs(t, err, types.ErrInvalidLabel)

	_, err = qb.RelationExistsQuery(types.MovieLabel, "KNOWS", types.GenreLabel)
	assert.ErrorIs(t, err, types.ErrInvalidRelation)

	_, err = qb.CreateEdgeQuery(types.MovieLabel, types.GenreRelation, "Tag")
	assert.ErrorIs(t, err, types.ErrInvalidLabel)
}

func TestQueryBuilderTemplates(t *testing.T) {
	t.Parallel()

	qb := NewQueryBuilder(GraphProviderNeo4j)

	q, err := qb.NodeExistsQuery(types.GenreLabel)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:Genre {name: $name}) RETURN count(n) AS count", q)

	q, err = qb.RelationExistsQuery(types.ScoreOutletLabel, types.ScoredRelation, "")
	require.NoError(t, err)
	assert.Contains(t, q, "(a:ScoreOutlet {name: $source})-[r:SCORED]->(b {name: $target})")

	q, err = qb.RelationExistsQuery(types.EpisodeLabel, types.BelongsToRelation, types.SeriesLabel)
	require.NoError(t, err)
	assert.Contains(t, q, "(b:Series {name: $target})")

	q, err = qb.CreateEdgeQuery(types.MovieLabel, types.DirectedRelation, types.PersonLabel)
	require.NoError(t, err)
	assert.Contains(t, q, "CREATE (a)-[r:DIRECTED]->(b)")
	assert.True(t, strings.Contains(q, "$props"))

	// Templates are cached per identifier.
	again, err := qb.CreateEdgeQuery(types.MovieLabel, types.DirectedRelation, types.PersonLabel)
	require.NoError(t, err)
	assert.Equal(t, q, again)
}

func TestParseGraphProvider(t *testing.T) {
	t.Parallel()

	p, err := ParseGraphProvider("Memgraph")
	require.NoError(t, err)
	assert.Equal(t, GraphProviderMemgraph, p)

	_, err = ParseGraphProvider("falkordb")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}
