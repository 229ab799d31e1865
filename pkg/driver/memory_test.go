package driver_test

import (
	"context"
	"sync"
	"testing"

	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemorySession(t *testing.T) (*driver.MemoryDriver, driver.GraphSession) {
	t.Helper()
	d := driver.NewMemoryDriver()
	s, err := d.Session(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return d, s
}

func TestMemorySessionNodes(t *testing.T) {
	ctx := context.Background()
	d, s := newMemorySession(t)

	drama := types.NodeRef{Label: types.GenreLabel, Name: "Drama"}
	exists, err := s.NodeExists(ctx, drama)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateNode(ctx, &types.Node{Label: types.GenreLabel, Name: "Drama"}))

	exists, err = s.NodeExists(ctx, drama)
	require.NoError(t, err)
	assert.True(t, exists)

	// Same name under another label is a different node.
	exists, err = s.NodeExists(ctx, types.NodeRef{Label: types.PersonLabel, Name: "Drama"})
	require.NoError(t, err)
	assert.False(t, exists)

	props, ok := d.NodeProperties(drama)
	require.True(t, ok)
	assert.Equal(t, "Drama", props["name"])
}

func TestMemorySessionUniqueness(t *testing.T) {
	ctx := context.Background()
	d, s := newMemorySession(t)
	node := &types.Node{Label: types.MovieLabel, Name: "tt0111161"}

	// Without constraints the store accepts duplicates, like an unconstrained Bolt store.
	require.NoError(t, s.CreateNode(ctx, node))
	require.NoError(t, s.CreateNode(ctx, node))
	assert.Equal(t, 2, d.NodeCount(node.Ref()))

	// Enabling uniqueness over existing duplicates fails.
	assert.Error(t, s.EnsureSchema(ctx, true))

	_, err := s.ClearAll(ctx)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx, true))
	require.NoError(t, s.CreateNode(ctx, node))
	assert.ErrorIs(t, s.CreateNode(ctx, node), driver.ErrAlreadyExists)
	assert.Equal(t, 1, d.NodeCount(node.Ref()))
}

func TestMemorySessionEdges(t *testing.T) {
	ctx := context.Background()
	d, s := newMemorySession(t)

	movie := types.NodeRef{Label: types.MovieLabel, Name: "tt0111161"}
	outlet := types.NodeRef{Label: types.ScoreOutletLabel, Name: types.OutletIMDb}
	edge := &types.Edge{
		Type:       types.ScoredRelation,
		Source:     outlet,
		Target:     movie,
		Properties: map[string]any{"score": 9, "votes": int64(2343110)},
	}

	err := s.CreateEdge(ctx, edge)
	assert.ErrorIs(t, err, driver.ErrEndpointMissing)

	require.NoError(t, s.CreateNode(ctx, &types.Node{Label: movie.Label, Name: movie.Name}))
	require.NoError(t, s.CreateNode(ctx, &types.Node{Label: outlet.Label, Name: outlet.Name}))
	require.NoError(t, s.CreateEdge(ctx, edge))

	exists, err := s.RelationExists(ctx, outlet, types.ScoredRelation, types.NodeRef{Name: movie.Name})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.RelationExists(ctx, outlet, types.ScoredRelation, types.NodeRef{Label: types.SeriesLabel, Name: movie.Name})
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.RelationExists(ctx, movie, types.ScoredRelation, types.NodeRef{Name: outlet.Name})
	require.NoError(t, err)
	assert.False(t, exists, "direction matters")

	scored := d.Edges(types.ScoredRelation)
	require.Len(t, scored, 1)
	assert.Equal(t, 9, scored[0].Properties["score"])
}

func TestMemorySessionStatsAndClear(t *testing.T) {
	ctx := context.Background()
	_, s := newMemorySession(t)

	for _, n := range []*types.Node{
		{Label: types.MovieLabel, Name: "tt0111161"},
		{Label: types.GenreLabel, Name: "Drama"},
		{Label: types.PersonLabel, Name: "Frank Darabont"},
	} {
		require.NoError(t, s.CreateNode(ctx, n))
	}
	movie := types.NodeRef{Label: types.MovieLabel, Name: "tt0111161"}
	require.NoError(t, s.CreateEdge(ctx, &types.Edge{Type: types.GenreRelation, Source: movie, Target: types.NodeRef{Label: types.GenreLabel, Name: "Drama"}}))
	require.NoError(t, s.CreateEdge(ctx, &types.Edge{Type: types.DirectedRelation, Source: movie, Target: types.NodeRef{Label: types.PersonLabel, Name: "Frank Darabont"}}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.NodeCount)
	assert.Equal(t, int64(2), stats.EdgeCount)
	assert.Equal(t, int64(1), stats.NodesByLabel["Genre"])
	assert.Equal(t, int64(1), stats.EdgesByType["DIRECTED"])

	deleted, err := s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.NodeCount)
	assert.Zero(t, stats.EdgeCount)
}

func TestMemorySessionRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	_, s := newMemorySession(t)

	assert.ErrorIs(t, s.CreateNode(ctx, nil), types.ErrNilNode)
	assert.ErrorIs(t, s.CreateNode(ctx, &types.Node{Label: "Studio", Name: "A24"}), types.ErrInvalidLabel)

	_, err := s.NodeExists(ctx, types.NodeRef{Label: types.GenreLabel})
	assert.ErrorIs(t, err, types.ErrEmptyName)

	_, err = s.RelationExists(ctx, types.NodeRef{Label: types.MovieLabel, Name: "tt1"}, "LIKES", types.NodeRef{Name: "x"})
	assert.ErrorIs(t, err, types.ErrInvalidRelation)
}

func TestMemorySessionClosed(t *testing.T) {
	ctx := context.Background()
	d, s := newMemorySession(t)
	require.NoError(t, s.Close(ctx))

	_, err := s.NodeExists(ctx, types.NodeRef{Label: types.GenreLabel, Name: "Drama"})
	assert.ErrorIs(t, err, driver.ErrSessionClosed)

	require.NoError(t, d.Close(ctx))
	assert.ErrorIs(t, d.VerifyConnectivity(ctx), driver.ErrUnavailable)
	_, err = d.Session(ctx)
	assert.ErrorIs(t, err, driver.ErrUnavailable)
}

func TestMemoryDriverConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	d := driver.NewMemoryDriver()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := d.Session(ctx)
			if !assert.NoError(t, err) {
				return
			}
			defer s.Close(ctx)
			assert.NoError(t, s.CreateNode(ctx, &types.Node{Label: types.PersonLabel, Name: string(rune('a' + i))}))
		}(i)
	}
	wg.Wait()
	assert.Len(t, d.Nodes(types.PersonLabel), 8)
}
