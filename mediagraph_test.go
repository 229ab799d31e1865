package mediagraph_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/soundprediction/mediagraph"
	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
	"github.com/soundprediction/mediagraph/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSource serves scripted titles and counts fetches.
type fakeSource struct {
	mu      sync.Mutex
	titles  map[string]*types.Title
	kinds   map[string]types.MediaKind
	fetches map[string]int
	failOn  map[string]error
}

func newFakeSource(titles ...*types.Title) *fakeSource {
	s := &fakeSource{
		titles:  make(map[string]*types.Title),
		kinds:   make(map[string]types.MediaKind),
		fetches: make(map[string]int),
		failOn:  make(map[string]error),
	}
	for _, t := range titles {
		s.titles[t.ImdbID] = t
		s.kinds[t.ImdbID] = t.Kind
	}
	return s
}

func (s *fakeSource) Kind(_ context.Context, id string) (types.MediaKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[id]; err != nil {
		return "", err
	}
	kind, ok := s.kinds[id]
	if !ok {
		return "", fmt.Errorf("unknown id %s", id)
	}
	return kind, nil
}

func (s *fakeSource) Fetch(_ context.Context, id string) (*types.Title, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[id]++
	t, ok := s.titles[id]
	if !ok {
		return nil, fmt.Errorf("no record for %s", id)
	}
	cp := *t
	return &cp, nil
}

func (s *fakeSource) fetchCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[id]
}

func shawshank() *types.Title {
	return &types.Title{
		ImdbID:     "tt0111161",
		Kind:       types.MovieKind,
		Title:      "The Shawshank Redemption",
		Year:       "1994",
		Genres:     []string{"Drama"},
		Directors:  []string{"Frank Darabont"},
		Ratings:    map[string]int{types.OutletIMDb: 9},
		ImdbRating: 9.3,
		ImdbVotes:  2343110,
	}
}

func breakingBad() *types.Title {
	return &types.Title{
		ImdbID:       "tt0903747",
		Kind:         types.SeriesKind,
		Title:        "Breaking Bad",
		Year:         "2008–2013",
		TotalSeasons: 5,
		AgeRating:    "TV-MA",
		Genres:       []string{"Crime", "Drama"},
		Languages:    []string{"English", "Spanish"},
		Countries:    []string{"United States"},
		ImdbRating:   9.5,
		ImdbVotes:    2100000,
		Metascore:    87,
	}
}

func pilot() *types.Title {
	return &types.Title{
		ImdbID:     "tt0959621",
		Kind:       types.EpisodeKind,
		Title:      "Pilot",
		Year:       "2008",
		Writers:    []string{"Vince Gilligan"},
		Directors:  []string{"Vince Gilligan"},
		Actors:     []string{"Bryan Cranston", "Aaron Paul"},
		ImdbRating: 9.0,
		ImdbVotes:  45000,
		SeriesID:   "tt0903747",
		Season:     1,
		Episode:    1,
	}
}

func newTestClient(t *testing.T, source mediagraph.MetadataSource) (*mediagraph.Client, *driver.MemoryDriver) {
	t.Helper()
	store := driver.NewMemoryDriver()
	client, err := mediagraph.NewClient(store, source, nil, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client, store
}

func TestIngestMovie(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t, newFakeSource(shawshank()))

	result, err := client.Ingest(ctx, "tt0111161")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCreated, result.Outcome)
	assert.Equal(t, types.MovieKind, result.Kind)
	assert.Empty(t, result.LinkErrors)
	assert.NotEmpty(t, result.RunID)

	assert.Len(t, store.Nodes(types.MovieLabel), 1)
	assert.Equal(t, []types.NodeRef{{Label: types.GenreLabel, Name: "Drama"}}, store.Nodes(types.GenreLabel))
	assert.Len(t, store.Edges(types.GenreRelation), 1)
	assert.Len(t, store.Nodes(types.PersonLabel), 1)
	assert.Len(t, store.Edges(types.DirectedRelation), 1)

	outlets := store.Nodes(types.ScoreOutletLabel)
	require.Len(t, outlets, 1)
	assert.Equal(t, types.OutletIMDb, outlets[0].Name)

	scored := store.Edges(types.ScoredRelation)
	require.Len(t, scored, 1)
	assert.Equal(t, 9, scored[0].Properties["score"])
	assert.Equal(t, int64(2343110), scored[0].Properties["votes"])
	assert.Equal(t, types.NodeRef{Label: types.MovieLabel, Name: "tt0111161"}, scored[0].Target)

	props, ok := store.NodeProperties(types.NodeRef{Label: types.MovieLabel, Name: "tt0111161"})
	require.True(t, ok)
	assert.Equal(t, "The Shawshank Redemption", props["title"])
	assert.Equal(t, "1994", props["year"])
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(shawshank())
	client, _ := newTestClient(t, source)

	_, err := client.Ingest(ctx, "tt0111161")
	require.NoError(t, err)
	before, err := client.Stats(ctx)
	require.NoError(t, err)

	result, err := client.Ingest(ctx, "tt0111161")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSkipped, result.Outcome)

	after, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.NodeCount, after.NodeCount)
	assert.Equal(t, before.EdgeCount, after.EdgeCount)
	assert.Equal(t, 1, source.fetchCount("tt0111161"), "the guard runs before the fetch")
}

func TestIngestTrimsID(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t, newFakeSource(shawshank()))

	outcomes := make([]types.Outcome, 0, 3)
	for _, id := range []string{"tt0111161", "tt0111161 ", "tt0111161\n"} {
		result, err := client.Ingest(ctx, id)
		require.NoError(t, err, "id %q", id)
		assert.Equal(t, "tt0111161", result.ID)
		outcomes = append(outcomes, result.Outcome)
	}

	assert.Equal(t, []types.Outcome{types.OutcomeCreated, types.OutcomeSkipped, types.OutcomeSkipped}, outcomes)
	assert.Equal(t, 1, store.NodeCount(types.NodeRef{Label: types.MovieLabel, Name: "tt0111161"}))
}

func TestIngestGuardsOnSourceID(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(shawshank())
	// The source answers an alias with the canonical record.
	source.kinds["tt111161"] = types.MovieKind
	source.titles["tt111161"] = shawshank()
	client, store := newTestClient(t, source)

	result, err := client.Ingest(ctx, "tt0111161")
	require.NoError(t, err)
	require.Equal(t, types.OutcomeCreated, result.Outcome)

	result, err = client.Ingest(ctx, "tt111161")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSkipped, result.Outcome)
	assert.Len(t, store.Nodes(types.MovieLabel), 1)
}

func TestIngestEpisodeResolvesSeries(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(breakingBad(), pilot())
	client, store := newTestClient(t, source)

	result, err := client.Ingest(ctx, "tt0959621")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCreated, result.Outcome)
	assert.Empty(t, result.LinkErrors)
	require.NotNil(t, result.Parent)
	assert.Equal(t, types.OutcomeCreated, result.Parent.Outcome)
	assert.Equal(t, types.SeriesKind, result.Parent.Kind)

	series := store.Nodes(types.SeriesLabel)
	require.Len(t, series, 1)
	props, ok := store.NodeProperties(series[0])
	require.True(t, ok)
	assert.Equal(t, "Breaking Bad", props["title"], "series is fully materialized")
	assert.Equal(t, 5, props["seasons"])

	belongs := store.Edges(types.BelongsToRelation)
	require.Len(t, belongs, 1)
	assert.Equal(t, types.NodeRef{Label: types.EpisodeLabel, Name: "tt0959621"}, belongs[0].Source)
	assert.Equal(t, types.NodeRef{Label: types.SeriesLabel, Name: "tt0903747"}, belongs[0].Target)
	assert.Equal(t, 1, belongs[0].Properties["season"])
	assert.Equal(t, 1, belongs[0].Properties["episode"])

	// The series pipeline linked its own attributes.
	assert.Len(t, store.Edges(types.RatedRelation), 1)
	assert.Len(t, store.Edges(types.SpokenLanguageRelation), 2)

	// Writer and director share one Person node.
	assert.Len(t, store.Nodes(types.PersonLabel), 3)
}

func TestIngestSecondEpisodeReusesSeries(t *testing.T) {
	ctx := context.Background()
	second := pilot()
	second.ImdbID = "tt1054724"
	second.Title = "Cat's in the Bag..."
	second.Episode = 2
	source := newFakeSource(breakingBad(), pilot(), second)
	client, store := newTestClient(t, source)

	_, err := client.Ingest(ctx, "tt0959621")
	require.NoError(t, err)
	result, err := client.Ingest(ctx, "tt1054724")
	require.NoError(t, err)
	assert.Nil(t, result.Parent, "series already present")

	assert.Len(t, store.Nodes(types.SeriesLabel), 1)
	assert.Len(t, store.Edges(types.BelongsToRelation), 2)
	assert.Equal(t, 1, source.fetchCount("tt0903747"))
}

func TestIngestSeriesScores(t *testing.T) {
	tests := []struct {
		name         string
		metascore    int
		wantOutlets  int
		wantCritical bool
	}{
		{"with metascore", 87, 2, true},
		{"without metascore", 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			series := breakingBad()
			series.Metascore = tt.metascore
			client, store := newTestClient(t, newFakeSource(series))

			_, err := client.Ingest(ctx, series.ImdbID)
			require.NoError(t, err)

			scored := store.Edges(types.ScoredRelation)
			assert.Len(t, scored, tt.wantOutlets)
			var critical bool
			for _, e := range scored {
				switch e.Source.Name {
				case types.OutletIMDb:
					assert.Equal(t, 9, e.Properties["score"])
					assert.Contains(t, e.Properties, "votes")
				case types.OutletMetacritic:
					critical = true
					assert.Equal(t, tt.metascore, e.Properties["score"])
					assert.NotContains(t, e.Properties, "votes")
				}
			}
			assert.Equal(t, tt.wantCritical, critical)
		})
	}
}

func TestIngestUnknownKind(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	source.kinds["tt9999999"] = types.UnknownKind
	client, store := newTestClient(t, source)

	result, err := client.Ingest(ctx, "tt9999999")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeUnsupported, result.Outcome)
	assert.Contains(t, result.Error, "unsupported media kind")
	assert.Zero(t, source.fetchCount("tt9999999"))

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.NodeCount)
	_ = store
}

func TestIngestSourceFailure(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(shawshank())
	source.failOn["tt0111161"] = errors.New("service unavailable")
	client, store := newTestClient(t, source)

	result, err := client.Ingest(ctx, "tt0111161")
	require.Error(t, err)
	assert.Equal(t, types.OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Error, "service unavailable")
	assert.Empty(t, store.Nodes(types.MovieLabel))

	_, err = client.Ingest(ctx, "")
	assert.ErrorIs(t, err, types.ErrEmptyID)
}

type panicSource struct{ *fakeSource }

func (panicSource) Fetch(context.Context, string) (*types.Title, error) {
	panic("decoder bug")
}

func TestIngestRecoversPanic(t *testing.T) {
	client, store := newTestClient(t, panicSource{newFakeSource(shawshank())})

	result, err := client.Ingest(context.Background(), "tt0111161")
	var pe *utils.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "decoder bug", pe.Value)
	require.NotNil(t, result)
	assert.Equal(t, types.OutcomeFailed, result.Outcome)
	assert.Empty(t, store.Nodes(types.MovieLabel))

	// the session is still usable
	_, err = client.Stats(context.Background())
	assert.NoError(t, err)
}

func TestIngestEpisodeWithUnresolvableSeries(t *testing.T) {
	ctx := context.Background()
	orphan := pilot()
	orphan.SeriesID = "tt0000404"
	client, store := newTestClient(t, newFakeSource(orphan))

	result, err := client.Ingest(ctx, orphan.ImdbID)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCreated, result.Outcome, "the episode node stays")
	require.NotNil(t, result.Parent)
	assert.Equal(t, types.OutcomeFailed, result.Parent.Outcome)

	require.Len(t, result.LinkErrors, 1)
	assert.Equal(t, types.BelongsToRelation, result.LinkErrors[0].Relation)
	assert.Empty(t, store.Edges(types.BelongsToRelation))
	assert.Empty(t, store.Nodes(types.SeriesLabel), "no placeholder series")
}

func TestIngestEpisodeWithoutSeriesID(t *testing.T) {
	ctx := context.Background()
	orphan := pilot()
	orphan.SeriesID = ""
	client, _ := newTestClient(t, newFakeSource(orphan))

	result, err := client.Ingest(ctx, orphan.ImdbID)
	require.NoError(t, err)
	require.Len(t, result.LinkErrors, 1)
	assert.Contains(t, result.LinkErrors[0].Message, mediagraph.ErrMissingParent.Error())
}

func TestClearDB(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, newFakeSource(shawshank(), breakingBad(), pilot()))

	_, err := client.Ingest(ctx, "tt0111161")
	require.NoError(t, err)
	_, err = client.Ingest(ctx, "tt0959621")
	require.NoError(t, err)

	deleted, err := client.ClearDB(ctx)
	require.NoError(t, err)
	assert.Positive(t, deleted)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.NodeCount)
	assert.Zero(t, stats.EdgeCount)
}

func TestIngestManyConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(shawshank(), breakingBad(), pilot())
	client, store := newTestClient(t, source)

	ids := []string{"tt0111161", "tt0959621", "tt0111161", "tt0903747", "tt0111161", "tt0959621"}
	results, err := client.IngestMany(ctx, ids, 4)
	require.NoError(t, err)
	require.Len(t, results, len(ids))
	for i, r := range results {
		assert.Equal(t, ids[i], r.ID)
		assert.NotEqual(t, types.OutcomeFailed, r.Outcome, r.Error)
	}

	assert.Len(t, store.Nodes(types.MovieLabel), 1)
	assert.Len(t, store.Nodes(types.SeriesLabel), 1)
	assert.Len(t, store.Nodes(types.EpisodeLabel), 1)
	assert.Len(t, store.Nodes(types.GenreLabel), 2)
	assert.Len(t, store.Nodes(types.ScoreOutletLabel), 2)
	assert.Len(t, store.Edges(types.BelongsToRelation), 1)

	created := make(map[string]int)
	for _, r := range results {
		if r.Outcome == types.OutcomeCreated {
			created[r.ID]++
		}
	}
	assert.Equal(t, 1, created["tt0111161"])
	assert.Equal(t, 1, created["tt0959621"])

	// The series is created either directly or as the episode's parent.
	summary := mediagraph.Summarize(results)
	assert.Equal(t, len(ids), summary[types.OutcomeCreated]+summary[types.OutcomeSkipped])
}

func TestIngestManyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client, _ := newTestClient(t, newFakeSource(shawshank()))

	results, err := client.IngestMany(ctx, []string{"tt0111161", "tt0903747"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, types.OutcomeFailed, r.Outcome)
	}
}

func TestCreateIndicesWithConstraints(t *testing.T) {
	ctx := context.Background()
	store := driver.NewMemoryDriver()
	client, err := mediagraph.NewClient(store, newFakeSource(shawshank()), &mediagraph.Config{UniqueConstraints: true}, testLogger)
	require.NoError(t, err)
	defer client.Close(ctx)

	require.NoError(t, client.CreateIndices(ctx))
	_, err = client.Ingest(ctx, "tt0111161")
	require.NoError(t, err)

	// A second writer bypassing the client is rejected by the constraint.
	s, err := store.Session(ctx)
	require.NoError(t, err)
	err = s.CreateNode(ctx, &types.Node{Label: types.MovieLabel, Name: "tt0111161"})
	assert.ErrorIs(t, err, driver.ErrAlreadyExists)
}

func TestClientProvider(t *testing.T) {
	client, _ := newTestClient(t, newFakeSource())
	assert.Equal(t, driver.GraphProviderMemory, client.Provider())
}

func TestClientClosed(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, newFakeSource(shawshank()))
	require.NoError(t, client.Close(ctx))
	require.NoError(t, client.Close(ctx))

	_, err := client.Ingest(ctx, "tt0111161")
	assert.ErrorIs(t, err, mediagraph.ErrClientClosed)
	assert.NoError(t, client.Ping(ctx))
}

func TestNewClientValidation(t *testing.T) {
	_, err := mediagraph.NewClient(nil, newFakeSource(), nil, nil)
	assert.Error(t, err)
	_, err = mediagraph.NewClient(driver.NewMemoryDriver(), nil, nil, nil)
	assert.Error(t, err)
}
