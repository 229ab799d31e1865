package upsert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
)

// Materializer writes one title node per fetched record.
type Materializer struct {
	writer driver.GraphWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewMaterializer creates a Materializer writing through writer.
func NewMaterializer(writer driver.GraphWriter, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		writer: writer,
		logger: logger.With("component", "materializer"),
		now:    time.Now,
	}
}

// Materialize creates the node for t. The caller has already checked that
// the node is absent; a uniqueness violation from the store is reported as
// ErrDuplicate.
func (m *Materializer) Materialize(ctx context.Context, t *types.Title) (*types.Node, error) {
	node, err := BuildNode(t)
	if err != nil {
		return nil, err
	}
	stamp(node.Properties, m.now())

	if err := m.writer.CreateNode(ctx, node); err != nil {
		if errors.Is(err, driver.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s: %w", ErrDuplicate, node.Ref(), err)
		}
		return nil, fmt.Errorf("materialize %s: %w", node.Ref(), err)
	}

	m.logger.Info("Created title node", "label", node.Label, "name", node.Name, "title", t.Title)
	return node, nil
}

// BuildNode maps t onto the attribute set of its category.
func BuildNode(t *types.Title) (*types.Node, error) {
	if t == nil {
		return nil, ErrNilTitle
	}
	if t.ImdbID == "" {
		return nil, types.ErrEmptyID
	}

	var props map[string]any
	switch t.Kind {
	case types.MovieKind:
		props = movieProperties(t)
	case types.SeriesKind:
		props = seriesProperties(t)
	case types.EpisodeKind:
		props = episodeProperties(t)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaKind, t.Kind)
	}

	return &types.Node{
		Label:      t.Kind.Label(),
		Name:       t.ImdbID,
		Properties: props,
	}, nil
}

func titleProperties(t *types.Title) map[string]any {
	return map[string]any{
		"title":      t.Title,
		"year":       t.Year,
		"released":   t.Released,
		"plot":       t.Plot,
		"awards":     t.Awards,
		"metascore":  t.Metascore,
		"imdbRating": t.ImdbRating,
		"imdbVotes":  t.ImdbVotes,
		"runtime":    t.Runtime,
		"poster":     t.Poster,
	}
}

func movieProperties(t *types.Title) map[string]any {
	props := titleProperties(t)
	props["dvd"] = t.DVD
	props["boxOffice"] = t.BoxOffice
	props["website"] = t.Website
	return props
}

func seriesProperties(t *types.Title) map[string]any {
	props := titleProperties(t)
	props["seasons"] = t.TotalSeasons
	return props
}

func episodeProperties(t *types.Title) map[string]any {
	props := titleProperties(t)
	props["seriesID"] = t.SeriesID
	props["season"] = t.Season
	props["episode"] = t.Episode
	return props
}

// stamp adds the bookkeeping attributes carried by every node.
func stamp(props map[string]any, now time.Time) {
	props["uuid"] = uuid.NewString()
	props["created_at"] = now.UTC().Format(time.RFC3339)
}
