package mediagraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
	"github.com/soundprediction/mediagraph/pkg/upsert"
	"github.com/soundprediction/mediagraph/pkg/utils"
)

// maxParentDepth bounds parent resolution to episode -> series.
const maxParentDepth = 1

// Ingest resolves the kind of id and runs its pipeline. Duplicates and
// unsupported kinds are reported through the result with a nil error; only
// a failed outcome returns an error.
func (c *Client) Ingest(ctx context.Context, id string) (*types.IngestResult, error) {
	var (
		result *types.IngestResult
		err    error
	)
	lockErr := c.withSession(func(o *orchestrator) error {
		result, err = o.safeIngest(ctx, id)
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	return result, err
}

// IngestMany ingests ids with up to workers concurrent orchestrators, each
// with its own session. Results are in the order of ids.
func (c *Client) IngestMany(ctx context.Context, ids []string, workers int) ([]*types.IngestResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = c.config.Workers
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	pool := make(chan *orchestrator, workers)
	defer func() {
		close(pool)
		for o := range pool {
			if err := o.session.Close(context.Background()); err != nil {
				c.logger.Warn("Failed to close worker session", "error", err)
			}
		}
	}()
	for i := 0; i < workers; i++ {
		o, err := c.newOrchestrator(ctx)
		if err != nil {
			return nil, err
		}
		pool <- o
	}

	wp := utils.NewWorkerPool(workers, func(ctx context.Context, id string) (*types.IngestResult, error) {
		o := <-pool
		defer func() { pool <- o }()
		return o.ingest(ctx, id)
	})
	results, errs := wp.ProcessItems(ctx, ids)

	for i, res := range results {
		if res != nil {
			continue
		}
		// Panicked or never started because ctx was cancelled.
		err := errs[i]
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = errors.New("not processed")
		}
		results[i] = &types.IngestResult{ID: ids[i], Outcome: types.OutcomeFailed, Error: err.Error()}
	}

	c.logger.Info("Batch ingestion completed", "titles", len(ids), "workers", workers, "summary", Summarize(results))
	return results, nil
}

// Summarize counts results by outcome.
func Summarize(results []*types.IngestResult) map[types.Outcome]int {
	counts := make(map[types.Outcome]int)
	for _, r := range results {
		if r != nil {
			counts[r.Outcome]++
		}
	}
	return counts
}

// orchestrator drives the pipelines over a single session. It is not safe
// for concurrent use.
type orchestrator struct {
	session driver.GraphSession
	source  MetadataSource
	oracle  *upsert.Oracle
	mat     *upsert.Materializer
	linker  *upsert.Linker
	locks   *upsert.KeyLocker
	logger  *slog.Logger
}

func (o *orchestrator) ingest(ctx context.Context, id string) (*types.IngestResult, error) {
	id = strings.TrimSpace(id)
	start := time.Now()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, types.ContextKeyRunID, runID)
	logger := o.logger.With("run_id", runID, "id", id)

	result := &types.IngestResult{ID: id, RunID: runID}
	defer func() { result.Duration = time.Since(start) }()

	if id == "" {
		return o.fail(logger, result, types.ErrEmptyID)
	}

	kind, err := o.source.Kind(ctx, id)
	if err != nil {
		return o.fail(logger, result, fmt.Errorf("resolve kind: %w", err))
	}
	result.Kind = kind

	if kind.Label() == "" {
		result.Outcome = types.OutcomeUnsupported
		result.Error = fmt.Sprintf("%v: %q", ErrUnsupportedMediaKind, kind)
		logger.Warn("Unsupported media kind, nothing ingested", "kind", kind)
		return result, nil
	}

	return o.runTitle(ctx, logger, result, 0)
}

// safeIngest reports a panic inside a pipeline as a failed result.
func (o *orchestrator) safeIngest(ctx context.Context, id string) (result *types.IngestResult, err error) {
	defer func() {
		if err != nil && result == nil {
			result = &types.IngestResult{ID: id, Outcome: types.OutcomeFailed, Error: err.Error()}
		}
	}()
	defer utils.RecoverAsError(&err)
	return o.ingest(ctx, id)
}

// runTitle is the guard, fetch, materialize and link sequence for one title.
func (o *orchestrator) runTitle(ctx context.Context, logger *slog.Logger, result *types.IngestResult, depth int) (*types.IngestResult, error) {
	ref := types.NodeRef{Label: result.Kind.Label(), Name: result.ID}

	exists, err := o.oracle.Exists(ctx, ref.Name, ref.Label)
	if err != nil {
		return o.fail(logger, result, fmt.Errorf("check %s: %w", ref, err))
	}
	if exists {
		return o.skip(logger, result), nil
	}

	title, err := o.source.Fetch(ctx, result.ID)
	if err != nil {
		return o.fail(logger, result, fmt.Errorf("fetch: %w", err))
	}
	if title.ImdbID == "" {
		title.ImdbID = result.ID
	}
	title.Kind = result.Kind

	// The node is written under the id the source reports, so guard on it.
	if title.ImdbID != ref.Name {
		logger.Debug("Source returned a different id", "canonical_id", title.ImdbID)
		ref.Name = title.ImdbID
		exists, err := o.oracle.Exists(ctx, ref.Name, ref.Label)
		if err != nil {
			return o.fail(logger, result, fmt.Errorf("check %s: %w", ref, err))
		}
		if exists {
			return o.skip(logger, result), nil
		}
	}

	var duplicate bool
	err = o.locks.With(ref.Key(), func() error {
		// Recheck under the lock: another worker may have won since the guard.
		exists, err := o.oracle.Exists(ctx, ref.Name, ref.Label)
		if err != nil {
			return fmt.Errorf("check %s: %w", ref, err)
		}
		if exists {
			duplicate = true
			return nil
		}
		_, err = o.mat.Materialize(ctx, title)
		if errors.Is(err, upsert.ErrDuplicate) {
			duplicate = true
			return nil
		}
		return err
	})
	if err != nil {
		return o.fail(logger, result, err)
	}
	if duplicate {
		return o.skip(logger, result), nil
	}
	result.Outcome = types.OutcomeCreated

	switch result.Kind {
	case types.MovieKind:
		o.linkMovie(ctx, result, title)
	case types.SeriesKind:
		o.linkSeries(ctx, result, title)
	case types.EpisodeKind:
		o.linkEpisode(ctx, logger, result, title, depth)
	}

	if len(result.LinkErrors) > 0 {
		logger.Warn("Title created with link failures", "kind", result.Kind, "failures", len(result.LinkErrors))
	} else {
		logger.Info("Title created", "kind", result.Kind, "title", title.Title)
	}
	return result, nil
}

func (o *orchestrator) linkMovie(ctx context.Context, result *types.IngestResult, t *types.Title) {
	ref := t.Ref()
	o.linkAttributes(ctx, result, ref, t, true)

	outlets := make([]string, 0, len(t.Ratings))
	for outlet := range t.Ratings {
		outlets = append(outlets, outlet)
	}
	sort.Strings(outlets)
	for _, outlet := range outlets {
		o.rate(ctx, result, ref, outlet, t.Ratings[outlet], t.ImdbVotes)
	}
}

func (o *orchestrator) linkSeries(ctx context.Context, result *types.IngestResult, t *types.Title) {
	ref := t.Ref()
	o.linkScores(ctx, result, ref, t)
	o.linkAttributes(ctx, result, ref, t, false)
}

func (o *orchestrator) linkEpisode(ctx context.Context, logger *slog.Logger, result *types.IngestResult, t *types.Title, depth int) {
	ref := t.Ref()
	o.collect(result, o.linker.LinkAll(ctx, t.Writers, types.PersonLabel, ref, types.WroteRelation))
	o.collect(result, o.linker.LinkAll(ctx, t.Directors, types.PersonLabel, ref, types.DirectedRelation))
	o.collect(result, o.linker.LinkAll(ctx, t.Actors, types.PersonLabel, ref, types.ActedInRelation))
	o.linkScores(ctx, result, ref, t)

	if err := o.resolveParent(ctx, logger, result, t, depth); err != nil {
		o.record(result, types.BelongsToRelation, t.SeriesID, err)
		return
	}

	attrs := map[string]any{"season": t.Season, "episode": t.Episode}
	if err := o.linker.Link(ctx, t.SeriesID, types.SeriesLabel, ref, types.BelongsToRelation, attrs); err != nil {
		o.record(result, types.BelongsToRelation, t.SeriesID, err)
	}
}

// resolveParent runs the series pipeline for the episode's series when the
// series is not yet in the graph.
func (o *orchestrator) resolveParent(ctx context.Context, logger *slog.Logger, result *types.IngestResult, t *types.Title, depth int) error {
	if t.SeriesID == "" {
		return ErrMissingParent
	}
	if depth >= maxParentDepth {
		return fmt.Errorf("%w: series %s at depth %d", ErrRecursionLimit, t.SeriesID, depth)
	}

	exists, err := o.oracle.Exists(ctx, t.SeriesID, types.SeriesLabel)
	if err != nil {
		return fmt.Errorf("check series %s: %w", t.SeriesID, err)
	}
	if exists {
		return nil
	}

	logger.Info("Resolving parent series", "series_id", t.SeriesID)
	parent := &types.IngestResult{ID: t.SeriesID, RunID: result.RunID, Kind: types.SeriesKind}
	result.Parent = parent
	start := time.Now()
	_, err = o.runTitle(ctx, logger.With("series_id", t.SeriesID), parent, depth+1)
	parent.Duration = time.Since(start)
	if err != nil {
		return fmt.Errorf("resolve series %s: %w", t.SeriesID, err)
	}
	return nil
}

// linkAttributes links the category collections shared by movies and series.
// People are linked for movies only.
func (o *orchestrator) linkAttributes(ctx context.Context, result *types.IngestResult, ref types.NodeRef, t *types.Title, people bool) {
	if t.AgeRating != "" {
		if err := o.linker.Link(ctx, t.AgeRating, types.RatingLabel, ref, types.RatedRelation, nil); err != nil {
			o.record(result, types.RatedRelation, t.AgeRating, err)
		}
	}
	o.collect(result, o.linker.LinkAll(ctx, t.Languages, types.LanguageLabel, ref, types.SpokenLanguageRelation))
	o.collect(result, o.linker.LinkAll(ctx, t.Genres, types.GenreLabel, ref, types.GenreRelation))
	if people {
		o.collect(result, o.linker.LinkAll(ctx, t.Writers, types.PersonLabel, ref, types.WroteRelation))
		o.collect(result, o.linker.LinkAll(ctx, t.Directors, types.PersonLabel, ref, types.DirectedRelation))
		o.collect(result, o.linker.LinkAll(ctx, t.Actors, types.PersonLabel, ref, types.ActedInRelation))
	}
	o.collect(result, o.linker.LinkAll(ctx, t.Producers, types.ProducerLabel, ref, types.ProducedRelation))
	o.collect(result, o.linker.LinkAll(ctx, t.Countries, types.CountryLabel, ref, types.CountryRelation))
}

// linkScores links the primary aggregator rating and, when the metascore is
// non-zero, the critic score.
func (o *orchestrator) linkScores(ctx context.Context, result *types.IngestResult, ref types.NodeRef, t *types.Title) {
	o.rate(ctx, result, ref, types.OutletIMDb, int(t.ImdbRating), t.ImdbVotes)
	if t.Metascore != 0 {
		o.rate(ctx, result, ref, types.OutletMetacritic, t.Metascore, 0)
	}
}

func (o *orchestrator) rate(ctx context.Context, result *types.IngestResult, ref types.NodeRef, outlet string, score int, votes int64) {
	if err := o.linker.AddRating(ctx, ref, outlet, score, votes); err != nil {
		o.record(result, types.ScoredRelation, outlet, err)
	}
}

func (o *orchestrator) collect(result *types.IngestResult, failures []types.LinkError) {
	result.LinkErrors = append(result.LinkErrors, failures...)
}

func (o *orchestrator) record(result *types.IngestResult, rel types.RelationType, target string, err error) {
	o.logger.Error("Failed to link", "id", result.ID, "relation", rel, "target", target, "error", err)
	result.LinkErrors = append(result.LinkErrors, types.LinkError{Relation: rel, Target: target, Message: err.Error()})
}

func (o *orchestrator) skip(logger *slog.Logger, result *types.IngestResult) *types.IngestResult {
	result.Outcome = types.OutcomeSkipped
	logger.Warn("Title already exists, skipping", "kind", result.Kind)
	return result
}

func (o *orchestrator) fail(logger *slog.Logger, result *types.IngestResult, err error) (*types.IngestResult, error) {
	result.Outcome = types.OutcomeFailed
	result.Error = err.Error()
	logger.Error("Ingestion failed", "kind", result.Kind, "error", err)
	return result, err
}
