package upsert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
)

// Linker attaches category nodes to titles.
type Linker struct {
	oracle *Oracle
	writer driver.GraphWriter
	locks  *KeyLocker
	logger *slog.Logger
	now    func() time.Time
}

// NewLinker creates a Linker. locks may be shared between linkers that
// write to the same store.
func NewLinker(oracle *Oracle, writer driver.GraphWriter, locks *KeyLocker, logger *slog.Logger) *Linker {
	if locks == nil {
		locks = NewKeyLocker(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		oracle: oracle,
		writer: writer,
		locks:  locks,
		logger: logger.With("component", "linker"),
		now:    time.Now,
	}
}

// Link ensures the category node targetName exists under targetLabel and
// connects it to source with rel. The edge points from source to the target,
// except for SCORED, where the outlet is the edge source. An edge that is
// already present is left alone.
func (l *Linker) Link(ctx context.Context, targetName string, targetLabel types.NodeLabel, source types.NodeRef, rel types.RelationType, attrs map[string]any) error {
	target := types.NodeRef{Label: targetLabel, Name: strings.TrimSpace(targetName)}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("link target: %w", err)
	}

	edge := &types.Edge{Type: rel, Source: source, Target: target, Properties: attrs}
	if rel == types.ScoredRelation {
		edge.Source, edge.Target = target, source
	}
	if err := edge.Validate(); err != nil {
		return err
	}

	if err := l.EnsureNode(ctx, target); err != nil {
		return err
	}
	return l.createEdge(ctx, edge)
}

// LinkAll links every name independently. A failure on one name does not
// stop the rest; the failures are returned in order.
func (l *Linker) LinkAll(ctx context.Context, names []string, targetLabel types.NodeLabel, source types.NodeRef, rel types.RelationType) []types.LinkError {
	var failures []types.LinkError
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if err := l.Link(ctx, name, targetLabel, source, rel, nil); err != nil {
			l.logger.Error("Failed to link", "relation", rel, "source", source.Name, "target", name, "error", err)
			failures = append(failures, types.LinkError{Relation: rel, Target: name, Message: err.Error()})
		}
	}
	return failures
}

// AddRating links outlet to title with a SCORED edge. Only the primary
// aggregator's edges carry votes.
func (l *Linker) AddRating(ctx context.Context, title types.NodeRef, outlet string, score int, votes int64) error {
	attrs := map[string]any{"score": score}
	if outlet == types.OutletIMDb {
		attrs["votes"] = votes
	}
	return l.Link(ctx, outlet, types.ScoreOutletLabel, title, types.ScoredRelation, attrs)
}

// EnsureNode creates a bare node for ref unless one exists.
func (l *Linker) EnsureNode(ctx context.Context, ref types.NodeRef) error {
	return l.locks.With(ref.Key(), func() error {
		exists, err := l.oracle.Exists(ctx, ref.Name, ref.Label)
		if err != nil {
			return fmt.Errorf("check %s: %w", ref, err)
		}
		if exists {
			l.logger.Debug("Using existing node", "label", ref.Label, "name", ref.Name)
			return nil
		}

		node := &types.Node{Label: ref.Label, Name: ref.Name, Properties: map[string]any{}}
		stamp(node.Properties, l.now())
		if err := l.writer.CreateNode(ctx, node); err != nil {
			if errors.Is(err, driver.ErrAlreadyExists) {
				// Created by another process after our check.
				return nil
			}
			return fmt.Errorf("create %s: %w", ref, err)
		}
		l.logger.Info("Created node", "label", ref.Label, "name", ref.Name)
		return nil
	})
}

func (l *Linker) createEdge(ctx context.Context, edge *types.Edge) error {
	return l.locks.With(edge.Key(), func() error {
		exists, err := l.oracle.EdgeExists(ctx, edge)
		if err != nil {
			return fmt.Errorf("check %s: %w", edge, err)
		}
		if exists {
			l.logger.Debug("Relationship already exists", "relation", edge.Type, "source", edge.Source.Name, "target", edge.Target.Name)
			return nil
		}
		if err := l.writer.CreateEdge(ctx, edge); err != nil {
			return err
		}
		l.logger.Info("Linked", "relation", edge.Type, "source", edge.Source.Name, "target", edge.Target.Name)
		return nil
	})
}
