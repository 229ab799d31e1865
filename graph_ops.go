package mediagraph

import (
	"context"
	"fmt"

	"github.com/soundprediction/mediagraph/pkg/driver"
)

// ClearDB detaches and deletes every node in the graph. It is irreversible
// and intended for test and reset use.
func (c *Client) ClearDB(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.withSession(func(o *orchestrator) error {
		var err error
		deleted, err = o.session.ClearAll(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear graph: %w", err)
	}
	c.logger.Warn("Cleared graph", "nodes_deleted", deleted)
	return deleted, nil
}

// CreateIndices creates name indices, plus uniqueness constraints when
// Config.UniqueConstraints is set.
func (c *Client) CreateIndices(ctx context.Context) error {
	err := c.withSession(func(o *orchestrator) error {
		return o.session.EnsureSchema(ctx, c.config.UniqueConstraints)
	})
	if err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}
	c.logger.Info("Graph schema ensured", "unique_constraints", c.config.UniqueConstraints)
	return nil
}

// Stats returns node and edge counts by label and type.
func (c *Client) Stats(ctx context.Context) (*driver.GraphStats, error) {
	var stats *driver.GraphStats
	err := c.withSession(func(o *orchestrator) error {
		var err error
		stats, err = o.session.Stats(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get graph stats: %w", err)
	}
	return stats, nil
}

// Ping checks that the store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}
