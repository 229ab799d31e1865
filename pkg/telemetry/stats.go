package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/mediagraph/pkg/driver"
)

// StatsSource is satisfied by *mediagraph.Client.
type StatsSource interface {
	Stats(ctx context.Context) (*driver.GraphStats, error)
}

// StatsPoint is one sample of graph and process statistics.
type StatsPoint struct {
	Timestamp    time.Time `parquet:"timestamp"`
	NodeCount    int64     `parquet:"node_count"`
	EdgeCount    int64     `parquet:"edge_count"`
	NodesByLabel string    `parquet:"nodes_by_label"` // JSON object
	EdgesByType  string    `parquet:"edges_by_type"`  // JSON object
	Goroutines   int64     `parquet:"goroutines"`
	HeapAlloc    int64     `parquet:"heap_alloc"`
}

// PointSink persists a batch of points.
type PointSink interface {
	WritePoints(ctx context.Context, points []StatsPoint) error
}

// StatsSampler samples a StatsSource every interval and hands the points to
// its sinks in batches.
type StatsSampler struct {
	source    StatsSource
	sinks     []PointSink
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	mu      sync.Mutex
	pending []StatsPoint
}

// NewStatsSampler creates a sampler. batchSize below 1 means every point is
// written immediately.
func NewStatsSampler(source StatsSource, interval time.Duration, batchSize int, logger *slog.Logger, sinks ...PointSink) *StatsSampler {
	if batchSize < 1 {
		batchSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsSampler{
		source:    source,
		sinks:     sinks,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With("component", "stats_sampler"),
	}
}

// Run samples until ctx is cancelled, then flushes what is pending.
func (s *StatsSampler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("stats interval must be positive, got %s", s.interval)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Stats sampler started", "interval", s.interval, "batch_size", s.batchSize)
	for {
		if err := s.SampleOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Failed to sample graph stats", "error", err)
		}

		select {
		case <-ctx.Done():
			err := s.Flush(context.WithoutCancel(ctx))
			s.logger.Info("Stats sampler stopped")
			return err
		case <-ticker.C:
		}
	}
}

// SampleOnce records one point and flushes when the batch is full.
func (s *StatsSampler) SampleOnce(ctx context.Context) error {
	stats, err := s.source.Stats(ctx)
	if err != nil {
		return err
	}
	point, err := newStatsPoint(stats)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending = append(s.pending, point)
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if full {
		return s.Flush(ctx)
	}
	return nil
}

// Flush writes pending points to every sink.
func (s *StatsSampler) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.WritePoints(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to write stats points: %w", err)
	}
	s.logger.Debug("Stats points written", "count", len(batch))
	return nil
}

func newStatsPoint(stats *driver.GraphStats) (StatsPoint, error) {
	byLabel, err := json.Marshal(stats.NodesByLabel)
	if err != nil {
		return StatsPoint{}, err
	}
	byType, err := json.Marshal(stats.EdgesByType)
	if err != nil {
		return StatsPoint{}, err
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	ts := stats.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	return StatsPoint{
		Timestamp:    ts.UTC(),
		NodeCount:    stats.NodeCount,
		EdgeCount:    stats.EdgeCount,
		NodesByLabel: string(byLabel),
		EdgesByType:  string(byType),
		Goroutines:   int64(runtime.NumGoroutine()),
		HeapAlloc:    int64(mem.HeapAlloc),
	}, nil
}

// ParquetPointSink writes each batch to its own parquet file.
type ParquetPointSink struct {
	dir string
}

// NewParquetPointSink creates dir if needed.
func NewParquetPointSink(dir string) (*ParquetPointSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}
	return &ParquetPointSink{dir: dir}, nil
}

func (p *ParquetPointSink) WritePoints(_ context.Context, points []StatsPoint) error {
	now := time.Now()
	path := filepath.Join(p.dir, fmt.Sprintf("graph_stats_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano()))
	return parquet.WriteFile(path, points)
}

// SQLPointSink appends points to the graph_stats table.
type SQLPointSink struct {
	db     *sql.DB
	insert string
}

// NewSQLPointSink creates the graph_stats table if it is missing.
func NewSQLPointSink(db *sql.DB) (*SQLPointSink, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS graph_stats (
			timestamp TIMESTAMP,
			node_count BIGINT,
			edge_count BIGINT,
			nodes_by_label TEXT,
			edges_by_type TEXT,
			goroutines BIGINT,
			heap_alloc BIGINT
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure graph_stats table: %w", err)
	}
	insert := `INSERT INTO graph_stats (timestamp, node_count, edge_count, nodes_by_label, edges_by_type, goroutines, heap_alloc)
		VALUES (` + placeholders(db, 7) + `)`
	return &SQLPointSink{db: db, insert: insert}, nil
}

func (s *SQLPointSink) WritePoints(ctx context.Context, points []StatsPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Timestamp, p.NodeCount, p.EdgeCount, p.NodesByLabel, p.EdgesByType, p.Goroutines, p.HeapAlloc); err != nil {
			return err
		}
	}
	return tx.Commit()
}
