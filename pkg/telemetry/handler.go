package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

const defaultBatchSize = 100

// parquetBuffer is shared by a handler and every clone made by WithAttrs or
// WithGroup, so child loggers batch into the same files.
type parquetBuffer struct {
	mu        sync.Mutex
	outputDir string
	batchSize int
	records   []LogRecord
}

// ParquetHandler is a slog.Handler that tees error logs into Parquet files
type ParquetHandler struct {
	next  slog.Handler
	attrs []slog.Attr
	buf   *parquetBuffer
}

// NewParquetHandler creates a new ParquetHandler
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	return &ParquetHandler{
		next: next,
		buf: &parquetBuffer{
			outputDir: outputDir,
			batchSize: defaultBatchSize,
			records:   make([]LogRecord, 0, defaultBatchSize),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always pass to next handler first
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level < slog.LevelError {
		return nil
	}

	record := newLogRecord(ctx, r, h.attrs)

	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()

	h.buf.records = append(h.buf.records, record)
	if len(h.buf.records) >= h.buf.batchSize {
		return h.buf.flush()
	}
	return nil
}

// Flush writes any buffered records to a new file.
func (h *ParquetHandler) Flush() error {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return h.buf.flush()
}

// Close flushes the buffer. The wrapped handler is not closed.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the current buffer to a new Parquet file
// Caller must hold the lock
func (b *parquetBuffer) flush() error {
	if len(b.records) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("ingest_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(b.outputDir, filename)

	if err := parquet.WriteFile(path, b.records); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write telemetry parquet file: %v\n", err)
		return err
	}

	b.records = b.records[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		attrs: appendAttrs(h.attrs, attrs),
		buf:   h.buf,
	}
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithGroup(name),
		attrs: h.attrs,
		buf:   h.buf,
	}
}
