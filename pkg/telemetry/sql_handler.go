package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
)

// SQLHandler is a slog.Handler that tees error logs into a SQL table
type SQLHandler struct {
	next      slog.Handler
	db        *sql.DB
	tableName string
	insert    string
	attrs     []slog.Attr
}

// NewSQLHandler creates a new SQLHandler using an existing DB connection
func NewSQLHandler(next slog.Handler, db *sql.DB) (*SQLHandler, error) {
	h := &SQLHandler{
		next:      next,
		db:        db,
		tableName: "telemetry_logs",
	}

	if err := h.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure telemetry table: %w", err)
	}
	h.insert = fmt.Sprintf(`
		INSERT INTO %s (id, timestamp, level, message, run_id, title_id, request_source, source_file, line_number, attributes)
		VALUES (%s)
	`, h.tableName, placeholders(db, 10))

	return h, nil
}

func (h *SQLHandler) ensureTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			timestamp TIMESTAMP,
			level VARCHAR(10),
			message TEXT,
			run_id VARCHAR(36),
			title_id VARCHAR(32),
			request_source VARCHAR(255),
			source_file VARCHAR(255),
			line_number INT,
			attributes TEXT
		)
	`, h.tableName)

	_, err := h.db.Exec(query)
	return err
}

// Enabled implements slog.Handler
func (h *SQLHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *SQLHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always pass to next handler first
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level < slog.LevelError {
		return nil
	}

	rec := newLogRecord(ctx, r, h.attrs)

	// The record outlives a cancelled request.
	_, err := h.db.ExecContext(context.WithoutCancel(ctx), h.insert,
		rec.ID,
		rec.Timestamp,
		rec.Level,
		rec.Message,
		rec.RunID,
		rec.TitleID,
		rec.RequestSource,
		rec.SourceFile,
		rec.LineNumber,
		rec.Attributes,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log to SQL: %v\n", err)
	}

	return nil // Don't block logging chain on database error
}

// WithAttrs implements slog.Handler
func (h *SQLHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SQLHandler{
		next:      h.next.WithAttrs(attrs),
		db:        h.db,
		tableName: h.tableName,
		insert:    h.insert,
		attrs:     appendAttrs(h.attrs, attrs),
	}
}

// WithGroup implements slog.Handler
func (h *SQLHandler) WithGroup(name string) slog.Handler {
	return &SQLHandler{
		next:      h.next.WithGroup(name),
		db:        h.db,
		tableName: h.tableName,
		insert:    h.insert,
		attrs:     h.attrs,
	}
}
