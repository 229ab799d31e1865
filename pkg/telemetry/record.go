package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/mediagraph/pkg/types"
)

// LogRecord represents a single log entry for Parquet and SQL storage
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	RunID         string    `parquet:"run_id"`
	TitleID       string    `parquet:"title_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// newLogRecord flattens r, the handler-level attrs and the run metadata
// carried in ctx into a LogRecord. An "id" attribute is lifted into TitleID.
func newLogRecord(ctx context.Context, r slog.Record, handlerAttrs []slog.Attr) LogRecord {
	var runID, requestSource string
	if v, ok := ctx.Value(types.ContextKeyRunID).(string); ok {
		runID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		requestSource = v
	}

	attrs := make(map[string]any, r.NumAttrs()+len(handlerAttrs))
	collect := func(a slog.Attr) bool {
		v := a.Value.Resolve()
		if err, ok := v.Any().(error); ok {
			attrs[a.Key] = err.Error()
		} else {
			attrs[a.Key] = v.Any()
		}
		return true
	}
	for _, a := range handlerAttrs {
		collect(a)
	}
	r.Attrs(collect)

	var titleID string
	if v, ok := attrs["id"].(string); ok {
		titleID = v
	}
	if v, ok := attrs["run_id"].(string); ok && runID == "" {
		runID = v
	}

	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		attrsJSON = []byte("{}")
	}

	var sourceFile string
	var line int
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		sourceFile = f.File
		line = f.Line
	}

	return LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		RunID:         runID,
		TitleID:       titleID,
		RequestSource: requestSource,
		SourceFile:    sourceFile,
		LineNumber:    line,
		Attributes:    string(attrsJSON),
	}
}

func appendAttrs(base, extra []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
