// Command demo prints one ingest run's worth of log lines through the
// colored handler.
package main

import (
	"log/slog"
	"time"

	"github.com/soundprediction/mediagraph/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug).With("run_id", "3f2b9c1e")

	log.Info("Graph schema ensured", "unique_constraints", false)

	episode := log.With("id", "tt0959621")
	episode.Debug("Fetched title", "type", "episode")
	episode.Info("Resolving parent series", "series_id", "tt0903747")

	series := episode.With("series_id", "tt0903747")
	series.Info("Created title node", "label", "Series", "name", "tt0903747", "title", "Breaking Bad")
	series.Info("Created node", "label", "Genre", "name", "Crime")
	series.Info("Linked", "relation", "GENRE", "source", "Crime", "target", "tt0903747")
	series.Info("Title created", "kind", "series", "title", "Breaking Bad")

	episode.Info("Created title node", "label", "Episode", "name", "tt0959621", "title", "Pilot")
	episode.Info("Linked", "relation", "BELONGS_TO", "source", "tt0903747", "target", "tt0959621")
	episode.Info("Title created", "kind", "episode", "title", "Pilot")

	log.Warn("Title already exists, skipping", "id", "tt0111161", "kind", "movie")
	log.Error("Ingestion failed", "id", "tt9999999", "error", "omdb: Incorrect IMDb ID.")

	log.Info("Batch ingestion completed", "titles", 3, "workers", 2, "elapsed", 1200*time.Millisecond)
}
