package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/soundprediction/mediagraph"
	"github.com/soundprediction/mediagraph/pkg/manifest"
	"github.com/soundprediction/mediagraph/pkg/omdb"
	"github.com/soundprediction/mediagraph/pkg/server/dto"
	"github.com/soundprediction/mediagraph/pkg/types"
)

var errIngestFailures = errors.New("one or more titles failed")

var ingestCmd = &cobra.Command{
	Use:   "ingest [ids...]",
	Short: "Ingest titles by IMDb id",
	Long: `Fetch each title from OMDb and upsert it into the graph. Ids come from
the arguments, from a manifest file (--file, .txt, .yaml or .csv), or both.
Titles already in the graph are reported as skipped_duplicate.`,
	Example: `  mediagraph ingest tt0111161 tt0903747
  mediagraph ingest --file watchlist.yaml --workers 8`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("file", "f", "", "manifest of ids to ingest")
	ingestCmd.Flags().IntP("workers", "w", 4, "concurrent ingest workers")
	ingestCmd.Flags().Bool("json", false, "print results as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ids, err := collectIDs(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no ids given: pass ids as arguments or use --file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "cli")

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.OMDb.APIKey == "" {
		return omdb.ErrMissingAPIKey
	}

	unlock, err := acquireLock(a.cfg.Ingest.LockFile)
	if err != nil {
		return err
	}
	defer unlock()

	started := time.Now()
	var results []*types.IngestResult
	if len(ids) == 1 {
		result, err := a.client.Ingest(ctx, ids[0])
		if result == nil {
			return err
		}
		results = []*types.IngestResult{result}
	} else {
		results, err = a.client.IngestMany(ctx, ids, a.cfg.Ingest.Workers)
		if err != nil {
			return err
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
		fmt.Fprintf(cmd.OutOrStdout(), "%s in %s\n", formatSummary(mediagraph.Summarize(results)), time.Since(started).Round(time.Millisecond))
	}

	for _, r := range results {
		if r.Outcome == types.OutcomeFailed {
			return errIngestFailures
		}
	}
	return nil
}

// collectIDs merges positional ids with the manifest, keeping first
// occurrence order.
func collectIDs(cmd *cobra.Command, args []string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, id := range args {
		if err := dto.ValidateTitleID(strings.TrimSpace(id)); err != nil {
			return nil, err
		}
		add(id)
	}

	path, _ := cmd.Flags().GetString("file")
	if path != "" {
		m, err := manifest.Load(path)
		if err != nil {
			return nil, err
		}
		for _, skipped := range m.Skipped {
			fmt.Fprintln(cmd.ErrOrStderr(), "Skipping manifest entry:", skipped)
		}
		for _, id := range m.IDs() {
			add(id)
		}
	}
	return ids, nil
}

// acquireLock keeps two ingest processes on one host from racing on the same
// names. The returned func releases the lock.
func acquireLock(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another ingest is already running (lock %s)", path)
	}
	return func() { _ = lock.Unlock() }, nil
}

func renderResults(results []*types.IngestResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		detail := r.Error
		if detail == "" && len(r.LinkErrors) > 0 {
			detail = fmt.Sprintf("%d link errors", len(r.LinkErrors))
		}
		if r.Parent != nil && detail == "" {
			detail = fmt.Sprintf("series %s: %s", r.Parent.ID, r.Parent.Outcome)
		}
		rows = append(rows, []string{
			r.ID,
			string(r.Kind),
			string(r.Outcome),
			r.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Kind", "Outcome", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func formatSummary(counts map[types.Outcome]int) string {
	parts := make([]string, 0, 4)
	for _, o := range []types.Outcome{types.OutcomeCreated, types.OutcomeSkipped, types.OutcomeUnsupported, types.OutcomeFailed} {
		parts = append(parts, string(o)+"="+strconv.Itoa(counts[o]))
	}
	return strings.Join(parts, " ")
}
