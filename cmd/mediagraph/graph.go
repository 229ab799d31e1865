package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/mediagraph/pkg/driver"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every node and relationship in the graph",
	RunE:  runClear,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node and relationship counts",
	RunE:  runStats,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create name indices and, if configured, uniqueness constraints",
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(clearCmd, statsCmd, schemaCmd)

	clearCmd.Flags().Bool("yes", false, "confirm deletion")
	statsCmd.Flags().Duration("watch", 0, "refresh every interval until interrupted")
	schemaCmd.Flags().Bool("unique", false, "also create uniqueness constraints")
}

func runClear(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to clear the graph without --yes")
	}

	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	deleted, err := a.client.ClearDB(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d nodes\n", deleted)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	watch, _ := cmd.Flags().GetDuration("watch")
	if err := printStats(ctx, cmd.OutOrStdout(), a.client.Stats); err != nil {
		return err
	}
	if watch <= 0 {
		return nil
	}

	ticker := time.NewTicker(watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printStats(ctx, cmd.OutOrStdout(), a.client.Stats); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func runSchema(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if unique, _ := cmd.Flags().GetBool("unique"); unique && !a.cfg.Database.UniqueConstraints {
		return errors.New("--unique requires database.unique_constraints: true so ingestion treats violations as duplicates")
	}
	if err := a.client.CreateIndices(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema ready")
	return nil
}

func printStats(ctx context.Context, w io.Writer, stats func(context.Context) (*driver.GraphStats, error)) error {
	s, err := stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, renderStats(s))
	return nil
}

func renderStats(s *driver.GraphStats) string {
	rows := [][]string{
		{"nodes", "total", strconv.FormatInt(s.NodeCount, 10)},
	}
	rows = append(rows, countRows("node", s.NodesByLabel)...)
	rows = append(rows, []string{"relationships", "total", strconv.FormatInt(s.EdgeCount, 10)})
	rows = append(rows, countRows("relationship", s.EdgesByType)...)

	return renderTable(
		[]string{"Kind", "Name", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
}

func countRows(kind string, counts map[string]int64) [][]string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{kind, name, strconv.FormatInt(counts[name], 10)})
	}
	return rows
}
