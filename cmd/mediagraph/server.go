package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/mediagraph/pkg/server"
	"github.com/soundprediction/mediagraph/pkg/telemetry"
	"github.com/soundprediction/mediagraph/pkg/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the mediagraph HTTP server",
	Long: `Start the HTTP server that exposes ingestion, graph statistics and health
checks over REST. When telemetry.stats_interval is set, graph statistics are
sampled in the background for as long as the server runs.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")
}

func runServer(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("host") {
		a.cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		a.cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		a.cfg.Server.Mode = serverMode
	}

	if err := a.startSampler(ctx); err != nil {
		a.logger.Warn("Graph stats sampling disabled", "error", err)
	}

	srv := server.New(a.cfg, a.client, a.logger)
	srv.Setup()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.logger.Info("Shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		a.logger.Info("Server stopped gracefully")
		return nil
	}
}

// startSampler runs the stats sampler until ctx is cancelled. Points go to
// parquet files and, when a telemetry database is open, to SQL.
func (a *app) startSampler(ctx context.Context) error {
	interval := time.Duration(a.cfg.Telemetry.StatsInterval) * time.Second
	if interval <= 0 {
		return nil
	}

	var sinks []telemetry.PointSink
	if path := a.cfg.Telemetry.ParquetPath; path != "" {
		sink, err := telemetry.NewParquetPointSink(path)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
	}
	if a.telemetryDB != nil {
		sink, err := telemetry.NewSQLPointSink(a.telemetryDB)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 0 {
		return errors.New("no telemetry sink configured")
	}

	sampler := telemetry.NewStatsSampler(a.client, interval, a.cfg.Telemetry.StatsBatchSize, a.logger, sinks...)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	// Closers run in reverse, so the final flush still has an open database.
	a.closers = append(a.closers, func() error {
		cancel()
		<-done
		return nil
	})

	utils.SafeGo(func() {
		defer close(done)
		if err := sampler.Run(ctx); err != nil {
			a.logger.Error("Stats sampler stopped", "error", err)
		}
	}, func(err error) {
		a.logger.Error("Stats sampler panicked", "error", err)
	})
	return nil
}
