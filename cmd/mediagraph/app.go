package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/soundprediction/mediagraph"
	"github.com/soundprediction/mediagraph/pkg/alert"
	"github.com/soundprediction/mediagraph/pkg/cache"
	"github.com/soundprediction/mediagraph/pkg/config"
	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/logger"
	"github.com/soundprediction/mediagraph/pkg/omdb"
	"github.com/soundprediction/mediagraph/pkg/telemetry"
)

// app holds everything a command needs, built once from configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	driver driver.GraphDriver
	client *mediagraph.Client

	// telemetryDB is nil unless telemetry.db_url is set.
	telemetryDB *sql.DB
	closers     []func() error
}

// loadConfig loads configuration and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		cfg.Database.Driver, _ = flags.GetString("db-driver")
	}
	if flags.Changed("db-uri") {
		cfg.Database.URI, _ = flags.GetString("db-uri")
	}
	if flags.Changed("db-username") {
		cfg.Database.Username, _ = flags.GetString("db-username")
	}
	if flags.Changed("db-password") {
		cfg.Database.Password, _ = flags.GetString("db-password")
	}
	if flags.Changed("db-database") {
		cfg.Database.Database, _ = flags.GetString("db-database")
	}
	if flags.Changed("omdb-api-key") {
		cfg.OMDb.APIKey, _ = flags.GetString("omdb-api-key")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Ingest.Workers, _ = flags.GetInt("workers")
	}
}

// newApp connects to the graph store and wires the metadata source. A store
// that cannot be reached fails here, before any ingestion starts.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	if err := a.setupLogger(); err != nil {
		return nil, err
	}

	if err := a.connect(ctx); err != nil {
		a.logger.Error("Failed to connect to graph store", "driver", cfg.Database.Driver, "uri", cfg.Database.URI, "error", err)
		a.close()
		return nil, err
	}

	source := a.newSource()

	client, err := mediagraph.NewClient(a.driver, source, &mediagraph.Config{
		UniqueConstraints: cfg.Database.UniqueConstraints,
		Workers:           cfg.Ingest.Workers,
		LockShards:        64,
	}, a.logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	a.client = client
	a.closers = append(a.closers, func() error { return client.Close(context.Background()) })

	return a, nil
}

// setupLogger builds the console handler and tees error records into the
// configured telemetry sinks.
func (a *app) setupLogger() error {
	base, err := logger.New(os.Stderr, a.cfg.Log.Level, a.cfg.Log.Format)
	if err != nil {
		return err
	}
	handler := base.Handler()

	if path := a.cfg.Telemetry.ParquetPath; path != "" {
		ph, err := telemetry.NewParquetHandler(handler, path)
		if err != nil {
			base.Warn("Error telemetry disabled", "path", path, "error", err)
		} else {
			handler = ph
			a.closers = append(a.closers, ph.Close)
		}
	}

	if url := a.cfg.Telemetry.DbURL; url != "" {
		db, err := telemetry.OpenDB(url)
		if err != nil {
			base.Warn("SQL telemetry disabled", "error", err)
		} else if sh, err := telemetry.NewSQLHandler(handler, db); err != nil {
			base.Warn("SQL telemetry disabled", "error", err)
			_ = db.Close()
		} else {
			handler = sh
			a.telemetryDB = db
			a.closers = append(a.closers, db.Close)
		}
	}

	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) connect(ctx context.Context) error {
	provider, err := driver.ParseGraphProvider(a.cfg.Database.Driver)
	if err != nil {
		return err
	}

	d, err := driver.NewDriver(driver.Config{
		Provider:              provider,
		URI:                   a.cfg.Database.URI,
		Username:              a.cfg.Database.Username,
		Password:              a.cfg.Database.Password,
		Database:              a.cfg.Database.Database,
		MaxConnectionPoolSize: a.cfg.Database.MaxPoolSize,
		ConnectTimeout:        a.cfg.Database.ConnectTimeoutDuration(),
	})
	if err != nil {
		return err
	}
	a.driver = d
	a.closers = append(a.closers, func() error { return d.Close(context.Background()) })

	if timeout := a.cfg.Database.ConnectTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify connectivity: %w", err)
	}
	a.logger.Debug("Connected to graph store", "driver", provider, "uri", a.cfg.Database.URI)
	return nil
}

// newSource builds the OMDb client. A missing key is not checked here since
// only ingesting commands need one.
func (a *app) newSource() *omdb.Client {
	var store cache.Cache
	if a.cfg.OMDb.CacheTTL > 0 {
		c, err := cache.Open(a.cfg.OMDb.CachePath, a.cfg.OMDb.CacheURL)
		if err != nil {
			a.logger.Warn("Response cache disabled", "path", a.cfg.OMDb.CachePath, "error", err)
		} else {
			store = c
			a.closers = append(a.closers, c.Close)
		}
	}

	alerter := alert.New(a.cfg.Alert, a.logger)
	return omdb.NewClient(omdb.ConfigFromSettings(a.cfg.OMDb, a.cfg.CircuitBreaker), store, alerter, a.logger)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil && a.logger != nil {
		a.logger.Warn("Shutdown incomplete", "error", err)
	}
}
