package mediagraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
	"github.com/soundprediction/mediagraph/pkg/upsert"
)

// MetadataSource looks up catalog records by external identifier.
type MetadataSource interface {
	// Kind reports the media kind of id. Unrecognised kinds are
	// types.UnknownKind with a nil error.
	Kind(ctx context.Context, id string) (types.MediaKind, error)

	// Fetch returns the full record for id.
	Fetch(ctx context.Context, id string) (*types.Title, error)
}

// Config holds configuration for the mediagraph client.
type Config struct {
	// UniqueConstraints makes CreateIndices add store-level uniqueness
	// constraints on name, closing the check-then-create race across processes.
	UniqueConstraints bool
	// Workers is the default concurrency of IngestMany.
	Workers int
	// LockShards sizes the in-process key locker.
	LockShards int
}

// DefaultConfig returns the configuration used when NewClient gets nil.
func DefaultConfig() *Config {
	return &Config{
		Workers:    4,
		LockShards: 64,
	}
}

var (
	// ErrDuplicate is returned when a title node is already present.
	ErrDuplicate = upsert.ErrDuplicate
	// ErrUnsupportedMediaKind is recorded for titles whose kind has no category.
	ErrUnsupportedMediaKind = upsert.ErrUnsupportedMediaKind
	// ErrRecursionLimit is returned if parent resolution would nest deeper
	// than episode -> series.
	ErrRecursionLimit = errors.New("parent resolution depth exceeded")
	// ErrMissingParent is recorded when an episode carries no series id.
	ErrMissingParent = errors.New("episode has no series id")
	// ErrClientClosed is returned after Close.
	ErrClientClosed = errors.New("client closed")
)

// Client ingests catalog titles into the graph. It owns one session for its
// lifetime; calls on that session are serialized.
type Client struct {
	driver driver.GraphDriver
	source MetadataSource
	config *Config
	logger *slog.Logger
	locks  *upsert.KeyLocker

	mu     sync.Mutex
	orch   *orchestrator
	closed bool
}

// NewClient opens the client's session on d.
func NewClient(d driver.GraphDriver, source MetadataSource, config *Config, logger *slog.Logger) (*Client, error) {
	if d == nil {
		return nil, errors.New("graph driver is required")
	}
	if source == nil {
		return nil, errors.New("metadata source is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		driver: d,
		source: source,
		config: config,
		logger: logger,
		locks:  upsert.NewKeyLocker(config.LockShards),
	}

	orch, err := c.newOrchestrator(context.Background())
	if err != nil {
		return nil, err
	}
	c.orch = orch
	return c, nil
}

// Provider reports which graph store the client writes to.
func (c *Client) Provider() driver.GraphProvider {
	return c.driver.Provider()
}

// Close closes the owned session. The driver stays open; its owner closes it.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.orch.session.Close(ctx); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// withSession runs fn with exclusive use of the owned orchestrator.
func (c *Client) withSession(fn func(o *orchestrator) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return fn(c.orch)
}

func (c *Client) newOrchestrator(ctx context.Context) (*orchestrator, error) {
	session, err := c.driver.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	oracle := upsert.NewOracle(session)
	return &orchestrator{
		session: session,
		source:  c.source,
		oracle:  oracle,
		mat:     upsert.NewMaterializer(session, c.logger),
		linker:  upsert.NewLinker(oracle, session, c.locks, c.logger),
		locks:   c.locks,
		logger:  c.logger.With("component", "orchestrator"),
	}, nil
}
