// Package omdb is a MetadataSource backed by the OMDb HTTP API.
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sony/gobreaker"

	"github.com/soundprediction/mediagraph/pkg/alert"
	"github.com/soundprediction/mediagraph/pkg/cache"
	"github.com/soundprediction/mediagraph/pkg/config"
	"github.com/soundprediction/mediagraph/pkg/types"
)

const (
	DefaultBaseURL = "https://www.omdbapi.com/"
	cachePrefix    = "omdb:"
	recentLimit    = 128
	recentTTL      = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrInvalidAPIKey is returned when OMDb rejects the key.
var ErrInvalidAPIKey = errors.New("omdb rejected the api key")

// Config configures a Client.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	Retry    RetryConfig
	Breaker  config.CircuitBreakerConfig

	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// ConfigFromSettings converts the file/env configuration.
func ConfigFromSettings(o config.OMDbConfig, cb config.CircuitBreakerConfig) Config {
	return Config{
		APIKey:   o.APIKey,
		BaseURL:  o.BaseURL,
		Timeout:  time.Duration(o.Timeout) * time.Second,
		CacheTTL: time.Duration(o.CacheTTL) * time.Hour,
		Retry: RetryConfig{
			MaxRetries:        o.Retry.MaxRetries,
			InitialDelay:      time.Duration(o.Retry.InitialDelay) * time.Millisecond,
			MaxDelay:          time.Duration(o.Retry.MaxDelay) * time.Millisecond,
			BackoffMultiplier: o.Retry.Multiplier,
		},
		Breaker: cb,
	}
}

// Client fetches title records from OMDb.
type Client struct {
	cfg     Config
	http    *http.Client
	cache   cache.Cache
	cb      *gobreaker.CircuitBreaker
	alerter alert.Alerter
	logger  *slog.Logger

	mu     sync.Mutex
	recent map[string]recentEntry
	now    func() time.Time
}

type recentEntry struct {
	raw *rawTitle
	at  time.Time
}

// NewClient creates a client. store, alerter and logger may be nil.
func NewClient(cfg Config, store cache.Cache, alerter alert.Alerter, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.Retry = cfg.Retry.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		cfg:     cfg,
		http:    httpClient,
		cache:   store,
		alerter: alerter,
		logger:  logger.With("component", "omdb"),
		recent:  make(map[string]recentEntry),
		now:     time.Now,
	}
	if cfg.Breaker.Enabled {
		c.cb = c.newBreaker(cfg.Breaker)
	}
	return c
}

func (c *Client) newBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	st := gobreaker.Settings{
		Name:        "omdb",
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= cfg.ReadyToTripRatio
		},
		// unknown ids are answers, not outages
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("Circuit breaker '%s' changed status from %s to %s. Too many failed OMDb requests.", name, from, to)
				if err := c.alerter.Alert(fmt.Sprintf("Circuit breaker tripped - %s", name), msg); err != nil {
					c.logger.Error("Failed to send breaker alert", "error", err)
				}
			}
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}

// Kind reports the media kind of id.
func (c *Client) Kind(ctx context.Context, id string) (types.MediaKind, error) {
	raw, err := c.lookup(ctx, id)
	if err != nil {
		return types.UnknownKind, err
	}
	return types.ParseMediaKind(raw.Type), nil
}

// Fetch returns the full record for id.
func (c *Client) Fetch(ctx context.Context, id string) (*types.Title, error) {
	raw, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	c.forget(id)
	return raw.toTitle(id), nil
}

func (c *Client) lookup(ctx context.Context, id string) (*rawTitle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, types.ErrEmptyID
	}

	if raw := c.remembered(id); raw != nil {
		return raw, nil
	}
	if raw := c.cached(id); raw != nil {
		c.remember(id, raw)
		return raw, nil
	}

	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := retry(ctx, c.cfg.Retry, func() ([]byte, error) {
		return c.execute(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", id, err)
	}

	raw, body, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", id, err)
	}
	if !raw.ok() {
		return nil, apiError(id, raw.Error)
	}

	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if err := c.cache.Set(cachePrefix+id, body, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("Failed to cache response", "id", id, "error", err)
		}
	}
	c.remember(id, raw)
	c.logger.Debug("Fetched title", "id", id, "type", raw.Type)
	return raw, nil
}

func (c *Client) execute(ctx context.Context, id string) ([]byte, error) {
	if c.cb == nil {
		return c.get(ctx, id)
	}
	v, err := c.cb.Execute(func() (interface{}, error) {
		return c.get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) get(ctx context.Context, id string) ([]byte, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("i", id)
	q.Set("plot", "full")
	q.Set("apikey", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidAPIKey
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w", ErrRateLimit, &HTTPError{StatusCode: resp.StatusCode, Body: snippet(body)})
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

// decode parses body, repairing malformed JSON once. It returns the bytes
// that parsed so the cache only ever holds valid JSON.
func decode(body []byte) (*rawTitle, []byte, error) {
	var raw rawTitle
	if err := json.Unmarshal(body, &raw); err == nil {
		return &raw, body, nil
	}

	repaired, err := jsonrepair.JSONRepair(string(body))
	if err != nil {
		return nil, nil, fmt.Errorf("unrepairable response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return nil, nil, err
	}
	return &raw, []byte(repaired), nil
}

func apiError(id, message string) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "limit"):
		return fmt.Errorf("%w: %s", ErrRateLimit, message)
	case strings.Contains(lower, "api key"):
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, message)
	default:
		return &APIError{ID: id, Message: message}
	}
}

func (c *Client) cached(id string) *rawTitle {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return nil
	}
	body, err := c.cache.Get(cachePrefix + id)
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached response", "id", id, "error", err)
		}
		return nil
	}
	var raw rawTitle
	if err := json.Unmarshal(body, &raw); err != nil {
		_ = c.cache.Delete(cachePrefix + id)
		return nil
	}
	c.logger.Debug("Cache hit", "id", id)
	return &raw
}

// The recent memo spans the Kind then Fetch pair the ingest pipeline makes
// for one id. Runs that stop after Kind leave their entry behind, so entries
// expire after recentTTL.
func (c *Client) remembered(id string) *rawTitle {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.recent[id]
	if !ok {
		return nil
	}
	if c.now().Sub(e.at) > recentTTL {
		delete(c.recent, id)
		return nil
	}
	return e.raw
}

func (c *Client) remember(id string, raw *rawTitle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.recent) >= recentLimit {
		clear(c.recent)
	}
	c.recent[id] = recentEntry{raw: raw, at: c.now()}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.recent, id)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
