// Package fetcher provides the fan-out aggregation core: one shared HTTP
// client, concurrent dispatch of independent GET fetches, and per-URL error
// containment.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mbeckner/fetch-fanout/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_fetch_requests_total",
		Help: "Total outbound fetches by result status",
	}, []string{"status"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_fetch_duration_seconds",
		Help:    "Outbound fetch duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_fetch_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})
)

// Fetcher issues single outbound GET fetches. It owns the process-wide HTTP
// client, which is created once and reused across all fetches and requests.
type Fetcher struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the fetcher configuration.
type Config struct {
	// UserAgent is attached to every outbound request (REQUIRED).
	UserAgent string

	// FetchTimeout bounds a single fetch (connect + headers + body).
	FetchTimeout time.Duration

	// MaxConcurrency caps parallel fetches within one batch (0 = unbounded).
	MaxConcurrency int

	// Cache is an optional fetched-body cache (nil = disabled).
	Cache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:    userAgent,
		FetchTimeout: 15 * time.Second,
	}
}

// New creates a new fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}

	logger := log.With().Str("component", "fetcher").Logger()

	return &Fetcher{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch performs one GET against the target URL and returns the raw response
// body as text. The body is passed through opaquely for any upstream status;
// only transport-level failures, request construction failures and unreadable
// bodies produce an error. Malformed URLs surface here as per-URL errors, not
// as request rejections.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	startTime := time.Now()
	defer func() {
		fetchDuration.Observe(time.Since(startTime).Seconds())
	}()

	if f.cache != nil {
		if entry, err := f.cache.Get(ctx, cache.Key(target)); err == nil {
			f.logger.Debug().Str("url", target).Msg("Cache hit")
			fetchRequestsTotal.WithLabelValues("cache_hit").Inc()
			return entry.Body, nil
		} else if err != cache.ErrCacheMiss {
			f.logger.Warn().Err(err).Str("url", target).Msg("Cache get error")
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.config.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fetchRequestsTotal.WithLabelValues("invalid_url").Inc()
		return "", &FetchError{URL: target, Err: err}
	}

	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn().Err(err).Str("url", target).Msg("Fetch failed")
		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fetchRequestsTotal.WithLabelValues("network_error").Inc()
		return "", &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.logger.Warn().Err(err).Str("url", target).Msg("Failed to read response body")
		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fetchRequestsTotal.WithLabelValues("read_error").Inc()
		return "", &FetchError{URL: target, Err: fmt.Errorf("read response: %w", err)}
	}

	fetchRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		fetchErrorsTotal.WithLabelValues(string(class)).Inc()
		f.logger.Debug().
			Str("url", target).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Upstream error status, body passed through")
	}

	if f.cache != nil && resp.StatusCode == http.StatusOK {
		entry := cache.NewEntry(string(body), resp.StatusCode)
		if err := f.cache.Set(ctx, cache.Key(target), entry); err != nil {
			f.logger.Warn().Err(err).Str("url", target).Msg("Failed to cache response")
		}
	}

	f.logger.Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Fetch complete")

	return string(body), nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}
