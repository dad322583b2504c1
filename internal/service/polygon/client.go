package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SectorFlow/internal/domain/models"
	drepo "SectorFlow/internal/domain/repository"
	"SectorFlow/internal/service/ratelimit"
	"SectorFlow/pkg/cache"
	xhttp "SectorFlow/pkg/http"
	applogger "SectorFlow/pkg/logger"
	"SectorFlow/pkg/util"

	"github.com/sony/gobreaker"
)

const DefaultBaseURL = "https://api.polygon.io"

var _ drepo.SnapshotProvider = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

// Client reads closes and market caps from the Polygon REST API.
// Historical closes are cached when a cache is configured.
type Client struct {
	apiKey   string
	baseURL  string
	host     string
	http     *xhttp.Client
	limiter  *ratelimit.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    cache.Service
	cacheTTL time.Duration
	logger   *applogger.Logger
}

// New creates a Polygon client. Without options it talks to the public API
// with no rate limit and no cache.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		cacheTTL: 7 * 24 * time.Hour,
		logger:   applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(0, 1)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(BreakerSettings{})
	}
	if u, err := url.Parse(c.baseURL); err == nil {
		c.host = u.Host
	}
	return c
}

// WithBaseURL points the client at another host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the transport client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLimiter throttles outgoing calls per host.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithBreaker sets the circuit breaker guarding the API.
func WithBreaker(b *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithCache caches historical closes for ttl.
func WithCache(s cache.Service, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = s
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

type aggBar struct {
	Close float64 `json:"c"`
}

type aggsResponse struct {
	Status  string   `json:"status"`
	Results []aggBar `json:"results"`
}

type tickerDetailsResponse struct {
	Status  string `json:"status"`
	Results struct {
		Ticker    string  `json:"ticker"`
		MarketCap float64 `json:"market_cap"`
	} `json:"results"`
}

// SpotPrice returns the previous session close when asOf is nil and the daily
// close on asOf otherwise. A date without a bar is unavailable.
func (c *Client) SpotPrice(ctx context.Context, ticker string, asOf *time.Time) (float64, error) {
	if asOf == nil {
		return c.previousClose(ctx, ticker)
	}
	return c.closeOn(ctx, ticker, util.FormatDate(*asOf))
}

func (c *Client) previousClose(ctx context.Context, ticker string) (float64, error) {
	var resp aggsResponse
	path := fmt.Sprintf("/v2/aggs/ticker/%s/prev", url.PathEscape(ticker))
	if err := c.get(ctx, path, url.Values{"adjusted": {"true"}}, &resp); err != nil {
		return 0, err
	}
	if len(resp.Results) == 0 || resp.Results[0].Close == 0 {
		return 0, fmt.Errorf("%w: no previous close for %s", models.ErrSourceUnavailable, ticker)
	}
	return resp.Results[0].Close, nil
}

func (c *Client) closeOn(ctx context.Context, ticker, date string) (float64, error) {
	key := cache.Key("close", ticker, date)
	if c.cache != nil {
		var cached float64
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Debug("close cache read failed", applogger.String("key", key), applogger.Error(err))
		}
	}

	var resp aggsResponse
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", url.PathEscape(ticker), date, date)
	if err := c.get(ctx, path, url.Values{"adjusted": {"true"}}, &resp); err != nil {
		return 0, err
	}
	if len(resp.Results) == 0 || resp.Results[0].Close == 0 {
		return 0, fmt.Errorf("%w: no bar for %s on %s", models.ErrSourceUnavailable, ticker, date)
	}

	px := resp.Results[0].Close
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, px, c.cacheTTL); err != nil {
			c.logger.Debug("close cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return px, nil
}

// MarketCap returns the current market capitalization in dollars.
func (c *Client) MarketCap(ctx context.Context, ticker string) (float64, error) {
	var resp tickerDetailsResponse
	path := fmt.Sprintf("/v3/reference/tickers/%s", url.PathEscape(ticker))
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Results.MarketCap == 0 {
		return 0, fmt.Errorf("%w: no market cap for %s", models.ErrSourceUnavailable, ticker)
	}
	return resp.Results.MarketCap, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return err
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.apiKey)

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.http.GetJSON(ctx, c.baseURL+path, query, dest)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: polygon %s: %v", models.ErrSourceUnavailable, path, err)
}

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	OnStateChange       func(name string, from, to gobreaker.State)
}

// NewBreaker trips after a run of consecutive transport or 5xx/429 failures.
// Not-found answers count as successes since they describe the data.
func NewBreaker(s BreakerSettings) *gobreaker.CircuitBreaker {
	if s.Name == "" {
		s.Name = "polygon"
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	threshold := s.ConsecutiveFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     s.Name,
		Interval: time.Minute,
		Timeout:  s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *xhttp.StatusError
			if errors.As(err, &se) {
				return se.Code == http.StatusNotFound
			}
			return false
		},
		OnStateChange: s.OnStateChange,
	})
}
