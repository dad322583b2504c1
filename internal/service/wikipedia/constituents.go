package wikipedia

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SectorFlow/internal/domain/models"
	drepo "SectorFlow/internal/domain/repository"
	"SectorFlow/pkg/cache"
	xhttp "SectorFlow/pkg/http"
	applogger "SectorFlow/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

	symbolHeader = "Symbol"
	sectorHeader = "GICS Sector"
	cacheKey     = "constituents:sp500"
)

var (
	ErrTableNotFound  = errors.New("wikipedia: constituents table not found")
	ErrColumnNotFound = errors.New("wikipedia: required column not found")
)

var _ drepo.ConstituentResolver = (*Resolver)(nil)

// Option configures Resolver.
type Option func(*Resolver)

// Resolver scrapes the S&P 500 constituents table.
type Resolver struct {
	url      string
	selector string
	http     *xhttp.Client
	cache    cache.Service
	ttl      time.Duration
	logger   *applogger.Logger
}

// NewResolver creates a resolver reading DefaultURL.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		url:      DefaultURL,
		selector: "table#constituents",
		ttl:      6 * time.Hour,
		logger:   applogger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.http == nil {
		r.http = xhttp.NewClient(xhttp.WithTimeout(20 * time.Second))
	}
	return r
}

// WithURL overrides the page address.
func WithURL(u string) Option {
	return func(r *Resolver) { r.url = u }
}

// WithHTTPClient sets the transport client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(r *Resolver) { r.http = h }
}

// WithCache keeps the parsed list for ttl.
func WithCache(s cache.Service, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = s
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// FetchConstituents returns every ticker with its GICS sector, in page order.
func (r *Resolver) FetchConstituents(ctx context.Context) ([]models.Constituent, error) {
	if r.cache != nil {
		var cached []models.Constituent
		if err := r.cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	var body []byte
	if err := r.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: r.url}, &body); err != nil {
		return nil, fmt.Errorf("%w: fetch constituents: %v", models.ErrSourceUnavailable, err)
	}

	out, err := ParseConstituents(body, r.selector)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("constituents parsed", applogger.Int("count", len(out)))

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, out, r.ttl); err != nil {
			r.logger.Warn("constituents cache write failed", applogger.Error(err))
		}
	}
	return out, nil
}

// ParseConstituents reads the symbol and sector columns of the table matched
// by selector. Columns are located by header text. Rows missing either value
// are skipped.
func ParseConstituents(page []byte, selector string) ([]models.Constituent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, ErrTableNotFound
	}

	symbolIdx, sectorIdx := -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		switch strings.TrimSpace(th.Text()) {
		case symbolHeader:
			symbolIdx = i
		case sectorHeader:
			sectorIdx = i
		}
	})
	if symbolIdx < 0 || sectorIdx < 0 {
		return nil, fmt.Errorf("%w: want %q and %q", ErrColumnNotFound, symbolHeader, sectorHeader)
	}

	var out []models.Constituent
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= symbolIdx || cells.Length() <= sectorIdx {
			return
		}
		ticker := strings.TrimSpace(cells.Eq(symbolIdx).Text())
		sector := strings.TrimSpace(cells.Eq(sectorIdx).Text())
		if ticker == "" || sector == "" {
			return
		}
		out = append(out, models.Constituent{Ticker: ticker, Sector: sector})
	})
	return out, nil
}
