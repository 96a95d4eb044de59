package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/animals-client/pkg/request"
)

var pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "animals_pages_fetched_total",
	Help: "Total pages fetched by endpoint",
}, []string{"endpoint"})

// ErrMalformedPage is returned when a page cannot be decoded or lacks
// total_pages.
var ErrMalformedPage = errors.New("malformed page envelope")

// Executor runs a single logical call.
type Executor interface {
	Execute(ctx context.Context, call request.Call) (*request.Response, error)
}

// Item is an opaque record as returned by the server.
type Item map[string]any

// Page is the envelope returned by a paginated endpoint.
type Page struct {
	TotalPages *int   `json:"total_pages"`
	Items      []Item `json:"items"`
}

// Config holds paginator configuration.
type Config struct {
	// PageParam is the query parameter carrying the page index.
	PageParam string

	// ExpectedStatus is the status every page must return.
	ExpectedStatus int

	// Endpoint is the metrics label for page requests (default: the path).
	Endpoint string
}

// DefaultConfig returns the default paginator configuration.
func DefaultConfig() Config {
	return Config{
		PageParam:      "page",
		ExpectedStatus: http.StatusOK,
	}
}

// Paginator fetches every page of a collection sequentially.
type Paginator struct {
	exec   Executor
	config Config
	logger zerolog.Logger
}

// Option configures the Paginator.
type Option func(*Paginator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Paginator) {
		p.logger = l
	}
}

// NewPaginator creates a new Paginator.
func NewPaginator(exec Executor, config Config, opts ...Option) *Paginator {
	if config.PageParam == "" {
		config.PageParam = "page"
	}
	if config.ExpectedStatus == 0 {
		config.ExpectedStatus = http.StatusOK
	}

	p := &Paginator{
		exec:   exec,
		config: config,
		logger: log.With().Str("component", "paginator").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchAll requests pages 0..total_pages of path and returns their items in
// page order. Errors from the executor are returned unmodified.
func (p *Paginator) FetchAll(ctx context.Context, path string) ([]Item, error) {
	start := time.Now()
	endpoint := p.config.Endpoint
	if endpoint == "" {
		endpoint = path
	}

	var (
		items      []Item
		totalPages int
		observed   bool
	)

	page := 0
	for !observed || page <= totalPages {
		query := url.Values{}
		query.Set(p.config.PageParam, strconv.Itoa(page))

		resp, err := p.exec.Execute(ctx, request.Call{
			Method:         http.MethodGet,
			Path:           path,
			Query:          query,
			ExpectedStatus: p.config.ExpectedStatus,
			Endpoint:       endpoint,
		})
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("endpoint", path).
				Int("page", page).
				Int("items_discarded", len(items)).
				Msg("Page fetch failed")
			return nil, err
		}

		var env Page
		if err := resp.Decode(&env); err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrMalformedPage, page, err)
		}
		if env.TotalPages == nil {
			return nil, fmt.Errorf("%w: page %d: missing total_pages", ErrMalformedPage, page)
		}

		totalPages, observed = *env.TotalPages, true
		items = append(items, env.Items...)
		pagesFetchedTotal.WithLabelValues(endpoint).Inc()

		p.logger.Debug().
			Str("endpoint", path).
			Int("page", page).
			Int("total_pages", totalPages).
			Int("items", len(env.Items)).
			Msg("Page fetched")

		page++
	}

	p.logger.Info().
		Str("endpoint", path).
		Int("pages", page).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}
