// Package client provides the Animals API client: listing, per-item detail
// and bulk send-home, each routed through the retrying request executor.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/animals-client/pkg/batch"
	"github.com/Sternrassler/animals-client/pkg/pagination"
	"github.com/Sternrassler/animals-client/pkg/ratelimit"
	"github.com/Sternrassler/animals-client/pkg/request"
)

// ErrEmptyID is returned by Detail when called without an id.
var ErrEmptyID = errors.New("animal id is required")

// Item is an opaque animal record as returned by the server.
type Item = pagination.Item

// Client is the Animals API client.
type Client struct {
	executor  *request.Executor
	paginator *pagination.Paginator
	submitter *batch.Submitter[Item]
	pacer     *ratelimit.Pacer
	config    Config
	logger    zerolog.Logger
}

type options struct {
	httpClient *http.Client
	logger     *zerolog.Logger
	hook       request.ErrorHook
	hookSet    bool
}

// Option configures the Client.
type Option func(*options)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithLogger sets the logger shared by all components.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithErrorHook replaces the hook receiving fatal API errors.
func WithErrorHook(h request.ErrorHook) Option {
	return func(o *options) {
		o.hook = h
		o.hookSet = true
	}
}

// New creates a new Animals API client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.With().Str("component", "animals-client").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	pacer := ratelimit.NewPacer(cfg.RequestsPerSecond, cfg.Burst, logger)

	execOpts := []request.Option{
		request.WithLogger(logger),
		request.WithPacer(pacer),
	}
	if o.httpClient != nil {
		execOpts = append(execOpts, request.WithHTTPClient(o.httpClient))
	}
	if o.hookSet {
		execOpts = append(execOpts, request.WithErrorHook(o.hook))
	}

	executor, err := request.New(cfg.requestConfig(), execOpts...)
	if err != nil {
		return nil, err
	}

	paginator := pagination.NewPaginator(executor, pagination.Config{
		PageParam:      "page",
		ExpectedStatus: cfg.Endpoints.List.ExpectedStatus,
		Endpoint:       "list",
	}, pagination.WithLogger(logger))

	submitter := batch.NewSubmitter[Item](executor, batch.Config{
		ChunkSize:      cfg.ChunkSize,
		ExpectedStatus: cfg.Endpoints.Home.ExpectedStatus,
		Endpoint:       "home",
	}, batch.WithLogger(logger))

	return &Client{
		executor:  executor,
		paginator: paginator,
		submitter: submitter,
		pacer:     pacer,
		config:    cfg,
		logger:    logger,
	}, nil
}

// List returns every animal across all pages, in page order.
func (c *Client) List(ctx context.Context) ([]Item, error) {
	return c.paginator.FetchAll(ctx, c.config.Endpoints.List.Path)
}

// Detail fetches the full record of one animal.
func (c *Client) Detail(ctx context.Context, id string) (Item, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	ep := c.config.Endpoints.Detail
	resp, err := c.executor.Execute(ctx, request.Call{
		Method:         http.MethodGet,
		Path:           strings.TrimRight(ep.Path, "/") + "/" + url.PathEscape(id),
		ExpectedStatus: ep.ExpectedStatus,
		Endpoint:       "detail",
	})
	if err != nil {
		return nil, err
	}

	var item Item
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	return item, nil
}

// SendHome submits records to the bulk endpoint in chunks of ChunkSize.
// If a chunk fails, earlier chunks have already been accepted by the server.
func (c *Client) SendHome(ctx context.Context, records []Item) error {
	return c.submitter.Send(ctx, c.config.Endpoints.Home.Path, records)
}

// Pacer returns the request pacer (for inspection).
func (c *Client) Pacer() *ratelimit.Pacer {
	return c.pacer
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}
