package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/animals-client/pkg/batch"
	"github.com/Sternrassler/animals-client/pkg/request"
)

// Endpoint is a path on the Animals API plus the status treated as success.
type Endpoint struct {
	Path           string
	ExpectedStatus int
}

// Endpoints groups the three endpoints the client talks to.
type Endpoints struct {
	// List is the paginated collection.
	List Endpoint

	// Detail is the per-item endpoint; the item id is appended to Path.
	Detail Endpoint

	// Home is the bulk-action endpoint.
	Home Endpoint
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Animals API, e.g. "http://localhost:3123".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Retry
	Timeout    time.Duration // Per attempt
	MaxRetries int           // Attempts per logical call

	// Batching
	ChunkSize int // Records per bulk request

	// Pacing
	RequestsPerSecond float64 // 0 disables pacing
	Burst             int

	Endpoints Endpoints
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	rc := request.DefaultConfig()
	return Config{
		BaseURL:    rc.BaseURL,
		UserAgent:  rc.UserAgent,
		Timeout:    rc.Timeout,
		MaxRetries: rc.MaxRetries,
		ChunkSize:  batch.DefaultChunkSize,
		Burst:      1,
		Endpoints: Endpoints{
			List:   Endpoint{Path: "/animals/v1/animals", ExpectedStatus: http.StatusOK},
			Detail: Endpoint{Path: "/animals/v1/animals", ExpectedStatus: http.StatusOK},
			Home:   Endpoint{Path: "/animals/v1/home", ExpectedStatus: http.StatusOK},
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.requestConfig().Validate(); err != nil {
		return err
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be >= 1 (got %d)", c.ChunkSize)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be >= 0 (got %g)", c.RequestsPerSecond)
	}
	for name, ep := range map[string]Endpoint{
		"list":   c.Endpoints.List,
		"detail": c.Endpoints.Detail,
		"home":   c.Endpoints.Home,
	} {
		if !strings.HasPrefix(ep.Path, "/") {
			return fmt.Errorf("%s endpoint path must start with / (got %q)", name, ep.Path)
		}
		if ep.ExpectedStatus < 100 || ep.ExpectedStatus > 599 {
			return fmt.Errorf("%s endpoint expected status invalid (got %d)", name, ep.ExpectedStatus)
		}
	}
	return nil
}

func (c Config) requestConfig() request.Config {
	return request.Config{
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		UserAgent:  c.UserAgent,
	}
}
