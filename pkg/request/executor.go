// Package request issues single logical HTTP calls against the Animals API,
// retrying transient server failures and classifying every other outcome.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the executor configuration.
type Config struct {
	// BaseURL is prepended to every call path.
	BaseURL string

	// Timeout bounds each physical attempt. Every retry gets a fresh window.
	Timeout time.Duration

	// MaxRetries is the maximum number of attempts for one logical call.
	MaxRetries int

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:3123",
		Timeout:    20 * time.Second,
		MaxRetries: 10,
		UserAgent:  "animals-client/0.1.0",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base url must be absolute (got %q)", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", c.Timeout)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1 (got %d)", c.MaxRetries)
	}
	return nil
}

// Waiter gates each physical attempt, e.g. a rate limiter.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Executor runs logical calls with bounded retry on 5xx responses.
type Executor struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	pacer      Waiter
	onError    ErrorHook
	hookSet    bool
	logger     zerolog.Logger
}

// Option configures the Executor.
type Option func(*Executor)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(e *Executor) {
		e.httpClient = hc
	}
}

// WithLogger sets the logger used for retry warnings. Unless WithErrorHook
// is given, fatal errors are logged to it as well.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithErrorHook replaces the hook receiving fatal errors, regardless of
// option order. A nil hook disables it.
func WithErrorHook(h ErrorHook) Option {
	return func(e *Executor) {
		e.onError = h
		e.hookSet = true
	}
}

// WithPacer waits on w before every physical attempt.
func WithPacer(w Waiter) Option {
	return func(e *Executor) {
		e.pacer = w
	}
}

// New creates a new Executor.
func New(cfg Config, opts ...Option) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "request-executor").Logger()
	e := &Executor{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		config:     cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.hookSet {
		e.onError = LogErrorHook(e.logger)
	}
	return e, nil
}

// Execute performs one logical call.
//
// A 5xx response is retried until MaxRetries attempts have been made, after
// which an APIError wrapping ErrRetriesExhausted is returned. Any other
// status that differs from the expected one fails immediately with an
// APIError wrapping ErrUnexpectedStatus. Failures that produce no response
// at all are returned as a *TransportError and are not retried.
func (e *Executor) Execute(ctx context.Context, call Call) (*Response, error) {
	expected := call.expectedStatus()
	endpoint := call.endpoint()

	var payload []byte
	if call.Body != nil {
		var err error
		payload, err = json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	target := e.baseURL + call.Path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var last *Response
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		resp, err := e.send(ctx, call.Method, target, payload, endpoint)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			e.logger.Error().
				Err(err).
				Str("method", call.Method).
				Str("uri", call.Path).
				Int("attempt", attempt).
				Msg("HTTP request failed")
			return nil, &TransportError{Method: call.Method, URI: call.Path, Attempt: attempt, Err: err}
		}
		resp.Attempts = attempt
		last = resp

		if resp.StatusCode == expected && resp.StatusCode < 500 {
			if attempt > 1 {
				e.logger.Info().
					Str("uri", call.Path).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		if !shouldRetry(class) {
			return nil, e.fail(call, expected, resp, ErrUnexpectedStatus, class)
		}

		if attempt < e.config.MaxRetries {
			retriesTotal.WithLabelValues(endpoint).Inc()
			e.logger.Warn().
				Str("method", call.Method).
				Str("uri", call.Path).
				Int("status_code", resp.StatusCode).
				Int("attempt", attempt).
				Int("max_retries", e.config.MaxRetries).
				Msg("Received 5xx status code, retrying")
		}
	}

	retryExhaustedTotal.WithLabelValues(endpoint).Inc()
	return nil, e.fail(call, expected, last, ErrRetriesExhausted, ErrorClassServer)
}

// send performs a single physical attempt and reads the whole body.
func (e *Executor) send(ctx context.Context, method, target string, payload []byte, endpoint string) (*Response, error) {
	if e.pacer != nil {
		if err := e.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pace request: %w", err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if e.config.UserAgent != "" {
		req.Header.Set("User-Agent", e.config.UserAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := e.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	e.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status_code", resp.StatusCode).
		Msg("Request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// fail builds the APIError for the last attempt and hands it to the hook.
func (e *Executor) fail(call Call, expected int, resp *Response, reason error, class ErrorClass) *APIError {
	apiErr := &APIError{
		Err:            reason,
		Class:          class,
		Method:         call.Method,
		URI:            call.Path,
		Query:          call.Query,
		ExpectedStatus: expected,
		StatusCode:     resp.StatusCode,
		Body:           resp.Body,
		Attempts:       resp.Attempts,
	}
	if e.onError != nil {
		e.onError(apiErr)
	}
	return apiErr
}
