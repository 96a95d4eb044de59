// Package batch submits record sequences to bulk-action endpoints in
// fixed-size, order-preserving chunks.
//
// Chunks are sent one after another; chunk i+1 is never sent before chunk i
// succeeded. The first failing chunk aborts the run and earlier chunks stay
// applied on the server: there is no compensating action, so callers must
// treat a failed Send as a possibly partial submission.
package batch

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/animals-client/pkg/request"
)

// Prometheus metrics for batch submission.
var (
	chunksSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animals_chunks_submitted_total",
		Help: "Total chunks accepted by endpoint",
	}, []string{"endpoint"})

	recordsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animals_records_submitted_total",
		Help: "Total records accepted by endpoint",
	}, []string{"endpoint"})
)

// DefaultChunkSize is the largest batch the bulk endpoints accept.
const DefaultChunkSize = 100

// Executor runs a single logical call.
type Executor interface {
	Execute(ctx context.Context, call request.Call) (*request.Response, error)
}

// Config holds submitter configuration.
type Config struct {
	// ChunkSize is the maximum number of records per request.
	ChunkSize int

	// ExpectedStatus is the status every chunk must return.
	ExpectedStatus int

	// Endpoint is the metrics label for chunk requests (default: the path).
	Endpoint string
}

// DefaultConfig returns the default submitter configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:      DefaultChunkSize,
		ExpectedStatus: http.StatusOK,
	}
}

// Chunks splits records into contiguous slices of at most size elements.
// The last chunk may be shorter. Chunks share the backing array of records
// but are capacity-capped so appending to one never overwrites the next.
// size must be positive.
func Chunks[T any](records []T, size int) [][]T {
	if size <= 0 {
		panic("batch: chunk size must be positive")
	}

	chunks := make([][]T, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		chunks = append(chunks, records[start:end:end])
	}
	return chunks
}

// Submitter posts records in chunks through an Executor.
type Submitter[T any] struct {
	exec   Executor
	config Config
	logger zerolog.Logger
}

type options struct {
	logger *zerolog.Logger
}

// Option configures a Submitter.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// NewSubmitter creates a new Submitter. Non-positive chunk sizes fall back to
// DefaultChunkSize.
func NewSubmitter[T any](exec Executor, config Config, opts ...Option) *Submitter[T] {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ExpectedStatus == 0 {
		config.ExpectedStatus = http.StatusOK
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.With().Str("component", "batch-submitter").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	return &Submitter[T]{
		exec:   exec,
		config: config,
		logger: logger,
	}
}

// ChunkSize returns the effective chunk size.
func (s *Submitter[T]) ChunkSize() int {
	return s.config.ChunkSize
}

// Send posts records to path in order, one chunk per call. It stops at the
// first failing chunk and returns its error unmodified.
func (s *Submitter[T]) Send(ctx context.Context, path string, records []T) error {
	start := time.Now()
	endpoint := s.config.Endpoint
	if endpoint == "" {
		endpoint = path
	}

	chunks := Chunks(records, s.config.ChunkSize)
	submitted := 0
	for i, chunk := range chunks {
		_, err := s.exec.Execute(ctx, request.Call{
			Method:         http.MethodPost,
			Path:           path,
			Body:           chunk,
			ExpectedStatus: s.config.ExpectedStatus,
			Endpoint:       endpoint,
		})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("endpoint", path).
				Int("chunk", i).
				Int("chunks", len(chunks)).
				Int("records_submitted", submitted).
				Msg("Chunk submission failed, earlier chunks remain applied")
			return err
		}

		submitted += len(chunk)
		chunksSubmittedTotal.WithLabelValues(endpoint).Inc()
		recordsSubmittedTotal.WithLabelValues(endpoint).Add(float64(len(chunk)))

		s.logger.Debug().
			Str("endpoint", path).
			Int("chunk", i).
			Int("size", len(chunk)).
			Msg("Chunk submitted")
	}

	s.logger.Info().
		Str("endpoint", path).
		Int("chunks", len(chunks)).
		Int("records", submitted).
		Dur("duration", time.Since(start)).
		Msg("Submission complete")

	return nil
}
