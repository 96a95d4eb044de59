// Package ratelimit spaces outgoing requests with a token bucket so a long
// pagination or batch run does not hammer the Animals API.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	pacerWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animals_pacer_waits_total",
		Help: "Total number of requests that passed through the pacer",
	})

	pacerThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animals_pacer_throttles_total",
		Help: "Total number of requests delayed by the pacer",
	})

	pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "animals_pacer_wait_seconds",
		Help:    "Time spent waiting for a pacer token",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Pacer gates requests with a token bucket. A zero rate disables pacing.
type Pacer struct {
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
}

// State is a snapshot of pacer activity.
type State struct {
	// Waits is the number of Wait calls that returned a token.
	Waits int64

	// Throttled is the number of Wait calls that had to block.
	Throttled int64

	// TotalWait is the accumulated blocking time.
	TotalWait time.Duration
}

// NewPacer creates a pacer allowing perSecond requests with the given burst.
// perSecond <= 0 means unlimited.
func NewPacer(perSecond float64, burst int, logger zerolog.Logger) *Pacer {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	return &Pacer{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	waited := time.Since(start)

	pacerWaitsTotal.Inc()
	pacerWaitSeconds.Observe(waited.Seconds())

	p.mu.Lock()
	p.state.Waits++
	throttled := waited >= time.Millisecond
	if throttled {
		p.state.Throttled++
		p.state.TotalWait += waited
	}
	p.mu.Unlock()

	if throttled {
		pacerThrottlesTotal.Inc()
		p.logger.Debug().
			Dur("wait_duration", waited).
			Msg("Request throttled by pacer")
	}
	return nil
}

// Limit returns the configured rate in requests per second.
func (p *Pacer) Limit() rate.Limit {
	return p.limiter.Limit()
}

// Burst returns the configured burst size.
func (p *Pacer) Burst() int {
	return p.limiter.Burst()
}

// State returns a snapshot of pacer activity.
func (p *Pacer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
