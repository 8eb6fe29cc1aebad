package resilience

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ferrocp/pkg/helper/log"
)

// RateLimiterSettings configures a RateLimiter's sustained throughput and
// burst tolerance.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	BurstSize         int
	WaitTimeout       time.Duration
}

// DefaultRateLimiterSettings returns a generous default suitable for
// throttling log lines or other low-volume side channels.
func DefaultRateLimiterSettings() RateLimiterSettings {
	return RateLimiterSettings{
		RequestsPerSecond: 100,
		BurstSize:         200,
		WaitTimeout:       5 * time.Second,
	}
}

// RateLimiter wraps a token-bucket limiter for one named resource, tracking
// how often callers were allowed through, denied, or made to wait.
type RateLimiter struct {
	name     string
	settings RateLimiterSettings
	limiter  *rate.Limiter
	logger   log.Logger
	stats    rateLimiterStats
}

type rateLimiterStats struct {
	total   atomic.Int64
	allowed atomic.Int64
	denied  atomic.Int64
	waited  atomic.Int64
}

// NewRateLimiter creates a RateLimiter named name enforcing settings.
func NewRateLimiter(name string, settings RateLimiterSettings, logger log.Logger) *RateLimiter {
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}

	return &RateLimiter{
		name:     name,
		settings: settings,
		limiter:  rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), settings.BurstSize),
		logger:   logger,
	}
}

// Allow reports whether a request may proceed right now, without blocking.
func (r *RateLimiter) Allow() bool {
	r.stats.total.Add(1)
	if r.limiter.Allow() {
		r.stats.allowed.Add(1)
		return true
	}
	r.stats.denied.Add(1)
	return false
}

// Wait blocks until a token is available or ctx (bounded by
// settings.WaitTimeout, if set) is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.stats.total.Add(1)

	waitCtx := ctx
	if r.settings.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.settings.WaitTimeout)
		defer cancel()
	}

	if err := r.limiter.Wait(waitCtx); err != nil {
		r.stats.denied.Add(1)
		return fmt.Errorf("rate limiter %q wait failed: %w", r.name, err)
	}

	r.stats.allowed.Add(1)
	r.stats.waited.Add(1)
	return nil
}

// Reserve reserves a token for later consumption, in the style of
// rate.Limiter.Reserve.
func (r *RateLimiter) Reserve() *rate.Reservation {
	r.stats.total.Add(1)
	reservation := r.limiter.Reserve()
	if reservation.OK() {
		r.stats.allowed.Add(1)
	} else {
		r.stats.denied.Add(1)
	}
	return reservation
}

// SetLimit updates the sustained rate and burst size in place.
func (r *RateLimiter) SetLimit(requestsPerSecond float64, burstSize int) {
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
	r.limiter.SetBurst(burstSize)
	r.settings.RequestsPerSecond = requestsPerSecond
	r.settings.BurstSize = burstSize

	r.logger.WithFields(map[string]interface{}{
		"rateLimiter":       r.name,
		"requestsPerSecond": requestsPerSecond,
		"burstSize":         burstSize,
	}).Info("updated rate limiter settings")
}

// Stats returns a snapshot of the limiter's counters.
func (r *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		Name:              r.name,
		RequestsPerSecond: r.settings.RequestsPerSecond,
		BurstSize:         r.settings.BurstSize,
		TotalRequests:     r.stats.total.Load(),
		AllowedRequests:   r.stats.allowed.Load(),
		DeniedRequests:    r.stats.denied.Load(),
		WaitedRequests:    r.stats.waited.Load(),
	}
}

// RateLimiterStats is a point-in-time snapshot of a RateLimiter's counters.
type RateLimiterStats struct {
	Name              string
	RequestsPerSecond float64
	BurstSize         int
	TotalRequests     int64
	AllowedRequests   int64
	DeniedRequests    int64
	WaitedRequests    int64
}
