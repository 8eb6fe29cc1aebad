package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryOptions configures RetryWithContext's backoff schedule and which
// errors are worth retrying at all.
type RetryOptions struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Factor      float64
	Retryable   func(error) bool
}

// DefaultRetryOptions returns a 5-retry (6-attempt) exponential backoff starting at
// 1s and capping at 60s, retrying every error.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:  5,
		InitialWait: time.Second,
		MaxWait:     60 * time.Second,
		Factor:      2.0,
		Retryable:   alwaysRetryable,
	}
}

func alwaysRetryable(error) bool { return true }

// ErrRetryAborted is returned when ctx is cancelled while RetryWithContext
// is waiting between attempts.
var ErrRetryAborted = errors.New("retry aborted by context cancellation")

// RetryableFunc is one retryable unit of work.
type RetryableFunc func() error

// RetryWithContext runs fn until it succeeds, opts.Retryable rejects its
// error, opts.MaxRetries is exhausted, or ctx is cancelled between
// attempts, waiting opts.InitialWait after the first failure and scaling
// by opts.Factor (capped at opts.MaxWait) after each subsequent one.
func RetryWithContext(ctx context.Context, fn RetryableFunc, opts RetryOptions) error {
	wait := opts.InitialWait

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ErrRetryAborted
			}
			wait = nextWait(wait, opts.Factor, opts.MaxWait)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !opts.Retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func nextWait(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}

// RetryWithBackoff is RetryWithContext with the default retry-everything
// policy, for callers that only want to set the attempt count and wait
// bounds.
func RetryWithBackoff(ctx context.Context, maxRetries int, initialWait, maxWait time.Duration, fn RetryableFunc) error {
	return RetryWithContext(ctx, fn, RetryOptions{
		MaxRetries:  maxRetries,
		InitialWait: initialWait,
		MaxWait:     maxWait,
		Factor:      2.0,
		Retryable:   alwaysRetryable,
	})
}

// Logger is the minimal logging surface RetryWithBackoffAndLogger needs;
// kept separate from log.Logger so callers can pass a one-off adapter
// without pulling in the full logger interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// RetryWithBackoffAndLogger wraps RetryWithBackoff, logging a warning on
// every failed attempt and a debug line if a later attempt then succeeds.
func RetryWithBackoffAndLogger(
	ctx context.Context,
	maxRetries int,
	initialWait, maxWait time.Duration,
	logger Logger,
	operationName string,
	fn RetryableFunc,
) error {
	var lastErr error
	attempts := 0

	err := RetryWithContext(ctx, func() error {
		attempts++
		if e := fn(); e != nil {
			lastErr = e
			logger.Warn(fmt.Sprintf("operation %q failed on attempt %d, retrying", operationName, attempts), map[string]interface{}{
				"error": e.Error(),
			})
			return e
		}
		return nil
	}, RetryOptions{
		MaxRetries:  maxRetries,
		InitialWait: initialWait,
		MaxWait:     maxWait,
		Factor:      2.0,
		Retryable:   alwaysRetryable,
	})

	switch {
	case err != nil && errors.Is(err, lastErr):
		logger.Warn(fmt.Sprintf("operation %q failed permanently after %d retries", operationName, maxRetries), map[string]interface{}{
			"error": err.Error(),
		})
	case err == nil && lastErr != nil:
		logger.Debug(fmt.Sprintf("operation %q succeeded after %d attempt(s)", operationName, attempts), nil)
	}

	return err
}
