package resilience

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowRespectsBurst(t *testing.T) {
	rl := NewRateLimiter("burst", RateLimiterSettings{RequestsPerSecond: 1, BurstSize: 3, WaitTimeout: time.Second}, nil)

	allowed := 0
	for i := 0; i < 5; i++ {
		if rl.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed = %d, want 3 (burst size)", allowed)
	}

	stats := rl.Stats()
	if stats.TotalRequests != 5 {
		t.Errorf("TotalRequests = %d, want 5", stats.TotalRequests)
	}
	if stats.DeniedRequests != 2 {
		t.Errorf("DeniedRequests = %d, want 2", stats.DeniedRequests)
	}
}

func TestRateLimiterWaitBlocksUntilTokenAvailable(t *testing.T) {
	rl := NewRateLimiter("wait", RateLimiterSettings{RequestsPerSecond: 50, BurstSize: 1, WaitTimeout: time.Second}, nil)

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should succeed immediately: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("second wait should eventually succeed: %v", err)
	}
	if elapsed := time.Since(start); elapsed <= 0 {
		t.Error("expected the second wait to take non-zero time")
	}
}

func TestRateLimiterWaitTimesOutUnderContextDeadline(t *testing.T) {
	rl := NewRateLimiter("timeout", RateLimiterSettings{RequestsPerSecond: 0.1, BurstSize: 1, WaitTimeout: 0}, nil)
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected Wait to fail once the context deadline expires")
	}
}

func TestRateLimiterSetLimitUpdatesSettings(t *testing.T) {
	rl := NewRateLimiter("adjustable", RateLimiterSettings{RequestsPerSecond: 1, BurstSize: 1, WaitTimeout: time.Second}, nil)

	rl.SetLimit(10, 20)

	stats := rl.Stats()
	if stats.RequestsPerSecond != 10 || stats.BurstSize != 20 {
		t.Errorf("got rps=%v burst=%v, want rps=10 burst=20", stats.RequestsPerSecond, stats.BurstSize)
	}
}
