package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/creatorpay-hq/payrunner/pkg/config"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
)

func testHealthConfig() config.HealthConfig {
	return config.HealthConfig{
		MaxConsecutiveFailures: 3,
		BaseRetryDelay:         10 * time.Millisecond,
		MaxRetryDelay:          80 * time.Millisecond,
		DegradedResponseTime:   2 * time.Second,
		MinSuccessRate:         0.9,
	}
}

func TestMonitorOpensAfterConsecutiveFailures(t *testing.T) {
	monitor := NewMonitor(testHealthConfig(), &logger.EmptyLogger{})

	// Two failures are below the threshold, the breaker stays closed
	monitor.RecordFailure(50 * time.Millisecond)
	monitor.RecordFailure(50 * time.Millisecond)
	assert.True(t, monitor.IsBackendAvailable(), "breaker should stay closed below the failure threshold")
	assert.NotEqual(t, StatusUnavailable, monitor.Status())

	// The third consecutive failure opens it
	monitor.RecordFailure(50 * time.Millisecond)
	assert.False(t, monitor.IsBackendAvailable(), "breaker should open at the failure threshold")
	assert.Equal(t, StatusUnavailable, monitor.Status())

	snapshot := monitor.GetMetrics()
	assert.True(t, snapshot.CircuitBreakerOpen)
	assert.Equal(t, 3, snapshot.ConsecutiveFailures)
	assert.False(t, snapshot.NextRetryAt.IsZero(), "an open breaker should schedule a retry window")
}

func TestMonitorSingleSuccessClosesBreaker(t *testing.T) {
	monitor := NewMonitor(testHealthConfig(), &logger.EmptyLogger{})

	for i := 0; i < 3; i++ {
		monitor.RecordFailure(50 * time.Millisecond)
	}
	assert.False(t, monitor.IsBackendAvailable())

	// One success resets the failure count and closes the breaker
	monitor.RecordSuccess(20 * time.Millisecond)
	assert.True(t, monitor.IsBackendAvailable(), "one success should close the breaker")
	assert.Equal(t, 0, monitor.GetMetrics().ConsecutiveFailures)
	assert.True(t, monitor.GetMetrics().NextRetryAt.IsZero())
}

func TestMonitorRetryDelayDoublesPerOpenPeriod(t *testing.T) {
	cfg := testHealthConfig()
	monitor := NewMonitor(cfg, &logger.EmptyLogger{})

	// First open period uses the base delay
	for i := 0; i < cfg.MaxConsecutiveFailures; i++ {
		monitor.RecordFailure(time.Millisecond)
	}
	firstWindow := time.Until(monitor.GetMetrics().NextRetryAt)
	assert.LessOrEqual(t, firstWindow, cfg.BaseRetryDelay)

	// Each further failure while open extends the window, doubling per period
	monitor.RecordFailure(time.Millisecond)
	secondWindow := time.Until(monitor.GetMetrics().NextRetryAt)
	assert.Greater(t, secondWindow, firstWindow, "retry window should grow while failures continue")

	// The delay is capped at MaxRetryDelay no matter how many periods pass
	for i := 0; i < 10; i++ {
		monitor.RecordFailure(time.Millisecond)
	}
	capped := time.Until(monitor.GetMetrics().NextRetryAt)
	assert.LessOrEqual(t, capped, cfg.MaxRetryDelay+10*time.Millisecond)
}

func TestMonitorHalfOpenProbeWindow(t *testing.T) {
	cfg := testHealthConfig()
	cfg.BaseRetryDelay = 20 * time.Millisecond
	monitor := NewMonitor(cfg, &logger.EmptyLogger{})

	for i := 0; i < cfg.MaxConsecutiveFailures; i++ {
		monitor.RecordFailure(time.Millisecond)
	}
	assert.False(t, monitor.HalfOpenProbeAllowed(), "probe window should be closed right after opening")

	time.Sleep(30 * time.Millisecond)
	assert.True(t, monitor.HalfOpenProbeAllowed(), "probe window should open once the retry delay passes")
	assert.False(t, monitor.IsBackendAvailable(), "half-open is not the same as closed")
}

func TestMonitorStatusDegradedOnSlowResponses(t *testing.T) {
	cfg := testHealthConfig()
	cfg.DegradedResponseTime = 100 * time.Millisecond
	monitor := NewMonitor(cfg, &logger.EmptyLogger{})

	monitor.RecordSuccess(5 * time.Second)
	assert.Equal(t, StatusDegraded, monitor.Status(), "slow responses should degrade the status")
}

func TestMonitorStatusDegradedOnLowSuccessRate(t *testing.T) {
	monitor := NewMonitor(testHealthConfig(), &logger.EmptyLogger{})

	// Interleave failures with successes so the breaker never opens but the
	// success rate drops below the minimum.
	for i := 0; i < 5; i++ {
		monitor.RecordSuccess(10 * time.Millisecond)
		monitor.RecordFailure(10 * time.Millisecond)
	}
	assert.True(t, monitor.IsBackendAvailable())
	assert.Equal(t, StatusDegraded, monitor.Status(), "a 50 percent success rate should degrade the status")
}

func TestMonitorReset(t *testing.T) {
	monitor := NewMonitor(testHealthConfig(), &logger.EmptyLogger{})

	for i := 0; i < 5; i++ {
		monitor.RecordFailure(time.Second)
	}
	assert.False(t, monitor.IsBackendAvailable())

	monitor.Reset()

	assert.True(t, monitor.IsBackendAvailable())
	snapshot := monitor.GetMetrics()
	assert.Equal(t, StatusHealthy, snapshot.Status)
	assert.Equal(t, int64(0), snapshot.TotalRequests)
	assert.Equal(t, 0, snapshot.ConsecutiveFailures)
}

type stubProber struct {
	err error
}

func (s *stubProber) Ping(ctx context.Context) error {
	return s.err
}

func TestForceHealthCheck(t *testing.T) {
	monitor := NewMonitor(testHealthConfig(), &logger.EmptyLogger{})

	status := monitor.ForceHealthCheck(context.Background(), &stubProber{})
	assert.Equal(t, StatusHealthy, status)
	assert.Equal(t, int64(1), monitor.GetMetrics().TotalRequests)

	status = monitor.ForceHealthCheck(context.Background(), &stubProber{err: errors.New("connection refused")})
	assert.Equal(t, StatusDegraded, status, "a failed probe counts against the success rate")
	assert.Equal(t, 1, monitor.GetMetrics().ConsecutiveFailures)
}

func TestWaitForRecovery(t *testing.T) {
	cfg := testHealthConfig()
	cfg.BaseRetryDelay = 20 * time.Millisecond
	monitor := NewMonitor(cfg, &logger.EmptyLogger{})

	for i := 0; i < cfg.MaxConsecutiveFailures; i++ {
		monitor.RecordFailure(time.Millisecond)
	}

	// The half-open window opens after the base delay, so the wait returns true
	recovered := monitor.WaitForRecovery(context.Background(), 5*time.Millisecond)
	assert.True(t, recovered)

	// A cancelled context abandons the wait
	monitor.Reset()
	for i := 0; i < cfg.MaxConsecutiveFailures; i++ {
		monitor.RecordFailure(time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Millisecond)
	defer cancel()
	monitor.RecordFailure(time.Millisecond) // extend the window past the context deadline
	recovered = monitor.WaitForRecovery(ctx, time.Millisecond)
	assert.False(t, recovered)
}
