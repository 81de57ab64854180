package health

import (
	"context"
	"sync"
	"time"

	"github.com/creatorpay-hq/payrunner/pkg/config"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/metrics"
)

// Status classifies the signing service's availability
type Status string

const (
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Metrics is a point-in-time snapshot of the monitor's counters
type Metrics struct {
	Status              Status        `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	TotalRequests       int64         `json:"total_requests"`
	SuccessfulRequests  int64         `json:"successful_requests"`
	AverageResponseTime time.Duration `json:"average_response_time_ms"`
	CircuitBreakerOpen  bool          `json:"circuit_breaker_open"`
	NextRetryAt         time.Time     `json:"next_retry_at,omitempty"`
}

// Prober performs a single probe of the signing service, used by
// ForceHealthCheck. The signer client satisfies this.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor is a circuit breaker over calls to the signing service. Every
// outbound signer call reports its outcome here; status is derived from the
// counters and the configured thresholds.
type Monitor struct {
	cfg    config.HealthConfig
	logger logger.Logger

	mu                  sync.Mutex
	consecutiveFailures int
	totalRequests       int64
	successfulRequests  int64
	avgResponseTime     time.Duration
	breakerOpen         bool
	openPeriods         int
	nextRetryAt         time.Time
}

// NewMonitor creates a new health monitor
func NewMonitor(cfg config.HealthConfig, lg logger.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		logger: lg,
	}
}

// RecordSuccess records a successful signer call, closing the breaker and
// zeroing the consecutive failure count.
func (m *Monitor) RecordSuccess(responseTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.successfulRequests++
	m.consecutiveFailures = 0
	m.updateAvgResponseTime(responseTime)

	if m.breakerOpen {
		m.logger.NoticeWithComponent(logger.Health, "Signing service recovered, closing circuit breaker")
		m.breakerOpen = false
		m.openPeriods = 0
		m.nextRetryAt = time.Time{}
	}

	m.publishMetrics()
}

// RecordFailure records a failed signer call. Reaching the consecutive
// failure threshold opens the breaker with an exponentially growing retry
// delay, doubling for each consecutive open period.
func (m *Monitor) RecordFailure(responseTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.consecutiveFailures++
	m.updateAvgResponseTime(responseTime)

	if m.consecutiveFailures >= m.cfg.MaxConsecutiveFailures {
		delay := m.cfg.BaseRetryDelay
		for i := 0; i < m.openPeriods; i++ {
			delay *= 2
			if delay >= m.cfg.MaxRetryDelay {
				delay = m.cfg.MaxRetryDelay
				break
			}
		}

		if !m.breakerOpen {
			m.logger.ErrorWithComponent(logger.Health, "Circuit breaker opened after %d consecutive failures, next retry in %v",
				m.consecutiveFailures, delay)
		}
		m.breakerOpen = true
		m.openPeriods++
		m.nextRetryAt = time.Now().Add(delay)
	}

	m.publishMetrics()
}

// updateAvgResponseTime maintains a rolling average; callers hold the mutex
func (m *Monitor) updateAvgResponseTime(responseTime time.Duration) {
	if m.avgResponseTime == 0 {
		m.avgResponseTime = responseTime
		return
	}
	// Exponentially weighted toward recent samples
	m.avgResponseTime = (m.avgResponseTime*4 + responseTime) / 5
}

// IsBackendAvailable reports whether new signer requests should be issued.
// False while the breaker is open; the poller may still issue a single
// half-open probe once NextRetryAt has passed.
func (m *Monitor) IsBackendAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.breakerOpen
}

// HalfOpenProbeAllowed reports whether the half-open retry window has opened
func (m *Monitor) HalfOpenProbeAllowed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.breakerOpen && time.Now().After(m.nextRetryAt)
}

// statusLocked derives the status from the counters; callers hold the mutex
func (m *Monitor) statusLocked() Status {
	if m.breakerOpen {
		return StatusUnavailable
	}
	if m.avgResponseTime > m.cfg.DegradedResponseTime {
		return StatusDegraded
	}
	if m.totalRequests > 0 {
		successRate := float64(m.successfulRequests) / float64(m.totalRequests)
		if successRate < m.cfg.MinSuccessRate {
			return StatusDegraded
		}
	}
	return StatusHealthy
}

// Status returns the current availability classification
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// GetMetrics returns a snapshot of the monitor's counters
func (m *Monitor) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		Status:              m.statusLocked(),
		ConsecutiveFailures: m.consecutiveFailures,
		TotalRequests:       m.totalRequests,
		SuccessfulRequests:  m.successfulRequests,
		AverageResponseTime: m.avgResponseTime,
		CircuitBreakerOpen:  m.breakerOpen,
		NextRetryAt:         m.nextRetryAt,
	}
}

// ForceHealthCheck performs one synchronous probe outside the breaker's own
// scheduling and folds its outcome into the metrics.
func (m *Monitor) ForceHealthCheck(ctx context.Context, prober Prober) Status {
	start := time.Now()
	err := prober.Ping(ctx)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.DebugWithComponent(logger.Health, "Forced health check failed: %v", err)
		m.RecordFailure(elapsed)
	} else {
		m.RecordSuccess(elapsed)
	}
	return m.Status()
}

// Reset clears all counters and closes the breaker. Operator-triggered only.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveFailures = 0
	m.totalRequests = 0
	m.successfulRequests = 0
	m.avgResponseTime = 0
	m.breakerOpen = false
	m.openPeriods = 0
	m.nextRetryAt = time.Time{}

	m.logger.NoticeWithComponent(logger.Health, "Health monitor reset")
	m.publishMetrics()
}

// WaitForRecovery blocks until the signing service is usable again or the
// context is cancelled. Used by the recovery strategist for
// backend_unavailable failures.
func (m *Monitor) WaitForRecovery(ctx context.Context, checkInterval time.Duration) bool {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		if m.IsBackendAvailable() || m.HalfOpenProbeAllowed() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// publishMetrics pushes the breaker and status gauges; callers hold the mutex
func (m *Monitor) publishMetrics() {
	if m.breakerOpen {
		metrics.CircuitBreakerOpen.Set(1)
	} else {
		metrics.CircuitBreakerOpen.Set(0)
	}

	status := m.statusLocked()
	for _, s := range []Status{StatusHealthy, StatusDegraded, StatusUnavailable} {
		v := 0.0
		if s == status {
			v = 1.0
		}
		metrics.BackendStatus.WithLabelValues(string(s)).Set(v)
	}
}
