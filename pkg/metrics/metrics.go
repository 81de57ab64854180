package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	PaymentsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payrunner_payments_started_total",
		Help: "The total number of payment sagas started",
	})

	PaymentsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payrunner_payments_completed_total",
		Help: "The total number of payment sagas reaching a terminal state",
	}, []string{"status"})

	PaymentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payrunner_payment_duration_seconds",
		Help:    "End-to-end duration of payment sagas",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payrunner_phase_duration_seconds",
		Help:    "Time spent in each saga phase",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"phase"})

	CurrentPhase = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payrunner_current_phase_progress",
		Help: "Progress percentage of the active payment saga",
	})

	SignerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payrunner_signer_requests_total",
		Help: "Total number of signing service requests by outcome",
	}, []string{"outcome"})

	SignerResponseTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payrunner_signer_response_seconds",
		Help:    "Signing service response times",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	SignaturePollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payrunner_signature_poll_attempts",
		Help:    "Number of poll attempts until a signature was found",
		Buckets: prometheus.LinearBuckets(1, 3, 10),
	})

	SignaturePollTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payrunner_signature_poll_timeouts_total",
		Help: "Number of signature polls that exhausted their attempt budget",
	})

	CircuitBreakerOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payrunner_circuit_breaker_open",
		Help: "Whether the signing service circuit breaker is open (1) or closed (0)",
	})

	BackendStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "payrunner_backend_status",
		Help: "Signing service status (1 for the active status label, 0 otherwise)",
	}, []string{"status"})

	RecoveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payrunner_recovery_attempts_total",
		Help: "Recovery attempts by error category and outcome",
	}, []string{"category", "outcome"})

	PaymentErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payrunner_errors_total",
		Help: "Total number of classified payment errors by category",
	}, []string{"category"})

	SagaRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payrunner_saga_retries_total",
		Help: "Number of saga-level retries after a recovered failure",
	})

	GasPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payrunner_gas_price_gwei",
		Help: "Current gas price in gwei",
	})

	IntentConfirmationTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payrunner_intent_confirmation_seconds",
		Help:    "Time waiting for on-chain confirmation of intent transactions",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})
)
