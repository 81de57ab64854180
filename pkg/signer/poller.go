package signer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/creatorpay-hq/payrunner/pkg/config"
	"github.com/creatorpay-hq/payrunner/pkg/health"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/metrics"
	"github.com/creatorpay-hq/payrunner/pkg/models"
)

// ErrAlreadyPolling is returned when a poll is started while one is in flight
var ErrAlreadyPolling = errors.New("polling already in progress")

// ErrPollCancelled is the cooperative cancellation outcome of a poll
var ErrPollCancelled = errors.New("signature polling cancelled")

// SignatureChecker is the single-probe contract the poller needs from the
// signing service client.
type SignatureChecker interface {
	CheckSignature(ctx context.Context, intentID models.IntentID, intentHash common.Hash) (*models.SignatureRecord, error)
}

// PollStatus describes what the poller is currently doing
type PollStatus string

const (
	PollStatusIdle    PollStatus = "idle"
	PollStatusPolling PollStatus = "polling"
	PollStatusFound   PollStatus = "found"
	PollStatusTimeout PollStatus = "timeout"
	PollStatusError   PollStatus = "error"
)

// PollState is the observable snapshot of an in-flight poll
type PollState struct {
	Status            PollStatus    `json:"status"`
	Attempt           int           `json:"attempt"`
	AttemptsRemaining int           `json:"attempts_remaining"`
	Elapsed           time.Duration `json:"elapsed"`
	Remaining         time.Duration `json:"remaining_estimate"`
	Progress          float64       `json:"progress"`
}

// Poller repeatedly asks the signing service for an intent's co-signature,
// bounded by a configured attempt budget. One poll at a time per instance.
type Poller struct {
	cfg     config.PollerConfig
	client  SignatureChecker
	monitor *health.Monitor
	logger  logger.Logger

	mu        sync.Mutex
	polling   bool
	cancel    context.CancelFunc
	state     PollState
	startedAt time.Time
}

// NewPoller creates a new signature poller reporting call outcomes to monitor
func NewPoller(cfg config.PollerConfig, client SignatureChecker, monitor *health.Monitor, lg logger.Logger) *Poller {
	return &Poller{
		cfg:     cfg,
		client:  client,
		monitor: monitor,
		logger:  lg,
		state:   PollState{Status: PollStatusIdle},
	}
}

// PollForSignature polls until the signature is ready, the attempt budget is
// exhausted, or the poll is cancelled. Only one poll may be active; a second
// call fails fast without touching the network.
func (p *Poller) PollForSignature(ctx context.Context, intentID models.IntentID, intentHash common.Hash) (*models.SignatureRecord, error) {
	p.mu.Lock()
	if p.polling {
		p.mu.Unlock()
		return nil, ErrAlreadyPolling
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.polling = true
	p.cancel = cancel
	p.startedAt = time.Now()
	p.setStateLocked(PollState{Status: PollStatusPolling, AttemptsRemaining: p.cfg.MaxAttempts})
	p.mu.Unlock()

	record, err := p.run(pollCtx, intentID, intentHash)
	cancel()

	p.mu.Lock()
	p.polling = false
	p.cancel = nil
	switch {
	case record != nil:
		p.setStateLocked(PollState{Status: PollStatusFound, Attempt: record.Attempts, Progress: 1})
	case errors.Is(err, ErrPollCancelled):
		p.setStateLocked(PollState{Status: PollStatusIdle})
	case models.CategoryOf(err) == models.CategoryTimeout:
		p.setStateLocked(PollState{Status: PollStatusTimeout, Attempt: p.cfg.MaxAttempts, Progress: 1})
	default:
		p.setStateLocked(PollState{Status: PollStatusError, Attempt: p.state.Attempt})
	}
	p.mu.Unlock()

	return record, err
}

// run drives the attempt loop; the single-flight bookkeeping stays in PollForSignature
func (p *Poller) run(ctx context.Context, intentID models.IntentID, intentHash common.Hash) (*models.SignatureRecord, error) {
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrPollCancelled
		}

		p.updateProgress(attempt)

		// Respect the open breaker, except for the half-open probe window
		if !p.monitor.IsBackendAvailable() && !p.monitor.HalfOpenProbeAllowed() {
			p.logger.DebugWithComponent(logger.Poller, "Circuit breaker open, skipping attempt %d/%d for intent %s",
				attempt, p.cfg.MaxAttempts, intentID.Hex())
			if attempt < p.cfg.MaxAttempts {
				if err := p.sleep(ctx, attempt); err != nil {
					return nil, ErrPollCancelled
				}
			}
			continue
		}

		start := time.Now()
		record, err := p.client.CheckSignature(ctx, intentID, intentHash)
		elapsed := time.Since(start)
		metrics.SignerResponseTime.Observe(elapsed.Seconds())

		switch {
		case err == nil && record.Ready:
			p.monitor.RecordSuccess(elapsed)
			metrics.SignerRequests.WithLabelValues("ready").Inc()
			metrics.SignaturePollAttempts.Observe(float64(attempt))
			record.Attempts = attempt
			p.logger.InfoWithComponent(logger.Poller, "Signature ready for intent %s after %d attempts", intentID.Hex(), attempt)
			return record, nil

		case err == nil:
			// Not ready yet, schedule the next attempt
			p.monitor.RecordSuccess(elapsed)
			metrics.SignerRequests.WithLabelValues("not_ready").Inc()
			p.logger.DebugWithComponent(logger.Poller, "Signature not ready for intent %s (attempt %d/%d)",
				intentID.Hex(), attempt, p.cfg.MaxAttempts)

		case errors.Is(err, ErrMalformedResponse):
			p.monitor.RecordFailure(elapsed)
			metrics.SignerRequests.WithLabelValues("malformed").Inc()
			return nil, models.NewPaymentError(models.CategoryExecutionError,
				fmt.Errorf("aborting poll for intent %s: %v", intentID.Hex(), err))

		case ctx.Err() != nil:
			return nil, ErrPollCancelled

		default:
			// Server failure or transport error: counts against health, poll continues
			p.monitor.RecordFailure(elapsed)
			metrics.SignerRequests.WithLabelValues("failure").Inc()
			p.logger.ErrorWithComponent(logger.Poller, "Signer call failed for intent %s (attempt %d/%d): %v",
				intentID.Hex(), attempt, p.cfg.MaxAttempts, err)
		}

		if attempt < p.cfg.MaxAttempts {
			if err := p.sleep(ctx, attempt); err != nil {
				return nil, ErrPollCancelled
			}
		}
	}

	metrics.SignaturePollTimeouts.Inc()
	return nil, models.NewPaymentError(models.CategoryTimeout,
		fmt.Errorf("signature for intent %s not ready after %d attempts", intentID.Hex(), p.cfg.MaxAttempts))
}

// CheckSignatureStatus performs exactly one non-retrying probe
func (p *Poller) CheckSignatureStatus(ctx context.Context, intentID models.IntentID, intentHash common.Hash) (*models.SignatureRecord, error) {
	start := time.Now()
	record, err := p.client.CheckSignature(ctx, intentID, intentHash)
	elapsed := time.Since(start)

	if err != nil {
		p.monitor.RecordFailure(elapsed)
		return nil, err
	}
	p.monitor.RecordSuccess(elapsed)
	return record, nil
}

// CancelPolling aborts the in-flight request and any scheduled next attempt.
// The awaiting caller observes a cooperative cancellation, not an error.
func (p *Poller) CancelPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.logger.NoticeWithComponent(logger.Poller, "Cancelling signature poll")
		p.cancel()
	}
}

// State returns the observable snapshot of the current poll
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.state
	if p.polling {
		state.Elapsed = time.Since(p.startedAt)
	}
	return state
}

// sleep waits out the interval before the next attempt, honoring cancellation
func (p *Poller) sleep(ctx context.Context, attempt int) error {
	interval := p.cfg.BaseInterval
	if p.cfg.ExponentialBackoff {
		for i := 1; i < attempt; i++ {
			interval *= 2
			if interval >= p.cfg.MaxBackoffInterval {
				interval = p.cfg.MaxBackoffInterval
				break
			}
		}
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// updateProgress refreshes the observable attempt counters
func (p *Poller) updateProgress(attempt int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Attempt = attempt
	p.state.AttemptsRemaining = p.cfg.MaxAttempts - attempt
	p.state.Progress = float64(attempt) / float64(p.cfg.MaxAttempts)
	p.state.Remaining = time.Duration(p.state.AttemptsRemaining) * p.cfg.BaseInterval
}

// setStateLocked replaces the snapshot; callers hold the mutex
func (p *Poller) setStateLocked(state PollState) {
	p.state = state
}
