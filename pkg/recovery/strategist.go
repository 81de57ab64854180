package recovery

import (
	"context"
	"time"

	"github.com/creatorpay-hq/payrunner/pkg/config"
	"github.com/creatorpay-hq/payrunner/pkg/health"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/metrics"
	"github.com/creatorpay-hq/payrunner/pkg/models"
)

// Analysis is the outcome of classifying a failure
type Analysis struct {
	Category models.ErrorCategory
	Strategy models.RecoveryStrategy
	CanRetry bool
}

// Strategist decides and performs recovery for classified saga failures
type Strategist struct {
	cfg     config.RecoveryConfig
	monitor *health.Monitor
	logger  logger.Logger
}

// NewStrategist creates a new recovery strategist
func NewStrategist(cfg config.RecoveryConfig, monitor *health.Monitor, lg logger.Logger) *Strategist {
	return &Strategist{
		cfg:     cfg,
		monitor: monitor,
		logger:  lg,
	}
}

// AnalyzeError classifies err and selects a recovery strategy from the fixed table
func (s *Strategist) AnalyzeError(err error) Analysis {
	category := Classify(err)
	metrics.PaymentErrors.WithLabelValues(string(category)).Inc()
	return Analysis{
		Category: category,
		Strategy: StrategyFor(category),
		CanRetry: CanRetry(category),
	}
}

// AttemptRecovery performs the automatic-retry action for err's category and
// reports whether the saga may re-enter its flow. The recovery context is
// updated regardless of the outcome.
func (s *Strategist) AttemptRecovery(ctx context.Context, err error, rctx *models.RecoveryContext) bool {
	analysis := s.AnalyzeError(err)

	recovered := false
	if analysis.Strategy == models.StrategyAutomaticRetry && rctx.Attempt < s.cfg.MaxAutoRetryAttempts {
		recovered = s.performAutomaticRecovery(ctx, analysis.Category, rctx.Attempt)
	}

	rctx.Record(models.RecoveryAttempt{
		Category:  analysis.Category,
		Strategy:  analysis.Strategy,
		Err:       err,
		Recovered: recovered,
		At:        time.Now(),
	})

	outcome := "failed"
	if recovered {
		outcome = "recovered"
	}
	metrics.RecoveryAttempts.WithLabelValues(string(analysis.Category), outcome).Inc()

	s.logger.InfoWithComponent(logger.Recovery, "Recovery attempt %d for %s: %s",
		rctx.Attempt, analysis.Category, outcome)
	return recovered
}

// performAutomaticRecovery runs the category-specific recovery action
func (s *Strategist) performAutomaticRecovery(ctx context.Context, category models.ErrorCategory, priorAttempts int) bool {
	switch category {
	case models.CategoryBackendUnavailable:
		// Recovery means the signing service is reachable again
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return s.monitor.WaitForRecovery(waitCtx, time.Second)

	case models.CategoryNetworkError, models.CategoryTimeout:
		// Back off before declaring the retry viable
		backoff := time.Duration(1<<priorAttempts) * time.Second
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
		timer := time.NewTimer(backoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}

	default:
		return false
	}
}

// ExecuteManualRecovery is invoked after a user_intervention strategy has
// prompted the caller. It reports whether the saga may proceed.
func (s *Strategist) ExecuteManualRecovery(strategy models.RecoveryStrategy, userConfirmed bool) bool {
	switch strategy {
	case models.StrategyUserIntervention:
		return userConfirmed
	case models.StrategyAutomaticRetry:
		return true
	default:
		return false
	}
}

// MaxAutoRetryAttempts exposes the configured automatic retry budget
func (s *Strategist) MaxAutoRetryAttempts() int {
	return s.cfg.MaxAutoRetryAttempts
}
