// Package orchestrator drives the multi-step payment saga: intent creation,
// co-signature polling, execution and confirmation, with classified error
// recovery between steps.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/creatorpay-hq/payrunner/pkg/config"
	"github.com/creatorpay-hq/payrunner/pkg/health"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/metrics"
	"github.com/creatorpay-hq/payrunner/pkg/models"
	"github.com/creatorpay-hq/payrunner/pkg/recovery"
	"github.com/creatorpay-hq/payrunner/pkg/signer"
)

// ErrPaymentInProgress is returned when a saga is already active
var ErrPaymentInProgress = errors.New("payment already in progress")

// ErrNothingToRetry is returned by RetryPayment without a stored request
var ErrNothingToRetry = errors.New("nothing to retry")

// ErrPaymentCancelled is the cooperative cancellation outcome of a saga
var ErrPaymentCancelled = errors.New("payment cancelled")

// ChainClient is the on-chain collaborator contract the orchestrator needs
type ChainClient interface {
	CreateIntent(ctx context.Context, req *models.PaymentRequest) (*types.Transaction, error)
	ExecutePayment(ctx context.Context, intentID models.IntentID) (*types.Transaction, error)
	WaitForConfirmation(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	IntentFromReceipt(receipt *types.Receipt) (*models.PaymentIntent, error)
	DetectAccountType(ctx context.Context, addr common.Address) (models.AccountType, error)
}

// SignaturePoller is the poller contract the orchestrator needs
type SignaturePoller interface {
	PollForSignature(ctx context.Context, intentID models.IntentID, intentHash common.Hash) (*models.SignatureRecord, error)
	CancelPolling()
	State() signer.PollState
}

// PhaseChangeFunc observes phase transitions
type PhaseChangeFunc func(change PhaseChange)

// HealthChangeFunc observes signing service status changes
type HealthChangeFunc func(status health.Status)

// SystemHealth is the synchronous snapshot returned by GetSystemHealth
type SystemHealth struct {
	Phase         models.Phase     `json:"phase"`
	Progress      int              `json:"progress"`
	Message       string           `json:"message"`
	BackendHealth health.Metrics   `json:"backend_health"`
	Poll          signer.PollState `json:"signature_poll"`
}

// Orchestrator coordinates one payment saga at a time
type Orchestrator struct {
	cfg        *config.Config
	chain      ChainClient
	poller     SignaturePoller
	monitor    *health.Monitor
	strategist *recovery.Strategist
	logger     logger.Logger

	mu              sync.Mutex
	active          bool
	cancelRun       context.CancelFunc
	lastRequest     *models.PaymentRequest
	state           FlowState
	progress        int
	rctx            *models.RecoveryContext
	lastHealth      health.Status
	phaseStarted    time.Time
	phaseTimings    map[models.Phase]time.Duration
	phaseObservers  []PhaseChangeFunc
	healthObservers []HealthChangeFunc
}

// New creates a new payment orchestrator
func New(cfg *config.Config, chain ChainClient, poller SignaturePoller, monitor *health.Monitor, strategist *recovery.Strategist, lg logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		chain:      chain,
		poller:     poller,
		monitor:    monitor,
		strategist: strategist,
		logger:     lg,
		state:      IdleState{},
		lastHealth: health.StatusHealthy,
	}
}

// OnPhaseChange registers a phase transition observer
func (o *Orchestrator) OnPhaseChange(fn PhaseChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phaseObservers = append(o.phaseObservers, fn)
}

// OnHealthChange registers a signing service status observer
func (o *Orchestrator) OnHealthChange(fn HealthChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.healthObservers = append(o.healthObservers, fn)
}

// State returns the current flow state snapshot
func (o *Orchestrator) State() FlowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ExecutePayment runs the payment saga for req. It rejects immediately, with
// no state change, if a saga is already active on this orchestrator.
func (o *Orchestrator) ExecutePayment(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return nil, ErrPaymentInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.active = true
	o.cancelRun = cancel
	o.lastRequest = req
	o.rctx = &models.RecoveryContext{}
	o.phaseTimings = make(map[models.Phase]time.Duration)
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.active = false
		o.cancelRun = nil
		o.mu.Unlock()
	}()

	metrics.PaymentsStarted.Inc()
	start := time.Now()

	result, err := o.runWithRecovery(runCtx, req)

	o.mu.Lock()
	rctx := o.rctx
	timings := o.phaseTimings
	o.mu.Unlock()

	if result == nil {
		result = &models.PaymentResult{}
	}
	result.TotalDuration = time.Since(start)
	result.PhaseTimings = timings
	if rctx != nil {
		result.RecoveryAttempts = rctx.Attempt
	}
	metrics.PaymentDuration.Observe(result.TotalDuration.Seconds())

	switch {
	case err == nil:
		result.Success = true
		metrics.PaymentsCompleted.WithLabelValues("success").Inc()
		o.transitionTo(CompletedState{Result: result})
	case errors.Is(err, ErrPaymentCancelled):
		metrics.PaymentsCompleted.WithLabelValues("cancelled").Inc()
		o.clearSagaState()
		o.transitionTo(IdleState{})
	default:
		category := recovery.Classify(err)
		result.ErrorCategory = category
		result.Err = err
		metrics.PaymentsCompleted.WithLabelValues("failed").Inc()
		o.transitionTo(FailedState{Category: category, Err: err})
	}

	return result, err
}

// runWithRecovery drives saga attempts in an explicit loop. A recovered
// failure re-enters the saga; the loop is bounded by MaxSagaRetries
// independently of the strategist's per-category budget.
func (o *Orchestrator) runWithRecovery(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.Recovery.MaxSagaRetries; attempt++ {
		if attempt > 0 {
			metrics.SagaRetries.Inc()
			o.logger.NoticeWithComponent(logger.Orchestrator, "Re-entering payment saga (retry %d/%d)",
				attempt, o.cfg.Recovery.MaxSagaRetries)
		}

		result, err := o.runSaga(ctx, req)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrPaymentCancelled) || ctx.Err() != nil {
			return nil, ErrPaymentCancelled
		}
		lastErr = err

		o.mu.Lock()
		rctx := o.rctx
		o.mu.Unlock()

		analysis := o.strategist.AnalyzeError(err)
		o.transitionTo(RecoveringState{
			Category: analysis.Category,
			Strategy: analysis.Strategy,
			Attempt:  rctx.Attempt + 1,
		})

		if !o.strategist.AttemptRecovery(ctx, err, rctx) {
			return nil, err
		}
	}
	return nil, lastErr
}

// runSaga executes one pass through the saga's phases in order
func (o *Orchestrator) runSaga(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	// Pre-flight: a degraded signer is surfaced but does not block the
	// on-chain steps; the signature is only needed mid-flow.
	backendStatus := o.monitor.Status()
	if backendStatus != health.StatusHealthy {
		o.logger.NoticeWithComponent(logger.Orchestrator, "Starting payment with signing service %s", backendStatus)
	}
	o.transitionTo(InitializingState{SessionID: req.SessionID, BackendHealth: backendStatus})

	o.transitionTo(DetectingAccountTypeState{Payer: req.Payer})
	accountType, err := o.chain.DetectAccountType(ctx, req.Payer)
	if err != nil {
		return nil, o.cancellableErr(ctx, fmt.Errorf("failed to detect account type: %w", err))
	}

	o.transitionTo(ChoosingStrategyState{AccountType: accountType})
	strategy := chooseStrategy(accountType)
	o.logger.DebugWithComponent(logger.Orchestrator, "Selected %s strategy for %s account", strategy, accountType)

	o.transitionTo(CreatingIntentState{Strategy: strategy})
	createTx, err := o.chain.CreateIntent(ctx, req)
	if err != nil {
		return nil, o.cancellableErr(ctx, err)
	}

	o.transitionTo(WaitingIntentConfirmationState{TxHash: createTx.Hash()})
	createReceipt, err := o.chain.WaitForConfirmation(ctx, createTx)
	if err != nil {
		return nil, o.cancellableErr(ctx, err)
	}

	intent, err := o.chain.IntentFromReceipt(createReceipt)
	if err != nil {
		return nil, fmt.Errorf("intent confirmation missing event data: %w", err)
	}
	o.logger.InfoWithComponent(logger.Orchestrator, "Intent %s registered (creator %s, platform fee %s, operator fee %s)",
		intent.ID.Hex(), intent.CreatorAmount.String(), intent.PlatformFee.String(), intent.OperatorFee.String())

	o.transitionTo(WaitingSignatureState{IntentID: intent.ID, Poll: o.poller.State()})
	signature, err := o.poller.PollForSignature(ctx, intent.ID, createTx.Hash())
	if err != nil {
		if errors.Is(err, signer.ErrPollCancelled) {
			return nil, ErrPaymentCancelled
		}
		return nil, err
	}

	// The execute call carries only the intent ID; the contract resolves the
	// stored co-signature to avoid stale-signature mismatches.
	o.transitionTo(ExecutingPaymentState{IntentID: intent.ID})
	execTx, err := o.chain.ExecutePayment(ctx, intent.ID)
	if err != nil {
		return nil, o.cancellableErr(ctx, err)
	}

	o.transitionTo(ConfirmingState{IntentID: intent.ID, TxHash: execTx.Hash()})
	if _, err := o.chain.WaitForConfirmation(ctx, execTx); err != nil {
		return nil, o.cancellableErr(ctx, err)
	}

	txHash := execTx.Hash()
	return &models.PaymentResult{
		IntentID:  intent.ID,
		TxHash:    &txHash,
		Signature: signature.Signature,
	}, nil
}

// cancellableErr converts failures observed after a cancel into the
// cooperative cancellation outcome.
func (o *Orchestrator) cancellableErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ErrPaymentCancelled
	}
	return err
}

// chooseStrategy selects among equivalent execution strategies based on the
// detected account type.
func chooseStrategy(accountType models.AccountType) models.ExecutionStrategy {
	if accountType == models.AccountTypeSmartContract {
		return models.StrategyBatched
	}
	return models.StrategySequential
}

// CancelPayment signals cooperative cancellation to any in-flight wait,
// stops the signature poller and returns the orchestrator to idle.
// Already-submitted transactions are not reversed.
func (o *Orchestrator) CancelPayment() {
	o.mu.Lock()
	cancel := o.cancelRun
	o.mu.Unlock()

	if cancel != nil {
		o.logger.NoticeWithComponent(logger.Orchestrator, "Cancelling payment")
		cancel()
	}
	o.poller.CancelPolling()

	o.clearSagaState()
	o.transitionTo(IdleState{})
}

// RetryPayment re-invokes ExecutePayment with the last stored request
func (o *Orchestrator) RetryPayment(ctx context.Context) (*models.PaymentResult, error) {
	o.mu.Lock()
	req := o.lastRequest
	o.mu.Unlock()

	if req == nil {
		return nil, ErrNothingToRetry
	}
	return o.ExecutePayment(ctx, req)
}

// ResetState cancels any active saga and clears all saga-scoped state
func (o *Orchestrator) ResetState() {
	o.mu.Lock()
	cancel := o.cancelRun
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.poller.CancelPolling()

	o.mu.Lock()
	o.lastRequest = nil
	o.rctx = nil
	o.phaseTimings = nil
	o.mu.Unlock()

	o.transitionTo(IdleState{})
}

// clearSagaState discards the recovery context after a terminal outcome
func (o *Orchestrator) clearSagaState() {
	o.mu.Lock()
	o.rctx = nil
	o.mu.Unlock()
}

// GetSystemHealth returns a synchronous snapshot of the orchestrator and its
// collaborators.
func (o *Orchestrator) GetSystemHealth() SystemHealth {
	o.mu.Lock()
	state := o.state
	progress := o.progress
	o.mu.Unlock()

	return SystemHealth{
		Phase:         state.Phase(),
		Progress:      progress,
		Message:       state.Message(),
		BackendHealth: o.monitor.GetMetrics(),
		Poll:          o.poller.State(),
	}
}

// GetEstimatedDuration returns a point-in-time estimate of the time left in
// the current saga.
func (o *Orchestrator) GetEstimatedDuration() time.Duration {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	confirmation := o.cfg.ConfirmationTimeout / 4
	polling := time.Duration(o.cfg.Poller.MaxAttempts) * o.cfg.Poller.BaseInterval / 2

	switch state.Phase() {
	case models.PhaseIdle, models.PhaseInitializing, models.PhaseDetectingAccountType,
		models.PhaseChoosingStrategy, models.PhaseCreatingIntent, models.PhaseWaitingIntentConfirmation:
		return 2*confirmation + polling
	case models.PhaseWaitingSignature:
		poll := o.poller.State()
		return time.Duration(poll.AttemptsRemaining)*o.cfg.Poller.BaseInterval + confirmation
	case models.PhaseExecutingPayment, models.PhaseConfirming:
		return confirmation
	default:
		return 0
	}
}

// transitionTo atomically replaces the flow state and notifies observers.
// Phase timings are accumulated as a side effect of leaving a phase.
func (o *Orchestrator) transitionTo(next FlowState) {
	o.mu.Lock()
	prev := o.state
	now := time.Now()
	if o.phaseTimings != nil && !o.phaseStarted.IsZero() && prev.Phase() != next.Phase() {
		o.phaseTimings[prev.Phase()] += now.Sub(o.phaseStarted)
		metrics.PhaseDuration.WithLabelValues(string(prev.Phase())).Observe(now.Sub(o.phaseStarted).Seconds())
	}
	o.phaseStarted = now
	o.state = next
	progress := next.Phase().Progress()
	if next.Phase() == models.PhaseRecovering {
		// Recovery keeps the progress already made instead of resetting it
		progress = o.progress
	}
	o.progress = progress
	observers := make([]PhaseChangeFunc, len(o.phaseObservers))
	copy(observers, o.phaseObservers)
	healthObservers := make([]HealthChangeFunc, len(o.healthObservers))
	copy(healthObservers, o.healthObservers)
	lastHealth := o.lastHealth
	o.mu.Unlock()

	metrics.CurrentPhase.Set(float64(progress))

	backendHealth := o.monitor.Status()
	change := PhaseChange{
		Phase:         next.Phase(),
		Progress:      progress,
		Message:       next.Message(),
		BackendHealth: backendHealth,
	}
	for _, fn := range observers {
		fn(change)
	}

	if backendHealth != lastHealth {
		o.mu.Lock()
		o.lastHealth = backendHealth
		o.mu.Unlock()
		for _, fn := range healthObservers {
			fn(backendHealth)
		}
	}

	o.logger.DebugWithComponent(logger.Orchestrator, "Phase %s (%d%%): %s",
		next.Phase(), progress, next.Message())
}
