package orchestrator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/creatorpay-hq/payrunner/pkg/health"
	"github.com/creatorpay-hq/payrunner/pkg/models"
	"github.com/creatorpay-hq/payrunner/pkg/signer"
)

// FlowState is the single source of truth for a saga's observable progress.
// It is a closed union: one variant per phase, each carrying only the fields
// valid for that phase. The orchestrator replaces it atomically on every
// transition.
type FlowState interface {
	Phase() models.Phase
	Message() string

	// sealed prevents variants outside this package
	sealed()
}

// IdleState is the state between sagas
type IdleState struct{}

func (IdleState) Phase() models.Phase { return models.PhaseIdle }
func (IdleState) Message() string     { return "No payment in progress" }
func (IdleState) sealed()             {}

// InitializingState carries the pre-flight health assessment
type InitializingState struct {
	SessionID     string
	BackendHealth health.Status
}

func (InitializingState) Phase() models.Phase { return models.PhaseInitializing }
func (s InitializingState) Message() string {
	if s.BackendHealth != health.StatusHealthy {
		return fmt.Sprintf("Starting payment (signing service %s)", s.BackendHealth)
	}
	return "Starting payment"
}
func (InitializingState) sealed() {}

// DetectingAccountTypeState is active while the payer account is inspected
type DetectingAccountTypeState struct {
	Payer common.Address
}

func (DetectingAccountTypeState) Phase() models.Phase { return models.PhaseDetectingAccountType }
func (DetectingAccountTypeState) Message() string     { return "Detecting account type" }
func (DetectingAccountTypeState) sealed()             {}

// ChoosingStrategyState carries the detected account type
type ChoosingStrategyState struct {
	AccountType models.AccountType
}

func (ChoosingStrategyState) Phase() models.Phase { return models.PhaseChoosingStrategy }
func (s ChoosingStrategyState) Message() string {
	return fmt.Sprintf("Choosing execution strategy for %s account", s.AccountType)
}
func (ChoosingStrategyState) sealed() {}

// CreatingIntentState is active while the create-intent transaction is submitted
type CreatingIntentState struct {
	Strategy models.ExecutionStrategy
}

func (CreatingIntentState) Phase() models.Phase { return models.PhaseCreatingIntent }
func (CreatingIntentState) Message() string     { return "Registering payment intent on-chain" }
func (CreatingIntentState) sealed()             {}

// WaitingIntentConfirmationState carries the pending create transaction
type WaitingIntentConfirmationState struct {
	TxHash common.Hash
}

func (WaitingIntentConfirmationState) Phase() models.Phase {
	return models.PhaseWaitingIntentConfirmation
}
func (s WaitingIntentConfirmationState) Message() string {
	return fmt.Sprintf("Waiting for confirmation of %s", s.TxHash.Hex())
}
func (WaitingIntentConfirmationState) sealed() {}

// WaitingSignatureState carries the intent and the live poll snapshot
type WaitingSignatureState struct {
	IntentID models.IntentID
	Poll     signer.PollState
}

func (WaitingSignatureState) Phase() models.Phase { return models.PhaseWaitingSignature }
func (s WaitingSignatureState) Message() string {
	return fmt.Sprintf("Waiting for co-signature of intent %s", s.IntentID.Hex())
}
func (WaitingSignatureState) sealed() {}

// ExecutingPaymentState is active while the execute transaction is submitted
type ExecutingPaymentState struct {
	IntentID models.IntentID
}

func (ExecutingPaymentState) Phase() models.Phase { return models.PhaseExecutingPayment }
func (s ExecutingPaymentState) Message() string {
	return fmt.Sprintf("Executing payment for intent %s", s.IntentID.Hex())
}
func (ExecutingPaymentState) sealed() {}

// ConfirmingState carries the pending execute transaction
type ConfirmingState struct {
	IntentID models.IntentID
	TxHash   common.Hash
}

func (ConfirmingState) Phase() models.Phase { return models.PhaseConfirming }
func (s ConfirmingState) Message() string {
	return fmt.Sprintf("Waiting for settlement of %s", s.TxHash.Hex())
}
func (ConfirmingState) sealed() {}

// CompletedState carries the final result of a successful saga
type CompletedState struct {
	Result *models.PaymentResult
}

func (CompletedState) Phase() models.Phase { return models.PhaseCompleted }
func (CompletedState) Message() string     { return "Payment completed" }
func (CompletedState) sealed()             {}

// RecoveringState is the side branch entered after a classified failure
type RecoveringState struct {
	Category models.ErrorCategory
	Strategy models.RecoveryStrategy
	Attempt  int
}

func (RecoveringState) Phase() models.Phase { return models.PhaseRecovering }
func (s RecoveringState) Message() string {
	return fmt.Sprintf("Recovering from %s (attempt %d)", s.Category, s.Attempt)
}
func (RecoveringState) sealed() {}

// FailedState is terminal until an explicit reset and always carries the
// original error and its category.
type FailedState struct {
	Category models.ErrorCategory
	Err      error
}

func (FailedState) Phase() models.Phase { return models.PhaseFailed }
func (s FailedState) Message() string {
	return fmt.Sprintf("Payment failed: %s", s.Category)
}
func (FailedState) sealed() {}

// PhaseChange is the notification payload delivered to phase observers
type PhaseChange struct {
	Phase         models.Phase
	Progress      int
	Message       string
	BackendHealth health.Status
}
