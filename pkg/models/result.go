package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Phase identifies where a payment saga currently is
type Phase string

const (
	PhaseIdle                      Phase = "idle"
	PhaseInitializing              Phase = "initializing"
	PhaseDetectingAccountType      Phase = "detecting_account_type"
	PhaseChoosingStrategy          Phase = "choosing_strategy"
	PhaseCreatingIntent            Phase = "creating_intent"
	PhaseWaitingIntentConfirmation Phase = "waiting_intent_confirmation"
	PhaseWaitingSignature          Phase = "waiting_signature"
	PhaseExecutingPayment          Phase = "executing_payment"
	PhaseConfirming                Phase = "confirming"
	PhaseCompleted                 Phase = "completed"
	PhaseRecovering                Phase = "recovering"
	PhaseFailed                    Phase = "failed"
)

// Terminal reports whether the phase ends the saga until an explicit reset
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// phaseProgress maps each phase to the percentage reported to observers
var phaseProgress = map[Phase]int{
	PhaseIdle:                      0,
	PhaseInitializing:              5,
	PhaseDetectingAccountType:      10,
	PhaseChoosingStrategy:          15,
	PhaseCreatingIntent:            25,
	PhaseWaitingIntentConfirmation: 40,
	PhaseWaitingSignature:          70,
	PhaseExecutingPayment:          80,
	PhaseConfirming:                90,
	PhaseCompleted:                 100,
	PhaseFailed:                    100,
}

// Progress returns the percentage shown for the phase
func (p Phase) Progress() int {
	return phaseProgress[p]
}

// AccountType distinguishes externally-owned from smart-contract payers
type AccountType string

const (
	AccountTypeEOA           AccountType = "eoa"
	AccountTypeSmartContract AccountType = "smart_contract"
)

// ExecutionStrategy selects among equivalent ways to drive the on-chain steps
type ExecutionStrategy string

const (
	// StrategySequential submits each on-chain call as its own transaction
	StrategySequential ExecutionStrategy = "sequential"
	// StrategyBatched bundles calls for smart-contract accounts that support it
	StrategyBatched ExecutionStrategy = "batched"
)

// PaymentResult is the terminal outcome of one payment saga
type PaymentResult struct {
	Success          bool
	IntentID         IntentID
	TxHash           *common.Hash
	Signature        []byte
	TotalDuration    time.Duration
	PhaseTimings     map[Phase]time.Duration
	RecoveryAttempts int
	ErrorCategory    ErrorCategory
	Err              error
}
