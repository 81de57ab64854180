package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryOfSurvivesWrapping(t *testing.T) {
	base := NewPaymentError(CategoryTimeout, errors.New("confirmation expired"))
	assert.Equal(t, CategoryTimeout, CategoryOf(base))

	wrapped := fmt.Errorf("saga step: %w", base)
	assert.Equal(t, CategoryTimeout, CategoryOf(wrapped))

	assert.Equal(t, ErrorCategory(""), CategoryOf(errors.New("plain error")))
	assert.Equal(t, ErrorCategory(""), CategoryOf(nil))
}

func TestRecoveryContextRecord(t *testing.T) {
	rctx := &RecoveryContext{}

	rctx.Record(RecoveryAttempt{Category: CategoryNetworkError, Strategy: StrategyAutomaticRetry, Recovered: true})
	rctx.Record(RecoveryAttempt{Category: CategoryTimeout, Strategy: StrategyAutomaticRetry, Recovered: false})

	assert.Equal(t, 2, rctx.Attempt)
	assert.Len(t, rctx.History, 2)
	assert.Equal(t, CategoryTimeout, rctx.Category, "the context tracks the most recent classification")
}

func TestPhaseProgress(t *testing.T) {
	// Progress is monotonically non-decreasing along the saga's phase order
	order := []Phase{
		PhaseIdle,
		PhaseInitializing,
		PhaseDetectingAccountType,
		PhaseChoosingStrategy,
		PhaseCreatingIntent,
		PhaseWaitingIntentConfirmation,
		PhaseWaitingSignature,
		PhaseExecutingPayment,
		PhaseConfirming,
		PhaseCompleted,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Progress(), order[i-1].Progress())
	}

	assert.True(t, PhaseCompleted.Terminal())
	assert.True(t, PhaseFailed.Terminal())
	assert.False(t, PhaseWaitingSignature.Terminal())
}
