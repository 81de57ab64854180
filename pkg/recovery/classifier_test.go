package recovery

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creatorpay-hq/payrunner/pkg/models"
	"github.com/creatorpay-hq/payrunner/pkg/signer"
)

func TestClassifyByMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected models.ErrorCategory
	}{
		{
			name:     "wallet rejection",
			err:      errors.New("MetaMask Tx Signature: User denied transaction signature"),
			expected: models.CategoryUserRejection,
		},
		{
			name:     "action rejected code",
			err:      errors.New("ACTION_REJECTED: request rejected by user"),
			expected: models.CategoryUserRejection,
		},
		{
			name:     "insufficient funds",
			err:      errors.New("insufficient funds for gas * price + value"),
			expected: models.CategoryInsufficientFunds,
		},
		{
			name:     "erc20 balance revert",
			err:      errors.New("execution reverted: ERC20: transfer amount exceeds balance"),
			expected: models.CategoryInsufficientFunds,
		},
		{
			name:     "context deadline",
			err:      errors.New("context deadline exceeded"),
			expected: models.CategoryTimeout,
		},
		{
			name:     "confirmation timeout",
			err:      errors.New("confirmation of tx 0xabc timed out after 2m0s"),
			expected: models.CategoryTimeout,
		},
		{
			name:     "service unavailable",
			err:      errors.New("503 Service Unavailable"),
			expected: models.CategoryBackendUnavailable,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:8545: connection refused"),
			expected: models.CategoryNetworkError,
		},
		{
			name:     "dns failure",
			err:      errors.New("lookup signer.internal: no such host"),
			expected: models.CategoryNetworkError,
		},
		{
			name:     "revert defaults to execution error",
			err:      errors.New("execution reverted: IntentExpired()"),
			expected: models.CategoryExecutionError,
		},
		{
			name:     "unknown error defaults to execution error",
			err:      errors.New("something odd happened"),
			expected: models.CategoryExecutionError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestClassifyPrefersExplicitCategory(t *testing.T) {
	// A typed error keeps its category even when the message would match
	// another classification rule.
	err := models.NewPaymentError(models.CategoryTimeout, errors.New("connection refused while waiting"))
	assert.Equal(t, models.CategoryTimeout, Classify(err))

	wrapped := fmt.Errorf("saga step failed: %w", err)
	assert.Equal(t, models.CategoryTimeout, Classify(wrapped))
}

func TestClassifySignerServerFailure(t *testing.T) {
	err := fmt.Errorf("%w: status 502", signer.ErrServerFailure)
	assert.Equal(t, models.CategoryBackendUnavailable, Classify(err))
}

func TestStrategyTable(t *testing.T) {
	tests := []struct {
		category models.ErrorCategory
		strategy models.RecoveryStrategy
		canRetry bool
	}{
		{models.CategoryUserRejection, models.StrategyFatal, false},
		{models.CategoryInsufficientFunds, models.StrategyUserIntervention, true},
		{models.CategoryNetworkError, models.StrategyAutomaticRetry, true},
		{models.CategoryTimeout, models.StrategyAutomaticRetry, true},
		{models.CategoryBackendUnavailable, models.StrategyAutomaticRetry, true},
		{models.CategoryExecutionError, models.StrategyUserIntervention, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.strategy, StrategyFor(tt.category))
			assert.Equal(t, tt.canRetry, CanRetry(tt.category))
		})
	}

	// Unknown categories fall back to asking the user
	assert.Equal(t, models.StrategyUserIntervention, StrategyFor(models.ErrorCategory("something_new")))
}

func TestUserMessageIsStablePerCategory(t *testing.T) {
	rejection := UserMessage(errors.New("user rejected the request"))
	assert.Equal(t, userMessages[models.CategoryUserRejection], rejection)

	// Two different errors in the same category yield the identical message
	a := UserMessage(errors.New("dial tcp: connection refused"))
	b := UserMessage(errors.New("unexpected EOF"))
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}
