// Package recovery classifies payment saga failures and decides how to
// recover from them.
package recovery

import (
	"errors"
	"strings"

	"github.com/creatorpay-hq/payrunner/pkg/models"
	"github.com/creatorpay-hq/payrunner/pkg/signer"
)

// Classify assigns an error category to err. Errors already carrying an
// explicit category keep it; everything else is classified by its message.
// Unmatched errors default to execution_error.
func Classify(err error) models.ErrorCategory {
	if err == nil {
		return models.CategoryExecutionError
	}

	if category := models.CategoryOf(err); category != "" {
		return category
	}

	if errors.Is(err, signer.ErrServerFailure) {
		return models.CategoryBackendUnavailable
	}

	errStr := strings.ToLower(err.Error())

	// Explicit user cancellation markers from wallets and prompts
	if strings.Contains(errStr, "user rejected") ||
		strings.Contains(errStr, "user denied") ||
		strings.Contains(errStr, "rejected by user") ||
		strings.Contains(errStr, "action_rejected") {
		return models.CategoryUserRejection
	}

	// Balance and allowance errors from the on-chain collaborator
	if strings.Contains(errStr, "insufficient funds") ||
		strings.Contains(errStr, "insufficient balance") ||
		strings.Contains(errStr, "insufficient allowance") ||
		strings.Contains(errStr, "transfer amount exceeds balance") {
		return models.CategoryInsufficientFunds
	}

	// Bounded waits that expired
	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "timeout") {
		return models.CategoryTimeout
	}

	// Signing service degradation
	if strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "circuit breaker") {
		return models.CategoryBackendUnavailable
	}

	// Transport level failures
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "no response") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "eof") {
		return models.CategoryNetworkError
	}

	// On-chain reverts and everything unmatched
	return models.CategoryExecutionError
}

// strategyTable is the fixed category-to-strategy mapping
var strategyTable = map[models.ErrorCategory]models.RecoveryStrategy{
	models.CategoryUserRejection:      models.StrategyFatal,
	models.CategoryInsufficientFunds:  models.StrategyUserIntervention,
	models.CategoryNetworkError:       models.StrategyAutomaticRetry,
	models.CategoryTimeout:            models.StrategyAutomaticRetry,
	models.CategoryBackendUnavailable: models.StrategyAutomaticRetry,
	models.CategoryExecutionError:     models.StrategyUserIntervention,
}

// StrategyFor returns the recovery strategy for a category
func StrategyFor(category models.ErrorCategory) models.RecoveryStrategy {
	if strategy, ok := strategyTable[category]; ok {
		return strategy
	}
	return models.StrategyUserIntervention
}

// CanRetry reports whether the category may ever be retried
func CanRetry(category models.ErrorCategory) bool {
	return StrategyFor(category) != models.StrategyFatal
}

// userMessages maps categories to stable, user-presentable strings
var userMessages = map[models.ErrorCategory]string{
	models.CategoryUserRejection:      "The payment was cancelled.",
	models.CategoryInsufficientFunds:  "Your balance is too low to complete this payment.",
	models.CategoryNetworkError:       "A network problem interrupted the payment. It will be retried automatically.",
	models.CategoryTimeout:            "The payment is taking longer than expected. It will be retried automatically.",
	models.CategoryBackendUnavailable: "The payment service is temporarily unavailable. Please try again shortly.",
	models.CategoryExecutionError:     "The payment could not be completed. You can retry or contact support.",
}

// UserMessage returns the user-presentable message for err's category
func UserMessage(err error) string {
	return userMessages[Classify(err)]
}
