package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory classifies a saga failure for recovery purposes
type ErrorCategory string

const (
	// CategoryUserRejection means the user declined a prompt; never retried
	CategoryUserRejection ErrorCategory = "user_rejection"
	// CategoryInsufficientFunds means balance or allowance is too low
	CategoryInsufficientFunds ErrorCategory = "insufficient_funds"
	// CategoryNetworkError covers transient transport failures
	CategoryNetworkError ErrorCategory = "network_error"
	// CategoryBackendUnavailable means the signing service is down
	CategoryBackendUnavailable ErrorCategory = "backend_unavailable"
	// CategoryExecutionError covers on-chain reverts and unexpected failures
	CategoryExecutionError ErrorCategory = "execution_error"
	// CategoryTimeout means a bounded wait expired
	CategoryTimeout ErrorCategory = "timeout"
)

// RecoveryStrategy is the policy chosen for a classified failure
type RecoveryStrategy string

const (
	StrategyAutomaticRetry   RecoveryStrategy = "automatic_retry"
	StrategyUserIntervention RecoveryStrategy = "user_intervention"
	StrategyFatal            RecoveryStrategy = "fatal"
)

// PaymentError carries an error together with its classification so the
// category survives wrapping across the saga's error path.
type PaymentError struct {
	Category ErrorCategory
	Err      error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError wraps err with an explicit category
func NewPaymentError(category ErrorCategory, err error) *PaymentError {
	return &PaymentError{Category: category, Err: err}
}

// CategoryOf returns the category attached to err, or empty if none is set
func CategoryOf(err error) ErrorCategory {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// RecoveryAttempt records one recovery try within a saga attempt
type RecoveryAttempt struct {
	Category  ErrorCategory
	Strategy  RecoveryStrategy
	Err       error
	Recovered bool
	At        time.Time
}

// RecoveryContext tracks the recovery state of one saga attempt. Created on
// the first classified failure and discarded when the saga reaches a
// terminal state or is reset.
type RecoveryContext struct {
	Category ErrorCategory
	Strategy RecoveryStrategy
	Attempt  int
	History  []RecoveryAttempt
}

// Record appends an attempt to the history and bumps the attempt counter
func (rc *RecoveryContext) Record(attempt RecoveryAttempt) {
	rc.Attempt++
	rc.Category = attempt.Category
	rc.Strategy = attempt.Strategy
	rc.History = append(rc.History, attempt)
}
