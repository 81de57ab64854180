package models

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PaymentType identifies what the payment is for
type PaymentType uint8

const (
	// PaymentTypeContent is a one-off payment for a single piece of content
	PaymentTypeContent PaymentType = iota
	// PaymentTypeSubscription is a recurring subscription payment
	PaymentTypeSubscription
)

// PaymentRequest is the immutable input to a payment saga. It is created by
// the caller and only referenced by the orchestrator; retries re-submit the
// same request.
type PaymentRequest struct {
	ContentID      uint64            `json:"content_id" validate:"required"`
	PaymentType    PaymentType       `json:"payment_type" validate:"lte=1"`
	Creator        common.Address    `json:"creator"`
	Payer          common.Address    `json:"payer"`
	PaymentToken   common.Address    `json:"payment_token"`
	Amount         *big.Int          `json:"amount" validate:"required"`
	MaxSlippageBps uint16            `json:"max_slippage_bps" validate:"lte=10000"`
	Deadline       time.Time         `json:"deadline" validate:"required"`
	SessionID      string            `json:"session_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

var validate = validator.New()

// Validate checks the request fields and fills in a session ID if the caller
// did not provide one.
func (r *PaymentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid payment request: %v", err)
	}
	if r.Creator == (common.Address{}) {
		return fmt.Errorf("invalid payment request: creator address is required")
	}
	if r.Amount.Sign() <= 0 {
		return fmt.Errorf("invalid payment request: amount must be positive")
	}
	if !r.Deadline.After(time.Now()) {
		return fmt.Errorf("invalid payment request: deadline already passed")
	}
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}
	return nil
}
