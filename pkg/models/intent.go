package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IntentID is the opaque on-chain handle for a registered payment intent
type IntentID [32]byte

// Hex returns the 0x-prefixed hex encoding of the intent ID
func (id IntentID) Hex() string {
	return common.Hash(id).Hex()
}

// IsZero reports whether the intent ID is unset
func (id IntentID) IsZero() bool {
	return id == IntentID{}
}

// PaymentIntent is the on-chain-assigned record of a pending payment,
// extracted from the IntentCreated event once the create transaction
// confirms. Read-only after construction.
type PaymentIntent struct {
	ID            IntentID
	CreatorAmount *big.Int
	PlatformFee   *big.Int
	OperatorFee   *big.Int
	ExpiresAt     time.Time
}

// SignatureRecord is the co-signature produced by the signing service for an
// intent. Signature is non-empty only when Ready is true, and a record is
// never reused across intent IDs.
type SignatureRecord struct {
	IntentID  IntentID
	Signature []byte
	Ready     bool
	SignedAt  time.Time
	ExpiresAt *time.Time
	Signer    *common.Address
	Attempts  int
}
