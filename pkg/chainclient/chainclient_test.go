package chainclient

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpay-hq/payrunner/pkg/contracts"
	"github.com/creatorpay-hq/payrunner/pkg/models"
)

func intentCreatedLog(t *testing.T, contractAddr common.Address, intentID models.IntentID, payer common.Address) *types.Log {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(contracts.PaymentIntentABI))
	require.NoError(t, err)
	event := parsed.Events["IntentCreated"]

	data, err := event.Inputs.NonIndexed().Pack(
		big.NewInt(900),        // creatorAmount
		big.NewInt(80),         // platformFee
		big.NewInt(20),         // operatorFee
		big.NewInt(1700000600), // expiresAt
	)
	require.NoError(t, err)

	return &types.Log{
		Address: contractAddr,
		Topics:  []common.Hash{event.ID, common.Hash(intentID), common.BytesToHash(payer.Bytes())},
		Data:    data,
	}
}

func TestIntentFromReceipt(t *testing.T) {
	contractAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	contract, err := contracts.NewPaymentIntent(contractAddr, nil)
	require.NoError(t, err)

	intentID := models.IntentID{0x42}
	payer := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// An unrelated log precedes the IntentCreated event, as it would in a
	// receipt that also carries token transfer logs.
	unrelated := &types.Log{
		Address: contractAddr,
		Topics:  []common.Hash{common.HexToHash("0xdead")},
	}
	receipt := &types.Receipt{
		TxHash: common.HexToHash("0xabc"),
		Logs:   []*types.Log{unrelated, intentCreatedLog(t, contractAddr, intentID, payer)},
	}

	intent, err := IntentFromReceipt(contract, receipt)
	require.NoError(t, err)

	assert.Equal(t, intentID, intent.ID)
	assert.Equal(t, big.NewInt(900), intent.CreatorAmount)
	assert.Equal(t, big.NewInt(80), intent.PlatformFee)
	assert.Equal(t, big.NewInt(20), intent.OperatorFee)
	assert.Equal(t, int64(1700000600), intent.ExpiresAt.Unix())
}

func TestIntentFromReceiptWithoutEvent(t *testing.T) {
	contractAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	contract, err := contracts.NewPaymentIntent(contractAddr, nil)
	require.NoError(t, err)

	receipt := &types.Receipt{
		TxHash: common.HexToHash("0xabc"),
		Logs:   []*types.Log{},
	}

	_, err = IntentFromReceipt(contract, receipt)
	assert.Error(t, err, "a receipt without the creation event cannot yield an intent")
}
