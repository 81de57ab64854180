package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/creatorpay-hq/payrunner/pkg/contracts"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/metrics"
	"github.com/creatorpay-hq/payrunner/pkg/models"
)

// Client wraps the connection to the chain hosting the payment intent contract
type Client struct {
	ChainID             int
	RPCURL              string
	IntentAddress       string
	MaxGasPrice         *big.Int
	ConfirmationTimeout time.Duration
	Client              *ethclient.Client
	IntentContract      *contracts.PaymentIntent
	Auth                *bind.TransactOpts
	GasMultiplier       float64
	logger              logger.Logger
}

// New creates a new chain client and connects it to the configured RPC endpoint
func New(ctx context.Context, chainID int, rpcURL string, intentAddress string, privateKey string, confirmationTimeout time.Duration, lg logger.Logger) (*Client, error) {
	// Get gas multiplier from environment, default to 1.1
	gasMultiplier := 1.1
	if v := os.Getenv("GAS_MULTIPLIER"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err == nil && parsed > 0 {
			gasMultiplier = parsed
		}
	}

	client := &Client{
		ChainID:             chainID,
		RPCURL:              rpcURL,
		IntentAddress:       intentAddress,
		ConfirmationTimeout: confirmationTimeout,
		GasMultiplier:       gasMultiplier,
		logger:              lg,
	}
	if err := client.connect(ctx, privateKey); err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %v", chainID, err)
	}

	return client, nil
}

// connect establishes the RPC connection and initializes the contract binding
func (c *Client) connect(ctx context.Context, privateKey string) error {
	client, err := ethclient.Dial(c.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to client: %v", err)
	}
	c.Client = client

	if privateKey != "" {
		auth, err := createAuthenticator(ctx, client, privateKey)
		if err != nil {
			return fmt.Errorf("failed to create authenticator: %v", err)
		}
		c.Auth = auth
	}

	contract, err := contracts.NewPaymentIntent(common.HexToAddress(c.IntentAddress), client)
	if err != nil {
		return fmt.Errorf("failed to initialize contract: %v", err)
	}
	c.IntentContract = contract

	return nil
}

// Helper function to create authenticator
func createAuthenticator(ctx context.Context, client *ethclient.Client, privateKeyHex string) (*bind.TransactOpts, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %v", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %v", err)
	}
	return auth, nil
}

// UpdateGasPrice refreshes the gas price from the network, applies the
// multiplier and enforces the configured cap.
func (c *Client) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gasPrice, err := c.Client.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	// Apply gas multiplier (e.g. 1.1 = 10% buffer)
	multipliedGasPrice := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(c.GasMultiplier),
	)
	finalGasPrice := new(big.Int)
	multipliedGasPrice.Int(finalGasPrice)

	if c.MaxGasPrice != nil && c.MaxGasPrice.Sign() > 0 && finalGasPrice.Cmp(c.MaxGasPrice) > 0 {
		return nil, fmt.Errorf("gas price too high: %s > %s", finalGasPrice.String(), c.MaxGasPrice.String())
	}

	if c.Auth != nil {
		c.Auth.GasPrice = finalGasPrice
	}

	gasPriceGwei, _ := new(big.Float).Quo(
		new(big.Float).SetInt(finalGasPrice),
		big.NewFloat(1e9),
	).Float64()
	metrics.GasPrice.Set(gasPriceGwei)

	return finalGasPrice, nil
}

// CreateIntent submits the create-intent transaction for the request
func (c *Client) CreateIntent(ctx context.Context, req *models.PaymentRequest) (*types.Transaction, error) {
	if c.Auth == nil {
		return nil, fmt.Errorf("no transactor configured")
	}

	if _, err := c.UpdateGasPrice(ctx); err != nil {
		c.logger.ErrorWithComponent(logger.Chain, "Failed to update gas price, continuing with previous: %v", err)
	}

	opts := *c.Auth
	opts.Context = ctx

	tx, err := c.IntentContract.CreateIntent(
		&opts,
		uint8(req.PaymentType),
		req.Creator,
		new(big.Int).SetUint64(req.ContentID),
		req.PaymentToken,
		req.Amount,
		req.MaxSlippageBps,
		big.NewInt(req.Deadline.Unix()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to submit create intent transaction: %v", err)
	}

	c.logger.InfoWithComponent(logger.Chain, "Submitted create intent tx %s for content %d", tx.Hash().Hex(), req.ContentID)
	return tx, nil
}

// ExecutePayment submits the execute transaction for a signed intent. Only the
// intent ID is transmitted; the co-signature is looked up by the contract.
func (c *Client) ExecutePayment(ctx context.Context, intentID models.IntentID) (*types.Transaction, error) {
	if c.Auth == nil {
		return nil, fmt.Errorf("no transactor configured")
	}

	opts := *c.Auth
	opts.Context = ctx

	tx, err := c.IntentContract.ExecutePayment(&opts, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to submit execute payment transaction: %v", err)
	}

	c.logger.InfoWithComponent(logger.Chain, "Submitted execute tx %s for intent %s", tx.Hash().Hex(), intentID.Hex())
	return tx, nil
}

// WaitForConfirmation blocks until the transaction is mined or the
// confirmation ceiling expires. A successful receipt with failed status is an
// execution error; an expired wait counts as a network error since the
// transaction may still land.
func (c *Client) WaitForConfirmation(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.ConfirmationTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := bind.WaitMined(waitCtx, c.Client, tx)
	metrics.IntentConfirmationTime.Observe(time.Since(start).Seconds())

	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return nil, models.NewPaymentError(models.CategoryNetworkError,
				fmt.Errorf("confirmation of tx %s not received after %v", tx.Hash().Hex(), c.ConfirmationTimeout))
		}
		return nil, fmt.Errorf("failed waiting for tx %s: %v", tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, models.NewPaymentError(models.CategoryExecutionError,
			fmt.Errorf("execution reverted: tx %s", tx.Hash().Hex()))
	}

	c.logger.DebugWithComponent(logger.Chain, "Tx %s confirmed in block %d", tx.Hash().Hex(), receipt.BlockNumber.Uint64())
	return receipt, nil
}

// IntentFromReceipt extracts the payment intent from the IntentCreated log in
// a create-intent confirmation receipt.
func (c *Client) IntentFromReceipt(receipt *types.Receipt) (*models.PaymentIntent, error) {
	return IntentFromReceipt(c.IntentContract, receipt)
}

// IntentFromReceipt parses the IntentCreated event out of a receipt's logs
func IntentFromReceipt(contract *contracts.PaymentIntent, receipt *types.Receipt) (*models.PaymentIntent, error) {
	for _, lg := range receipt.Logs {
		event, err := contract.ParseIntentCreated(*lg)
		if err != nil {
			continue
		}
		return &models.PaymentIntent{
			ID:            event.IntentId,
			CreatorAmount: event.CreatorAmount,
			PlatformFee:   event.PlatformFee,
			OperatorFee:   event.OperatorFee,
			ExpiresAt:     time.Unix(event.ExpiresAt.Int64(), 0),
		}, nil
	}
	return nil, fmt.Errorf("no IntentCreated event found in receipt %s", receipt.TxHash.Hex())
}

// DetectAccountType reports whether the payer is an externally-owned account
// or a smart-contract account, based on deployed code at the address.
func (c *Client) DetectAccountType(ctx context.Context, addr common.Address) (models.AccountType, error) {
	if c.Client == nil {
		return "", fmt.Errorf("client not connected")
	}

	code, err := c.Client.CodeAt(ctx, addr, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get code at %s: %v", addr.Hex(), err)
	}

	if len(code) > 0 {
		return models.AccountTypeSmartContract, nil
	}
	return models.AccountTypeEOA, nil
}

// GetLatestBlockNumber gets the latest block number from the chain
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	if c.Client == nil {
		return 0, fmt.Errorf("client not connected")
	}
	return c.Client.BlockNumber(ctx)
}

// Connected reports whether the underlying RPC client is initialized
func (c *Client) Connected() bool {
	return c.Client != nil
}
