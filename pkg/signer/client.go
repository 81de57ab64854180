// Package signer provides the client for the off-chain signing service and
// the bounded poller that waits for an intent's co-signature.
package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/models"
)

// ErrServerFailure marks a 5xx-equivalent response from the signing service.
// Counted against the health monitor but survivable within a poll.
var ErrServerFailure = errors.New("signing service failure")

// ErrMalformedResponse marks a response the client could not interpret.
// A hard error that aborts polling immediately.
var ErrMalformedResponse = errors.New("malformed signing service response")

// signatureRequest is the payload sent to the signing service
type signatureRequest struct {
	IntentID    string `json:"intent_id"`
	IntentHash  string `json:"intent_hash"`
	RequestedAt int64  `json:"requested_at"`
}

// signatureResponse is the signing service's reply
type signatureResponse struct {
	Success       bool   `json:"success"`
	Signature     string `json:"signature,omitempty"`
	SignedAt      int64  `json:"signed_at,omitempty"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
	SignerAddress string `json:"signer_address,omitempty"`
	IntentHash    string `json:"intent_hash,omitempty"`
}

// Client talks to the off-chain signing service
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a new signing service client
func NewClient(endpoint string, timeout time.Duration, lg logger.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: createHTTPClient(timeout),
		logger:     lg,
	}
}

// CheckSignature asks the signing service once whether the intent has been
// co-signed. A not-found reply is not an error; it yields a record with
// Ready=false. Server failures and malformed bodies return the corresponding
// sentinel errors.
func (c *Client) CheckSignature(ctx context.Context, intentID models.IntentID, intentHash common.Hash) (*models.SignatureRecord, error) {
	payload, err := json.Marshal(signatureRequest{
		IntentID:    intentID.Hex(),
		IntentHash:  intentHash.Hex(),
		RequestedAt: time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/signatures/check", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build signature request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach signing service: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.ErrorWithComponent(logger.Signer, "Failed to close response body: %v", closeErr)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Signature not ready yet, by protocol not an error
		return &models.SignatureRecord{IntentID: intentID}, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrServerFailure, resp.StatusCode, string(bodyBytes))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d, body: %s", ErrMalformedResponse, resp.StatusCode, string(bodyBytes))
	}

	var sigResp signatureResponse
	if err := json.Unmarshal(bodyBytes, &sigResp); err != nil {
		return nil, fmt.Errorf("%w: %v, body: %s", ErrMalformedResponse, err, string(bodyBytes))
	}

	if !sigResp.Success {
		return &models.SignatureRecord{IntentID: intentID}, nil
	}

	signature, err := decodeSignature(sigResp.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	record := &models.SignatureRecord{
		IntentID:  intentID,
		Signature: signature,
		Ready:     true,
		SignedAt:  time.Unix(sigResp.SignedAt, 0),
	}
	if sigResp.ExpiresAt > 0 {
		expiresAt := time.Unix(sigResp.ExpiresAt, 0)
		record.ExpiresAt = &expiresAt
	}
	if sigResp.SignerAddress != "" {
		if !common.IsHexAddress(sigResp.SignerAddress) {
			return nil, fmt.Errorf("%w: invalid signer address %s", ErrMalformedResponse, sigResp.SignerAddress)
		}
		addr := common.HexToAddress(sigResp.SignerAddress)
		record.Signer = &addr
	}

	return record, nil
}

// Ping performs a cheap reachability probe, used for forced health checks
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach signing service: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrServerFailure, resp.StatusCode)
	}
	return nil
}

// decodeSignature parses the hex signature body, rejecting empty values
func decodeSignature(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("signature missing from ready response")
	}
	signature, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %v", err)
	}
	return signature, nil
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
