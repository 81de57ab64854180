package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultSignerEndpoint defines the default endpoint of the signing service
	DefaultSignerEndpoint = "https://signer.creatorpay.exchange"

	// DefaultSignerTimeout defines the per-request timeout for signing service calls in seconds
	DefaultSignerTimeout = 10

	// DefaultChainID defines the default chain the intent contract lives on
	DefaultChainID = 8453

	// DefaultRPCURL defines the default RPC endpoint
	DefaultRPCURL = "https://mainnet.base.org"

	// DefaultConfirmationTimeout defines the on-chain confirmation wait ceiling in seconds
	DefaultConfirmationTimeout = 120

	// DefaultMetricsPort defines the default port for the health and metrics server
	DefaultMetricsPort = "8080"

	// DefaultMaxGasPrice defines the maximum gas price for transactions
	DefaultMaxGasPrice = "5000000000" // 5 Gwei

	// DefaultPollMaxAttempts defines how many signature poll attempts are made before timing out
	DefaultPollMaxAttempts = 30

	// DefaultPollBaseInterval defines the base interval between poll attempts in milliseconds
	DefaultPollBaseInterval = 1000

	// DefaultPollMaxBackoffInterval defines the backoff ceiling between poll attempts in milliseconds
	DefaultPollMaxBackoffInterval = 5000

	// DefaultPollExponentialBackoff defines whether poll intervals grow exponentially
	DefaultPollExponentialBackoff = false

	// DefaultMaxConsecutiveFailures defines the failure count that opens the circuit breaker
	DefaultMaxConsecutiveFailures = 3

	// DefaultBaseRetryDelay defines the base circuit breaker retry delay in milliseconds
	DefaultBaseRetryDelay = 1000

	// DefaultMaxRetryDelay defines the circuit breaker retry delay ceiling in milliseconds
	DefaultMaxRetryDelay = 30000

	// DefaultDegradedResponseTime defines the average response time in milliseconds
	// above which the signing service is reported as degraded
	DefaultDegradedResponseTime = 2000

	// DefaultMinSuccessRate defines the success rate under which the signing
	// service is reported as degraded
	DefaultMinSuccessRate = 0.9

	// DefaultMaxAutoRetryAttempts defines the automatic recovery attempt budget per category
	DefaultMaxAutoRetryAttempts = 3

	// DefaultMaxSagaRetries defines the saga-level retry cap, independent of
	// the per-category recovery budget
	DefaultMaxSagaRetries = 3
)

// GetEnvSignerEndpoint returns the signing service endpoint from environment variables
func GetEnvSignerEndpoint() (string, error) {
	endpoint := os.Getenv("SIGNER_ENDPOINT")
	if endpoint == "" {
		return DefaultSignerEndpoint, nil
	}

	// Validate URL format
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", fmt.Errorf("invalid SIGNER_ENDPOINT value: %s, must be a valid URL", endpoint)
	}
	return endpoint, nil
}

// GetEnvSignerTimeout returns the signing service request timeout from environment variables
func GetEnvSignerTimeout() (time.Duration, error) {
	timeout := os.Getenv("SIGNER_TIMEOUT")
	if timeout == "" {
		return DefaultSignerTimeout * time.Second, nil
	}

	seconds, err := strconv.Atoi(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid SIGNER_TIMEOUT value: %s, must be an integer", timeout)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("SIGNER_TIMEOUT must be greater than 0")
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvChainID returns the chain ID from environment variables
func GetEnvChainID() (int, error) {
	chainID := os.Getenv("CHAIN_ID")
	if chainID == "" {
		return DefaultChainID, nil
	}

	id, err := strconv.Atoi(chainID)
	if err != nil {
		return 0, fmt.Errorf("invalid CHAIN_ID value: %s, must be an integer", chainID)
	}
	if id <= 0 {
		return 0, fmt.Errorf("CHAIN_ID must be greater than 0")
	}
	return id, nil
}

// GetEnvRPCURL returns the chain RPC endpoint from environment variables
func GetEnvRPCURL() (string, error) {
	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		return DefaultRPCURL, nil
	}
	if _, err := url.ParseRequestURI(rpcURL); err != nil {
		return "", fmt.Errorf("invalid RPC_URL value: %s, must be a valid URL", rpcURL)
	}
	return rpcURL, nil
}

// GetEnvIntentAddress returns the payment intent contract address from environment variables
func GetEnvIntentAddress() (string, error) {
	intentAddress := os.Getenv("INTENT_ADDRESS")
	if intentAddress == "" {
		return "", nil
	}

	// Validate Ethereum address format
	if !common.IsHexAddress(intentAddress) {
		return "", fmt.Errorf("invalid INTENT_ADDRESS value: %s, must be a valid Ethereum address", intentAddress)
	}
	return intentAddress, nil
}

// GetEnvMaxGasPrice returns the maximum gas price from environment variables
func GetEnvMaxGasPrice() (*big.Int, error) {
	maxGasPrice := os.Getenv("MAX_GAS_PRICE")
	if maxGasPrice == "" {
		maxGasPrice = DefaultMaxGasPrice
	}

	maxGasPriceBig := new(big.Int)
	if _, ok := maxGasPriceBig.SetString(maxGasPrice, 10); !ok {
		return nil, fmt.Errorf("invalid MAX_GAS_PRICE value: %s, must be a valid integer string", maxGasPrice)
	}

	if maxGasPriceBig.Cmp(big.NewInt(0)) < 0 {
		return nil, fmt.Errorf("MAX_GAS_PRICE must be greater than or equal to 0")
	}
	return maxGasPriceBig, nil
}

// GetEnvConfirmationTimeout returns the on-chain confirmation wait ceiling from environment variables
func GetEnvConfirmationTimeout() (time.Duration, error) {
	timeout := os.Getenv("CONFIRMATION_TIMEOUT")
	if timeout == "" {
		return DefaultConfirmationTimeout * time.Second, nil
	}

	seconds, err := strconv.Atoi(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid CONFIRMATION_TIMEOUT value: %s, must be an integer", timeout)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("CONFIRMATION_TIMEOUT must be greater than 0")
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvPollerConfig returns the signature poller configuration from environment variables
func GetEnvPollerConfig() (PollerConfig, error) {
	cfg := PollerConfig{
		MaxAttempts:        DefaultPollMaxAttempts,
		BaseInterval:       DefaultPollBaseInterval * time.Millisecond,
		MaxBackoffInterval: DefaultPollMaxBackoffInterval * time.Millisecond,
		ExponentialBackoff: DefaultPollExponentialBackoff,
	}

	if v := os.Getenv("POLL_MAX_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts <= 0 {
			return cfg, fmt.Errorf("invalid POLL_MAX_ATTEMPTS value: %s, must be a positive integer", v)
		}
		cfg.MaxAttempts = attempts
	}

	if v := os.Getenv("POLL_BASE_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil || interval <= 0 {
			return cfg, fmt.Errorf("invalid POLL_BASE_INTERVAL value: %s, must be a valid duration string", v)
		}
		cfg.BaseInterval = interval
	}

	if v := os.Getenv("POLL_MAX_BACKOFF_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil || interval <= 0 {
			return cfg, fmt.Errorf("invalid POLL_MAX_BACKOFF_INTERVAL value: %s, must be a valid duration string", v)
		}
		cfg.MaxBackoffInterval = interval
	}

	if v := os.Getenv("POLL_EXPONENTIAL_BACKOFF"); v != "" {
		switch v {
		case "true":
			cfg.ExponentialBackoff = true
		case "false":
			cfg.ExponentialBackoff = false
		default:
			return cfg, fmt.Errorf("invalid POLL_EXPONENTIAL_BACKOFF value: %s, must be 'true' or 'false'", v)
		}
	}

	return cfg, nil
}

// GetEnvHealthConfig returns the health monitor configuration from environment variables
func GetEnvHealthConfig() (HealthConfig, error) {
	cfg := HealthConfig{
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		BaseRetryDelay:         DefaultBaseRetryDelay * time.Millisecond,
		MaxRetryDelay:          DefaultMaxRetryDelay * time.Millisecond,
		DegradedResponseTime:   DefaultDegradedResponseTime * time.Millisecond,
		MinSuccessRate:         DefaultMinSuccessRate,
	}

	if v := os.Getenv("HEALTH_MAX_CONSECUTIVE_FAILURES"); v != "" {
		failures, err := strconv.Atoi(v)
		if err != nil || failures <= 0 {
			return cfg, fmt.Errorf("invalid HEALTH_MAX_CONSECUTIVE_FAILURES value: %s, must be a positive integer", v)
		}
		cfg.MaxConsecutiveFailures = failures
	}

	if v := os.Getenv("HEALTH_BASE_RETRY_DELAY"); v != "" {
		delay, err := time.ParseDuration(v)
		if err != nil || delay <= 0 {
			return cfg, fmt.Errorf("invalid HEALTH_BASE_RETRY_DELAY value: %s, must be a valid duration string", v)
		}
		cfg.BaseRetryDelay = delay
	}

	if v := os.Getenv("HEALTH_MAX_RETRY_DELAY"); v != "" {
		delay, err := time.ParseDuration(v)
		if err != nil || delay <= 0 {
			return cfg, fmt.Errorf("invalid HEALTH_MAX_RETRY_DELAY value: %s, must be a valid duration string", v)
		}
		cfg.MaxRetryDelay = delay
	}

	if v := os.Getenv("HEALTH_DEGRADED_RESPONSE_TIME"); v != "" {
		rt, err := time.ParseDuration(v)
		if err != nil || rt <= 0 {
			return cfg, fmt.Errorf("invalid HEALTH_DEGRADED_RESPONSE_TIME value: %s, must be a valid duration string", v)
		}
		cfg.DegradedResponseTime = rt
	}

	if v := os.Getenv("HEALTH_MIN_SUCCESS_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 || rate > 1 {
			return cfg, fmt.Errorf("invalid HEALTH_MIN_SUCCESS_RATE value: %s, must be a float in (0, 1]", v)
		}
		cfg.MinSuccessRate = rate
	}

	return cfg, nil
}

// GetEnvRecoveryConfig returns the error recovery configuration from environment variables
func GetEnvRecoveryConfig() (RecoveryConfig, error) {
	cfg := RecoveryConfig{
		MaxAutoRetryAttempts: DefaultMaxAutoRetryAttempts,
		MaxSagaRetries:       DefaultMaxSagaRetries,
	}

	if v := os.Getenv("MAX_AUTO_RETRY_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts < 0 {
			return cfg, fmt.Errorf("invalid MAX_AUTO_RETRY_ATTEMPTS value: %s, must be a non-negative integer", v)
		}
		cfg.MaxAutoRetryAttempts = attempts
	}

	if v := os.Getenv("MAX_SAGA_RETRIES"); v != "" {
		retries, err := strconv.Atoi(v)
		if err != nil || retries < 0 {
			return cfg, fmt.Errorf("invalid MAX_SAGA_RETRIES value: %s, must be a non-negative integer", v)
		}
		cfg.MaxSagaRetries = retries
	}

	return cfg, nil
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return logger.InfoLevel, nil
	}

	switch level {
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL value: %s, must be one of 'debug', 'info', 'notice', 'error'", level)
}

// GetEnvLogColoring returns whether log coloring is enabled from environment variables
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return true, nil
	}

	if coloring == "true" {
		return true, nil
	} else if coloring == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", coloring)
}
