package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/joho/godotenv"
)

// Config holds the configuration for the payment orchestration service
type Config struct {
	SignerEndpoint      string
	SignerTimeout       time.Duration
	ChainID             int
	RPCURL              string
	IntentAddress       string
	PrivateKey          string
	MaxGasPrice         *big.Int
	ConfirmationTimeout time.Duration
	MetricsPort         string
	Poller              PollerConfig
	Health              HealthConfig
	Recovery            RecoveryConfig
	LoggerConfig        LoggerConfig
}

// PollerConfig holds signature poller configuration
type PollerConfig struct {
	MaxAttempts        int
	BaseInterval       time.Duration
	MaxBackoffInterval time.Duration
	ExponentialBackoff bool
}

// HealthConfig holds signing service health monitor configuration
type HealthConfig struct {
	MaxConsecutiveFailures int
	BaseRetryDelay         time.Duration
	MaxRetryDelay          time.Duration
	DegradedResponseTime   time.Duration
	MinSuccessRate         float64
}

// RecoveryConfig holds error recovery configuration
type RecoveryConfig struct {
	MaxAutoRetryAttempts int
	MaxSagaRetries       int
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	signerEndpoint, err := GetEnvSignerEndpoint()
	if err != nil {
		return nil, err
	}

	signerTimeout, err := GetEnvSignerTimeout()
	if err != nil {
		return nil, err
	}

	chainID, err := GetEnvChainID()
	if err != nil {
		return nil, err
	}

	rpcURL, err := GetEnvRPCURL()
	if err != nil {
		return nil, err
	}

	intentAddress, err := GetEnvIntentAddress()
	if err != nil {
		return nil, err
	}

	maxGasPrice, err := GetEnvMaxGasPrice()
	if err != nil {
		return nil, err
	}

	confirmationTimeout, err := GetEnvConfirmationTimeout()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	pollerCfg, err := GetEnvPollerConfig()
	if err != nil {
		return nil, err
	}

	healthCfg, err := GetEnvHealthConfig()
	if err != nil {
		return nil, err
	}

	recoveryCfg, err := GetEnvRecoveryConfig()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SignerEndpoint:      signerEndpoint,
		SignerTimeout:       signerTimeout,
		ChainID:             chainID,
		RPCURL:              rpcURL,
		IntentAddress:       intentAddress,
		PrivateKey:          os.Getenv("PRIVATE_KEY"),
		MaxGasPrice:         maxGasPrice,
		ConfirmationTimeout: confirmationTimeout,
		MetricsPort:         metricsPort,
		Poller:              pollerCfg,
		Health:              healthCfg,
		Recovery:            recoveryCfg,
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	if cfg.IntentAddress == "" {
		return fmt.Errorf("INTENT_ADDRESS environment variable is required")
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("RPC_URL environment variable is required")
	}
	return nil
}
