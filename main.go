package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/creatorpay-hq/payrunner/pkg/chainclient"
	"github.com/creatorpay-hq/payrunner/pkg/config"
	"github.com/creatorpay-hq/payrunner/pkg/health"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/orchestrator"
	"github.com/creatorpay-hq/payrunner/pkg/recovery"
	"github.com/creatorpay-hq/payrunner/pkg/signer"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lg := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	chain, err := chainclient.New(ctx, cfg.ChainID, cfg.RPCURL, cfg.IntentAddress, cfg.PrivateKey, cfg.ConfirmationTimeout, lg)
	if err != nil {
		log.Fatalf("Failed to connect chain client: %v", err)
	}
	chain.MaxGasPrice = cfg.MaxGasPrice

	monitor := health.NewMonitor(cfg.Health, lg)
	signerClient := signer.NewClient(cfg.SignerEndpoint, cfg.SignerTimeout, lg)
	poller := signer.NewPoller(cfg.Poller, signerClient, monitor, lg)
	strategist := recovery.NewStrategist(cfg.Recovery, monitor, lg)

	orch := orchestrator.New(cfg, chain, poller, monitor, strategist, lg)
	orch.OnPhaseChange(func(change orchestrator.PhaseChange) {
		lg.InfoWithComponent(logger.Orchestrator, "%s (%d%%) %s", change.Phase, change.Progress, change.Message)
	})
	orch.OnHealthChange(func(status health.Status) {
		lg.NoticeWithComponent(logger.Health, "Signing service is now %s", status)
	})

	// Start health check and metrics server
	healthServer := health.NewServer(cfg.MetricsPort, monitor, signerClient,
		func(ctx context.Context) health.ChainStatus {
			status := health.ChainStatus{
				Connected:     chain.Connected(),
				RPCURL:        cfg.RPCURL,
				IntentAddress: cfg.IntentAddress,
			}
			if block, err := chain.GetLatestBlockNumber(ctx); err == nil {
				status.LatestBlock = block
			}
			return status
		},
		func() interface{} {
			return orch.GetSystemHealth()
		})
	go healthServer.Start()

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Println("Received termination signal, shutting down gracefully...")
		orch.CancelPayment()
		cancel()
	}()

	log.Println("Payment orchestration service ready")
	<-ctx.Done()
}
