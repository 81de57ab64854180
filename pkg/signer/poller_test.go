package signer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpay-hq/payrunner/pkg/config"
	"github.com/creatorpay-hq/payrunner/pkg/health"
	"github.com/creatorpay-hq/payrunner/pkg/logger"
	"github.com/creatorpay-hq/payrunner/pkg/models"
)

// scriptedChecker is a test implementation of the SignatureChecker interface.
// Each call consumes the next step of the script; the last step repeats.
type scriptedChecker struct {
	mu      sync.Mutex
	calls   int
	script  []func(intentID models.IntentID) (*models.SignatureRecord, error)
	blockCh chan struct{}
}

func (s *scriptedChecker) CheckSignature(ctx context.Context, intentID models.IntentID, intentHash common.Hash) (*models.SignatureRecord, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	step := s.script[idx]
	block := s.blockCh
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return step(intentID)
}

func (s *scriptedChecker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func notReady(intentID models.IntentID) (*models.SignatureRecord, error) {
	return &models.SignatureRecord{IntentID: intentID}, nil
}

func ready(intentID models.IntentID) (*models.SignatureRecord, error) {
	return &models.SignatureRecord{
		IntentID:  intentID,
		Signature: []byte{0xaa, 0xbb},
		Ready:     true,
		SignedAt:  time.Now(),
	}, nil
}

func testPollerConfig(maxAttempts int) config.PollerConfig {
	return config.PollerConfig{
		MaxAttempts:        maxAttempts,
		BaseInterval:       time.Millisecond,
		MaxBackoffInterval: 5 * time.Millisecond,
	}
}

func newTestMonitor() *health.Monitor {
	return health.NewMonitor(config.HealthConfig{
		MaxConsecutiveFailures: 3,
		BaseRetryDelay:         time.Minute,
		MaxRetryDelay:          time.Minute,
		DegradedResponseTime:   time.Second,
		MinSuccessRate:         0.5,
	}, &logger.EmptyLogger{})
}

func testIntentID() models.IntentID {
	var id models.IntentID
	id[0] = 0x01
	id[31] = 0xff
	return id
}

func TestPollForSignatureReturnsWhenReady(t *testing.T) {
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){
		notReady,
		notReady,
		ready,
	}}
	poller := NewPoller(testPollerConfig(10), checker, newTestMonitor(), &logger.EmptyLogger{})

	record, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.True(t, record.Ready)
	assert.Equal(t, 3, record.Attempts, "the record should carry the attempt count")
	assert.Equal(t, 3, checker.callCount(), "polling should stop as soon as the signature is ready")
	assert.Equal(t, PollStatusFound, poller.State().Status)
}

func TestPollForSignatureTimesOutAfterMaxAttempts(t *testing.T) {
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){notReady}}
	poller := NewPoller(testPollerConfig(4), checker, newTestMonitor(), &logger.EmptyLogger{})

	record, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
	require.Error(t, err)
	assert.Nil(t, record)

	assert.Equal(t, models.CategoryTimeout, models.CategoryOf(err))
	assert.Equal(t, 4, checker.callCount(), "no further requests after the attempt budget is spent")
	assert.Equal(t, PollStatusTimeout, poller.State().Status)
}

func TestPollForSignatureRejectsConcurrentPoll(t *testing.T) {
	block := make(chan struct{})
	checker := &scriptedChecker{
		script:  []func(models.IntentID) (*models.SignatureRecord, error){ready},
		blockCh: block,
	}
	poller := NewPoller(testPollerConfig(10), checker, newTestMonitor(), &logger.EmptyLogger{})

	done := make(chan error, 1)
	go func() {
		_, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
		done <- err
	}()

	// Wait until the first poll is in flight
	assert.Eventually(t, func() bool {
		return poller.State().Status == PollStatusPolling
	}, time.Second, time.Millisecond)

	callsBefore := checker.callCount()
	record, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
	assert.ErrorIs(t, err, ErrAlreadyPolling)
	assert.Nil(t, record)
	assert.Equal(t, callsBefore, checker.callCount(), "the rejected poll must not touch the network")

	close(block)
	assert.NoError(t, <-done)
}

func TestCancelPollingStopsThePoll(t *testing.T) {
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){notReady}}
	cfg := testPollerConfig(100)
	cfg.BaseInterval = time.Second
	poller := NewPoller(cfg, checker, newTestMonitor(), &logger.EmptyLogger{})

	done := make(chan error, 1)
	go func() {
		_, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
		done <- err
	}()

	assert.Eventually(t, func() bool {
		return checker.callCount() >= 1
	}, time.Second, time.Millisecond)

	poller.CancelPolling()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPollCancelled)
	case <-time.After(time.Second):
		t.Fatal("poll did not stop after cancellation")
	}
	assert.Equal(t, PollStatusIdle, poller.State().Status, "a cancelled poll returns to idle, not to an error state")
}

func TestPollForSignatureAbortsOnMalformedResponse(t *testing.T) {
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){
		func(models.IntentID) (*models.SignatureRecord, error) {
			return nil, fmt.Errorf("%w: unexpected status 418", ErrMalformedResponse)
		},
	}}
	poller := NewPoller(testPollerConfig(10), checker, newTestMonitor(), &logger.EmptyLogger{})

	record, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
	require.Error(t, err)
	assert.Nil(t, record)

	assert.Equal(t, models.CategoryExecutionError, models.CategoryOf(err))
	assert.Equal(t, 1, checker.callCount(), "a malformed response aborts immediately")
	assert.Equal(t, PollStatusError, poller.State().Status)
}

func TestPollForSignatureSurvivesServerFailures(t *testing.T) {
	monitor := newTestMonitor()
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){
		func(models.IntentID) (*models.SignatureRecord, error) {
			return nil, fmt.Errorf("%w: status 503", ErrServerFailure)
		},
		ready,
	}}
	poller := NewPoller(testPollerConfig(10), checker, monitor, &logger.EmptyLogger{})

	record, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.True(t, record.Ready, "a transient server failure should not end the poll")
	assert.Equal(t, 2, checker.callCount())

	snapshot := monitor.GetMetrics()
	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.SuccessfulRequests, "the failed call must count against the monitor")
}

func TestPollForSignatureSkipsAttemptsWhileBreakerOpen(t *testing.T) {
	monitor := newTestMonitor()
	for i := 0; i < 3; i++ {
		monitor.RecordFailure(time.Millisecond)
	}

	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){ready}}
	poller := NewPoller(testPollerConfig(3), checker, monitor, &logger.EmptyLogger{})

	record, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
	require.Error(t, err)
	assert.Nil(t, record)

	assert.Equal(t, models.CategoryTimeout, models.CategoryOf(err))
	assert.Equal(t, 0, checker.callCount(), "an open breaker must suppress signer calls entirely")
}

func TestCheckSignatureStatusProbesOnce(t *testing.T) {
	monitor := newTestMonitor()
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){notReady}}
	poller := NewPoller(testPollerConfig(10), checker, monitor, &logger.EmptyLogger{})

	record, err := poller.CheckSignatureStatus(context.Background(), testIntentID(), common.Hash{})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.False(t, record.Ready, "a pending signature is reported as-is, not retried")
	assert.Equal(t, 1, checker.callCount(), "a status probe makes exactly one signer call")

	snapshot := monitor.GetMetrics()
	assert.Equal(t, int64(1), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.SuccessfulRequests)
}

func TestCheckSignatureStatusRecordsFailure(t *testing.T) {
	monitor := newTestMonitor()
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){
		func(models.IntentID) (*models.SignatureRecord, error) {
			return nil, fmt.Errorf("%w: status 503", ErrServerFailure)
		},
	}}
	poller := NewPoller(testPollerConfig(10), checker, monitor, &logger.EmptyLogger{})

	record, err := poller.CheckSignatureStatus(context.Background(), testIntentID(), common.Hash{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerFailure)
	assert.Nil(t, record)

	assert.Equal(t, 1, checker.callCount())
	snapshot := monitor.GetMetrics()
	assert.Equal(t, int64(1), snapshot.TotalRequests)
	assert.Equal(t, int64(0), snapshot.SuccessfulRequests, "a failed probe must count against the monitor")
	assert.Equal(t, 1, snapshot.ConsecutiveFailures)
}

func TestExponentialBackoffIsCapped(t *testing.T) {
	cfg := config.PollerConfig{
		MaxAttempts:        6,
		BaseInterval:       time.Millisecond,
		MaxBackoffInterval: 4 * time.Millisecond,
		ExponentialBackoff: true,
	}
	checker := &scriptedChecker{script: []func(models.IntentID) (*models.SignatureRecord, error){notReady}}
	poller := NewPoller(cfg, checker, newTestMonitor(), &logger.EmptyLogger{})

	// 1 + 2 + 4 + 4 + 4 ms of sleeping between the six attempts; well under a
	// second even on a slow machine, and impossible if the cap were ignored
	// with a large base.
	start := time.Now()
	_, err := poller.PollForSignature(context.Background(), testIntentID(), common.Hash{})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 6, checker.callCount())
	assert.Less(t, elapsed, time.Second)
}
