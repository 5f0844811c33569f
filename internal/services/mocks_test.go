package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ruralpay/wallet/internal/audit"
	"github.com/ruralpay/wallet/internal/client"
	"github.com/ruralpay/wallet/internal/logger"
	"github.com/ruralpay/wallet/internal/metrics"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ExecutionResult), args.Error(1)
}

type MockMoneySender struct {
	mock.Mock
}

func (m *MockMoneySender) SendMoney(ctx context.Context, req client.SendMoneyRequest) (*client.MoneyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.MoneyResponse), args.Error(1)
}

type MockMerchantResolver struct {
	mock.Mock
}

func (m *MockMerchantResolver) PeekMerchant(ctx context.Context, payload string) (models.Merchant, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(models.Merchant), args.Error(1)
}

func (m *MockMerchantResolver) ConsumeMerchant(ctx context.Context, payload string) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// failingStore wraps a store and fails writes while failWrites is set
type failingStore struct {
	storage.KVStore
	mu         sync.Mutex
	failWrites bool
	failReads  bool
}

var errStoreDown = errors.New("store unavailable")

func (s *failingStore) set(reads, writes bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads, s.failWrites = reads, writes
}

func (s *failingStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	fail := s.failReads
	s.mu.Unlock()
	if fail {
		return "", errStoreDown
	}
	return s.KVStore.Get(ctx, key)
}

func (s *failingStore) SetMany(ctx context.Context, values map[string]string) error {
	s.mu.Lock()
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.KVStore.SetMany(ctx, values)
}

// blockingExecutor holds execution until release is closed
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	result  ExecutionResult
	err     error
}

func newBlockingExecutor(result ExecutionResult) *blockingExecutor {
	return &blockingExecutor{started: make(chan struct{}), release: make(chan struct{}), result: result}
}

func (e *blockingExecutor) Execute(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	close(e.started)
	<-e.release
	return e.result, e.err
}

var fixedNow = time.Date(2024, 10, 14, 18, 45, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var testPIN *PINVerifier

func pinVerifier(t *testing.T) *PINVerifier {
	t.Helper()
	if testPIN == nil {
		v, err := NewPINVerifier("1234")
		require.NoError(t, err)
		testPIN = v
	}
	return testPIN
}

// testEnv wires the services over an in-memory store
type testEnv struct {
	kv      storage.KVStore
	factory *TransactionFactory
	wallets *WalletService
	deps    *FlowDeps
	flows   *FlowManager
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, exec Executor, startingBalance string) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, storage.NewMemoryStore(), exec, startingBalance)
}

func newTestEnvWithStore(t *testing.T, kv storage.KVStore, exec Executor, startingBalance string) *testEnv {
	t.Helper()
	log := logger.Discard()
	m := metrics.New()
	auditLog := audit.NewLogger(log.Component("audit"))
	factory := NewTransactionFactory(fixedClock, nil)
	seed := SeedConfig{StartingBalance: decimal.RequireFromString(startingBalance)}

	wallets := NewWalletService(kv, seed, factory, auditLog, m, log.Component("wallet"))
	deps := &FlowDeps{
		Factory:  factory,
		Executor: exec,
		PIN:      pinVerifier(t),
		Audit:    auditLog,
		Metrics:  m,
		Log:      log.Component("payment"),
	}
	return &testEnv{
		kv:      kv,
		factory: factory,
		wallets: wallets,
		deps:    deps,
		flows:   NewFlowManager(deps, wallets),
		metrics: m,
	}
}

func (e *testEnv) ledger(t *testing.T, sessionID string) *LedgerStore {
	t.Helper()
	l, err := e.wallets.Ledger(context.Background(), sessionID)
	require.NoError(t, err)
	return l
}

func succeed() ExecutionResult {
	return ExecutionResult{Outcome: models.OutcomeSuccess, Message: "Payment successful"}
}

func fail() ExecutionResult {
	return ExecutionResult{Outcome: models.OutcomeFailed, Message: "Payment failed. Please try again."}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
