package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ruralpay/wallet/internal/metrics"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Persisted key names, namespaced per session by Key
const (
	KeyBalance         = "walletBalance"
	KeyTransactions    = "transactions"
	KeyUser            = "appUser"
	KeyMonthlyBudget   = "monthlyBudget"
	KeyCategoryBudgets = "categoryBudgets"
)

// Key returns the storage key of name for a session
func Key(sessionID, name string) string {
	return "wallet:" + sessionID + ":" + name
}

// SeedConfig describes the ledger a session starts from
type SeedConfig struct {
	StartingBalance decimal.Decimal
	DemoHistory     bool
}

// SeedLedger builds the default ledger used for new sessions and unreadable snapshots
func SeedLedger(cfg SeedConfig) models.Ledger {
	l := models.Ledger{Balance: cfg.StartingBalance, Transactions: []models.Transaction{}}
	if !cfg.DemoHistory {
		return l
	}
	l.Transactions = []models.Transaction{
		{
			ID: "TXN123456", Direction: models.Debit, Category: models.CategoryFoodDining,
			Title: "Food & Dining", Counterparty: "Local Cafe", Amount: decimal.NewFromInt(1200),
			Date: "2024-10-14", Time: "18:30", Outcome: models.OutcomeSuccess,
		},
		{
			ID: "TXN654321", Direction: models.Debit, Category: models.CategoryBillPayment,
			Title: "Electricity Bill", Counterparty: "MSEB", Amount: decimal.NewFromInt(2800),
			Date: "2024-10-13", Time: "11:00", Outcome: models.OutcomeSuccess,
		},
		{
			ID: "TXN000001", Direction: models.Credit, Category: models.CategoryMoneyAdded,
			Title: "Money Added", Counterparty: "Via Bank", Amount: decimal.NewFromInt(5000),
			Date: "2024-10-12", Time: "10:00", Outcome: models.OutcomeSuccess,
		},
	}
	return l
}

// LedgerStore owns the ledger of one session. Every mutation is written
// through to the key-value store before the in-memory copy changes.
type LedgerStore struct {
	kv        storage.KVStore
	sessionID string
	seed      SeedConfig
	log       *logrus.Entry
	metrics   *metrics.Metrics

	mu     sync.Mutex
	ledger models.Ledger
}

func NewLedgerStore(kv storage.KVStore, sessionID string, seed SeedConfig, log *logrus.Entry, m *metrics.Metrics) *LedgerStore {
	return &LedgerStore{
		kv:        kv,
		sessionID: sessionID,
		seed:      seed,
		log:       log.WithField("session_id", sessionID),
		metrics:   m,
		ledger:    SeedLedger(seed),
	}
}

// SessionID returns the session the ledger belongs to
func (s *LedgerStore) SessionID() string {
	return s.sessionID
}

// Load reads the persisted snapshot. A missing, partial or unreadable snapshot
// yields the seed ledger; only store transport errors are returned.
func (s *LedgerStore) Load(ctx context.Context) (models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, reason, err := s.read(ctx)
	if err != nil {
		return models.Ledger{}, err
	}
	if reason != "" {
		s.log.WithField("reason", reason).Warn("Ledger snapshot unusable, falling back to seed")
		if s.metrics != nil {
			s.metrics.LedgerFallbacks.WithLabelValues(reason).Inc()
		}
		l = SeedLedger(s.seed)
	}

	s.ledger = l
	return l.Clone(), nil
}

// read returns the decoded snapshot, or a non-empty fallback reason
func (s *LedgerStore) read(ctx context.Context) (models.Ledger, string, error) {
	rawBalance, err := s.kv.Get(ctx, Key(s.sessionID, KeyBalance))
	missingBalance := errors.Is(err, storage.ErrNotFound)
	if err != nil && !missingBalance {
		return models.Ledger{}, "", fmt.Errorf("load balance: %w", err)
	}

	rawTxs, err := s.kv.Get(ctx, Key(s.sessionID, KeyTransactions))
	missingTxs := errors.Is(err, storage.ErrNotFound)
	if err != nil && !missingTxs {
		return models.Ledger{}, "", fmt.Errorf("load transactions: %w", err)
	}

	switch {
	case missingBalance && missingTxs:
		return models.Ledger{}, "missing", nil
	case missingBalance || missingTxs:
		return models.Ledger{}, "partial", nil
	}

	balance, err := decimal.NewFromString(rawBalance)
	if err != nil {
		return models.Ledger{}, "corrupt", nil
	}

	var txs []models.Transaction
	if err := json.Unmarshal([]byte(rawTxs), &txs); err != nil {
		return models.Ledger{}, "corrupt", nil
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	l := models.Ledger{Balance: balance, Transactions: txs}
	if err := l.Validate(); err != nil {
		s.log.WithError(err).Debug("Ledger snapshot failed validation")
		return models.Ledger{}, "invalid", nil
	}
	return l, "", nil
}

// Snapshot returns a deep copy of the current ledger
func (s *LedgerStore) Snapshot() models.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone()
}

// Balance returns the current balance
func (s *LedgerStore) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance
}

// Persist writes l as the session snapshot and makes it current
func (s *LedgerStore) Persist(ctx context.Context, l models.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, l.Clone())
}

func (s *LedgerStore) persistLocked(ctx context.Context, l models.Ledger) error {
	if l.Transactions == nil {
		l.Transactions = []models.Transaction{}
	}
	txs, err := json.Marshal(l.Transactions)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}

	err = s.kv.SetMany(ctx, map[string]string{
		Key(s.sessionID, KeyBalance):      l.Balance.String(),
		Key(s.sessionID, KeyTransactions): string(txs),
	})
	if err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}

	s.ledger = l
	return nil
}

// Commit runs fn against a copy of the ledger and persists the result.
// If fn or the write fails the current ledger is left untouched.
func (s *LedgerStore) Commit(ctx context.Context, fn func(l *models.Ledger) error) (models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.ledger.Clone()
	if err := fn(&next); err != nil {
		return s.ledger.Clone(), err
	}
	if err := s.persistLocked(ctx, next); err != nil {
		return s.ledger.Clone(), err
	}
	return next.Clone(), nil
}

// Apply moves the balance by delta without recording a transaction
func (s *LedgerStore) Apply(ctx context.Context, delta decimal.Decimal, direction models.Direction) (decimal.Decimal, error) {
	l, err := s.Commit(ctx, func(l *models.Ledger) error {
		b, err := ApplyDelta(l.Balance, delta, direction)
		if err != nil {
			return err
		}
		l.Balance = b
		return nil
	})
	return l.Balance, err
}

// Append records tx at the head of the history without touching the balance
func (s *LedgerStore) Append(ctx context.Context, tx models.Transaction) error {
	_, err := s.Commit(ctx, func(l *models.Ledger) error {
		prepend(l, tx)
		return nil
	})
	return err
}

// Settle records tx and, when it succeeded, applies its amount to the balance.
// Both changes land in one write.
func (s *LedgerStore) Settle(ctx context.Context, tx models.Transaction) (models.Ledger, error) {
	return s.Commit(ctx, func(l *models.Ledger) error {
		return settle(l, tx)
	})
}

// Reconcile sets the balance reported by a remote ledger and records tx
func (s *LedgerStore) Reconcile(ctx context.Context, balance decimal.Decimal, tx models.Transaction) (models.Ledger, error) {
	return s.Commit(ctx, func(l *models.Ledger) error {
		if balance.IsNegative() {
			return fieldError("balance", ErrInvalidAmount, "reported balance is negative")
		}
		l.Balance = balance
		prepend(l, tx)
		return nil
	})
}

// Clear removes the persisted snapshot and resets to the seed ledger
func (s *LedgerStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Delete(ctx, Key(s.sessionID, KeyBalance), Key(s.sessionID, KeyTransactions))
	if err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	s.ledger = SeedLedger(s.seed)
	return nil
}

func settle(l *models.Ledger, tx models.Transaction) error {
	if tx.Succeeded() {
		b, err := ApplyDelta(l.Balance, tx.Amount, tx.Direction)
		if err != nil {
			return err
		}
		l.Balance = b
	}
	prepend(l, tx)
	return nil
}

func prepend(l *models.Ledger, tx models.Transaction) {
	l.Transactions = append([]models.Transaction{tx}, l.Transactions...)
}
