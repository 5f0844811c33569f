package services

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ruralpay/wallet/internal/audit"
	"github.com/ruralpay/wallet/internal/metrics"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// FundingMethod is a way of adding money to the wallet
type FundingMethod struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Glyph string `json:"glyph"`
}

var FundingMethods = []FundingMethod{
	{Code: "card", Label: "Credit/Debit Card", Glyph: "credit-card"},
	{Code: "bank", Label: "Bank Transfer", Glyph: "building"},
	{Code: "upi", Label: "UPI", Glyph: "smartphone"},
}

func lookupFundingMethod(code string) (FundingMethod, bool) {
	for _, m := range FundingMethods {
		if m.Code == code {
			return m, true
		}
	}
	return FundingMethod{}, false
}

// SendMoneyInput is a balance-checked debit requested over the API
type SendMoneyInput struct {
	Amount    decimal.Decimal
	Recipient string
	Category  models.Category
	Title     string
}

// WalletService owns the session ledgers and the direct credit and debit operations
type WalletService struct {
	kv      storage.KVStore
	seed    SeedConfig
	factory *TransactionFactory
	audit   *audit.Logger
	metrics *metrics.Metrics
	log     *logrus.Entry

	mu      sync.Mutex
	ledgers map[string]*LedgerStore
}

func NewWalletService(kv storage.KVStore, seed SeedConfig, factory *TransactionFactory, auditLog *audit.Logger, m *metrics.Metrics, log *logrus.Entry) *WalletService {
	return &WalletService{
		kv:      kv,
		seed:    seed,
		factory: factory,
		audit:   auditLog,
		metrics: m,
		log:     log,
		ledgers: make(map[string]*LedgerStore),
	}
}

// Ledger returns the session's ledger, loading it on first use
func (s *WalletService) Ledger(ctx context.Context, sessionID string) (*LedgerStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[sessionID]; ok {
		return l, nil
	}
	l := NewLedgerStore(s.kv, sessionID, s.seed, s.log, s.metrics)
	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}
	s.ledgers[sessionID] = l
	return l, nil
}

// Forget drops the cached ledger of a session
func (s *WalletService) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ledgers, sessionID)
}

func (s *WalletService) Balance(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Balance(), nil
}

func (s *WalletService) Transactions(ctx context.Context, sessionID string) ([]models.Transaction, error) {
	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return l.Snapshot().Transactions, nil
}

// AddMoney credits a positive amount through one of the funding methods
func (s *WalletService) AddMoney(ctx context.Context, sessionID string, amount decimal.Decimal, method string) (models.Transaction, models.Ledger, error) {
	fm, ok := lookupFundingMethod(method)
	if !ok {
		return models.Transaction{}, models.Ledger{}, fieldError("method", ErrInvalidMethod, "select a payment method")
	}
	if !amount.IsPositive() {
		return models.Transaction{}, models.Ledger{}, fieldError("amount", ErrInvalidAmount, "enter a valid amount")
	}

	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return models.Transaction{}, models.Ledger{}, err
	}

	tx := s.factory.Create(models.Credit, models.CategoryMoneyAdded, "Money Added", "Via "+fm.Label, amount, models.OutcomeSuccess)
	ledger, err := l.Settle(ctx, tx)
	if err != nil {
		return models.Transaction{}, models.Ledger{}, err
	}

	s.audit.LogCredit(sessionID, tx.ID, fm.Code, amount)
	return tx, ledger, nil
}

// SendMoney debits amount after checking the balance covers it. The record
// carries a reference number instead of a TXN id.
func (s *WalletService) SendMoney(ctx context.Context, sessionID string, in SendMoneyInput) (models.Transaction, models.Ledger, error) {
	recipient := strings.TrimSpace(in.Recipient)
	if utf8.RuneCountInString(recipient) < channels[models.ChannelTransfer].minTarget {
		return models.Transaction{}, models.Ledger{}, fieldError("recipient", ErrInvalidTarget, "enter a valid recipient")
	}
	if !in.Amount.IsPositive() {
		return models.Transaction{}, models.Ledger{}, fieldError("amount", ErrInvalidAmount, "enter a valid amount")
	}

	category := in.Category
	if category == "" {
		category = models.CategoryMoneySent
	}
	if !category.Valid() || category == models.CategoryMoneyAdded || category == models.CategoryMoneyReceived {
		return models.Transaction{}, models.Ledger{}, fieldError("category", ErrInvalidChannel, "category %q is not a debit", category)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Money Sent"
	}

	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return models.Transaction{}, models.Ledger{}, err
	}

	var tx models.Transaction
	ledger, err := l.Commit(ctx, func(led *models.Ledger) error {
		if in.Amount.GreaterThan(led.Balance) {
			return fieldError("amount", ErrInsufficientFunds, "insufficient balance, available %s", led.Balance.StringFixed(2))
		}
		tx = s.factory.WithID(s.factory.NewReference(), models.Debit, category, title, recipient, in.Amount, models.OutcomeSuccess)
		return settle(led, tx)
	})
	if err != nil {
		return models.Transaction{}, models.Ledger{}, err
	}

	s.audit.LogSettlement(sessionID, tx.ID, "api", tx.Amount, string(tx.Outcome))
	return tx, ledger, nil
}
