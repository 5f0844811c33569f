package services

import (
	"context"

	"github.com/ruralpay/wallet/internal/models"
)

const (
	maskedBalance   = "••••••"
	recentLimit     = 3
	defaultCurrency = "INR"
)

// TransactionView is a transaction with its presentation glyph
type TransactionView struct {
	models.Transaction
	Glyph string `json:"glyph" example:"arrow-up-right"`
}

func viewOf(tx models.Transaction) TransactionView {
	return TransactionView{Transaction: tx, Glyph: models.GlyphFor(tx.Direction, tx.Category)}
}

func viewsOf(txs []models.Transaction) []TransactionView {
	out := make([]TransactionView, len(txs))
	for i, tx := range txs {
		out[i] = viewOf(tx)
	}
	return out
}

// Dashboard is the summary screen projection of a ledger
type Dashboard struct {
	Balance      string            `json:"balance" example:"12547.50"`
	Currency     string            `json:"currency" example:"INR"`
	Hidden       bool              `json:"hidden"`
	Recent       []TransactionView `json:"recentTransactions"`
	QuickActions []QuickAction     `json:"quickActions"`
}

type DashboardService struct {
	ledgers LedgerProvider
}

func NewDashboardService(ledgers LedgerProvider) *DashboardService {
	return &DashboardService{ledgers: ledgers}
}

// Build projects the session ledger. hideBalance masks the amount for this response only.
func (s *DashboardService) Build(ctx context.Context, sessionID string, hideBalance bool) (*Dashboard, error) {
	l, err := s.ledgers.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return BuildDashboard(l.Snapshot(), hideBalance), nil
}

// BuildDashboard is the pure projection behind Build
func BuildDashboard(l models.Ledger, hideBalance bool) *Dashboard {
	d := &Dashboard{
		Balance:      l.Balance.StringFixed(2),
		Currency:     defaultCurrency,
		Hidden:       hideBalance,
		Recent:       viewsOf(l.Recent(recentLimit)),
		QuickActions: QuickActions,
	}
	if hideBalance {
		d.Balance = maskedBalance
	}
	return d
}
