package services

import (
	"context"
	"strings"
	"time"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/shopspring/decimal"
)

const (
	StatusAll       = "all"
	DirectionAll    = "all"
	groupDateLayout = "2 Jan 2006"
)

// HistoryQuery selects transactions by free text, outcome and direction
type HistoryQuery struct {
	Query     string `validate:"max=100"`
	Status    string `validate:"omitempty,oneof=all success failed"`
	Direction string `validate:"omitempty,oneof=all credit debit"`
}

// DateGroup holds transactions sharing one calendar date
type DateGroup struct {
	Label        string            `json:"label" example:"Today"`
	Date         string            `json:"date" example:"2024-10-14"`
	Transactions []TransactionView `json:"transactions"`
}

// History is the filtered, grouped history view
type History struct {
	Groups      []DateGroup     `json:"groups"`
	Count       int             `json:"count"`
	TotalCredit decimal.Decimal `json:"totalCredit" swaggertype:"string"`
	TotalDebit  decimal.Decimal `json:"totalDebit" swaggertype:"string"`
}

// FilterTransactions keeps transactions whose title, counterparty or id contain
// the query (case-insensitive) and that match the status and direction filters.
// Empty and "all" filters match everything. Order is preserved.
func FilterTransactions(txs []models.Transaction, q HistoryQuery) []models.Transaction {
	needle := strings.ToLower(strings.TrimSpace(q.Query))
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if q.Status != "" && q.Status != StatusAll && string(tx.Outcome) != q.Status {
			continue
		}
		if q.Direction != "" && q.Direction != DirectionAll && string(tx.Direction) != q.Direction {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(tx.Title), needle) &&
			!strings.Contains(strings.ToLower(tx.Counterparty), needle) &&
			!strings.Contains(strings.ToLower(tx.ID), needle) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// GroupByDate groups by the date string in first-seen order
func GroupByDate(txs []models.Transaction, now time.Time) []DateGroup {
	today := now.Format(models.DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(models.DateLayout)

	groups := []DateGroup{}
	index := make(map[string]int)
	for _, tx := range txs {
		i, ok := index[tx.Date]
		if !ok {
			i = len(groups)
			index[tx.Date] = i
			groups = append(groups, DateGroup{Label: dateLabel(tx.Date, today, yesterday), Date: tx.Date})
		}
		groups[i].Transactions = append(groups[i].Transactions, viewOf(tx))
	}
	return groups
}

func dateLabel(date, today, yesterday string) string {
	switch date {
	case today:
		return "Today"
	case yesterday:
		return "Yesterday"
	}
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(groupDateLayout)
}

type HistoryService struct {
	ledgers LedgerProvider
	now     func() time.Time
}

func NewHistoryService(ledgers LedgerProvider, now func() time.Time) *HistoryService {
	if now == nil {
		now = time.Now
	}
	return &HistoryService{ledgers: ledgers, now: now}
}

// Query filters and groups the session history. Totals count successful
// transactions in the filtered set.
func (s *HistoryService) Query(ctx context.Context, sessionID string, q HistoryQuery) (*History, error) {
	l, err := s.ledgers.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	filtered := FilterTransactions(l.Snapshot().Transactions, q)
	h := &History{
		Groups:      GroupByDate(filtered, s.now()),
		Count:       len(filtered),
		TotalCredit: decimal.Zero,
		TotalDebit:  decimal.Zero,
	}
	for _, tx := range filtered {
		if !tx.Succeeded() {
			continue
		}
		if tx.Direction == models.Credit {
			h.TotalCredit = h.TotalCredit.Add(tx.Amount)
		} else {
			h.TotalDebit = h.TotalDebit.Add(tx.Amount)
		}
	}
	return h, nil
}
