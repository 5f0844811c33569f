package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CategoryBudget is a spending ceiling for titles containing Name
type CategoryBudget struct {
	Name   string          `json:"name" example:"Food & Dining"`
	Budget decimal.Decimal `json:"budget" swaggertype:"string" example:"5000"`
	Color  string          `json:"color" example:"#FF6B6B"`
}

var DefaultCategoryBudgets = []CategoryBudget{
	{Name: "Food & Dining", Budget: decimal.NewFromInt(5000), Color: "#FF6B6B"},
	{Name: "Bills & Utilities", Budget: decimal.NewFromInt(4000), Color: "#4ECDC4"},
	{Name: "Transportation", Budget: decimal.NewFromInt(2500), Color: "#45B7D1"},
	{Name: "Entertainment", Budget: decimal.NewFromInt(1500), Color: "#96CEB4"},
	{Name: "Shopping", Budget: decimal.NewFromInt(2000), Color: "#FFEAA7"},
}

// CategorySpend is the spending of one budget category
type CategorySpend struct {
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Budget     decimal.Decimal `json:"budget" swaggertype:"string"`
	Spent      decimal.Decimal `json:"spent" swaggertype:"string"`
	Remaining  decimal.Decimal `json:"remaining" swaggertype:"string"`
	Percentage float64         `json:"percentage"`
	OverBudget bool            `json:"overBudget"`
}

// Budget is the budgeting view of a ledger
type Budget struct {
	MonthlyBudget decimal.Decimal `json:"monthlyBudget" swaggertype:"string"`
	TotalSpent    decimal.Decimal `json:"totalSpent" swaggertype:"string"`
	Remaining     decimal.Decimal `json:"remaining" swaggertype:"string"`
	Percentage    float64         `json:"percentage"`
	OverBudget    bool            `json:"overBudget"`
	Unallocated   decimal.Decimal `json:"unallocated" swaggertype:"string"`
	Categories    []CategorySpend `json:"categories"`
}

var hundred = decimal.NewFromInt(100)

// usedPercentage is spent/budget as a percentage capped at 100
func usedPercentage(spent, budget decimal.Decimal) float64 {
	if !budget.IsPositive() {
		return 0
	}
	pct := spent.Div(budget).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(2).InexactFloat64()
}

// BuildBudget buckets successful debits by the first category whose name the
// title contains, case-insensitively. Unmatched spend counts toward the total only.
func BuildBudget(txs []models.Transaction, monthly decimal.Decimal, categories []CategoryBudget) *Budget {
	spent := make([]decimal.Decimal, len(categories))
	total := decimal.Zero
	unallocated := decimal.Zero

	for _, tx := range txs {
		if tx.Direction != models.Debit || !tx.Succeeded() {
			continue
		}
		total = total.Add(tx.Amount)

		title := strings.ToLower(tx.Title)
		matched := false
		for i, c := range categories {
			if strings.Contains(title, strings.ToLower(c.Name)) {
				spent[i] = spent[i].Add(tx.Amount)
				matched = true
				break
			}
		}
		if !matched {
			unallocated = unallocated.Add(tx.Amount)
		}
	}

	b := &Budget{
		MonthlyBudget: monthly,
		TotalSpent:    total,
		Remaining:     monthly.Sub(total),
		Percentage:    usedPercentage(total, monthly),
		OverBudget:    total.GreaterThan(monthly),
		Unallocated:   unallocated,
		Categories:    make([]CategorySpend, len(categories)),
	}
	for i, c := range categories {
		b.Categories[i] = CategorySpend{
			Name:       c.Name,
			Color:      c.Color,
			Budget:     c.Budget,
			Spent:      spent[i],
			Remaining:  c.Budget.Sub(spent[i]),
			Percentage: usedPercentage(spent[i], c.Budget),
			OverBudget: spent[i].GreaterThan(c.Budget),
		}
	}
	return b
}

// BudgetUpdate changes the monthly ceiling and/or category ceilings by name
type BudgetUpdate struct {
	MonthlyBudget *decimal.Decimal
	Categories    map[string]decimal.Decimal
}

// BudgetService persists budget settings per session and builds the view
type BudgetService struct {
	kv             storage.KVStore
	ledgers        LedgerProvider
	defaultMonthly decimal.Decimal
	log            *logrus.Entry
}

func NewBudgetService(kv storage.KVStore, ledgers LedgerProvider, defaultMonthly decimal.Decimal, log *logrus.Entry) *BudgetService {
	return &BudgetService{kv: kv, ledgers: ledgers, defaultMonthly: defaultMonthly, log: log}
}

func (s *BudgetService) Get(ctx context.Context, sessionID string) (*Budget, error) {
	l, err := s.ledgers.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	monthly, categories, err := s.settings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return BuildBudget(l.Snapshot().Transactions, monthly, categories), nil
}

// Update validates and stores new ceilings; both keys are written together
func (s *BudgetService) Update(ctx context.Context, sessionID string, u BudgetUpdate) (*Budget, error) {
	monthly, categories, err := s.settings(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if u.MonthlyBudget != nil {
		if !u.MonthlyBudget.IsPositive() {
			return nil, fieldError("monthlyBudget", ErrInvalidBudget, "budget must be greater than zero")
		}
		monthly = *u.MonthlyBudget
	}
	for name, amount := range u.Categories {
		i := categoryIndex(categories, name)
		if i < 0 {
			return nil, fieldError("categories", ErrInvalidBudget, "unknown category %q", name)
		}
		if !amount.IsPositive() {
			return nil, fieldError("categories", ErrInvalidBudget, "budget for %q must be greater than zero", name)
		}
		categories[i].Budget = amount
	}

	overrides := make(map[string]string, len(categories))
	for _, c := range categories {
		overrides[c.Name] = c.Budget.String()
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return nil, fmt.Errorf("encode category budgets: %w", err)
	}
	err = s.kv.SetMany(ctx, map[string]string{
		Key(sessionID, KeyMonthlyBudget):   monthly.String(),
		Key(sessionID, KeyCategoryBudgets): string(raw),
	})
	if err != nil {
		return nil, fmt.Errorf("persist budget: %w", err)
	}

	return s.Get(ctx, sessionID)
}

// settings reads stored ceilings. Unreadable values fall back to defaults.
func (s *BudgetService) settings(ctx context.Context, sessionID string) (decimal.Decimal, []CategoryBudget, error) {
	monthly := s.defaultMonthly
	categories := append([]CategoryBudget(nil), DefaultCategoryBudgets...)

	raw, err := s.kv.Get(ctx, Key(sessionID, KeyMonthlyBudget))
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return monthly, categories, fmt.Errorf("load monthly budget: %w", err)
	default:
		if v, perr := decimal.NewFromString(raw); perr == nil && v.IsPositive() {
			monthly = v
		} else {
			s.log.WithField("session_id", sessionID).Warn("Stored monthly budget unreadable, using default")
		}
	}

	raw, err = s.kv.Get(ctx, Key(sessionID, KeyCategoryBudgets))
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return monthly, categories, fmt.Errorf("load category budgets: %w", err)
	default:
		var overrides map[string]decimal.Decimal
		if perr := json.Unmarshal([]byte(raw), &overrides); perr != nil {
			s.log.WithField("session_id", sessionID).Warn("Stored category budgets unreadable, using defaults")
			break
		}
		for name, amount := range overrides {
			if i := categoryIndex(categories, name); i >= 0 && amount.IsPositive() {
				categories[i].Budget = amount
			}
		}
	}

	return monthly, categories, nil
}

func categoryIndex(categories []CategoryBudget, name string) int {
	for i, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}
