package services

import (
	"context"
	"testing"

	"github.com/ruralpay/wallet/internal/logger"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debit(title, amount string, outcome models.Outcome) models.Transaction {
	return models.Transaction{
		ID: "TXN000000001", Direction: models.Debit, Category: models.CategoryMoneySent,
		Title: title, Counterparty: "x", Amount: dec(amount), Date: "2024-10-14", Time: "10:00", Outcome: outcome,
	}
}

func TestBuildBudget(t *testing.T) {
	txs := []models.Transaction{
		debit("Food & Dining", "1200", models.OutcomeSuccess),
		debit("food & dining - lunch", "300", models.OutcomeSuccess),
		debit("Bills & Utilities", "4500", models.OutcomeSuccess),
		debit("Money Sent", "800", models.OutcomeSuccess),
		debit("Shopping", "999", models.OutcomeFailed),
		{ID: "TXN000000002", Direction: models.Credit, Category: models.CategoryMoneyAdded, Title: "Shopping refund", Amount: dec("5000"), Outcome: models.OutcomeSuccess},
	}

	b := BuildBudget(txs, dec("15000"), DefaultCategoryBudgets)

	assert.True(t, b.TotalSpent.Equal(dec("6800")))
	assert.True(t, b.Remaining.Equal(dec("8200")))
	assert.InDelta(t, 45.33, b.Percentage, 0.001)
	assert.False(t, b.OverBudget)
	assert.True(t, b.Unallocated.Equal(dec("800")))

	require.Len(t, b.Categories, len(DefaultCategoryBudgets))
	food := b.Categories[0]
	assert.Equal(t, "Food & Dining", food.Name)
	assert.Equal(t, "#FF6B6B", food.Color)
	assert.True(t, food.Spent.Equal(dec("1500")))
	assert.Equal(t, 30.0, food.Percentage)

	bills := b.Categories[1]
	assert.True(t, bills.Spent.Equal(dec("4500")))
	assert.True(t, bills.Remaining.Equal(dec("-500")))
	assert.True(t, bills.OverBudget)
	assert.Equal(t, 100.0, bills.Percentage)

	shopping := b.Categories[4]
	assert.True(t, shopping.Spent.IsZero())

	// Category spend never exceeds the total
	sum := b.Unallocated
	for _, c := range b.Categories {
		sum = sum.Add(c.Spent)
	}
	assert.True(t, sum.Equal(b.TotalSpent))
}

func TestBuildBudget_OverMonthly(t *testing.T) {
	b := BuildBudget([]models.Transaction{debit("Money Sent", "20000", models.OutcomeSuccess)}, dec("15000"), DefaultCategoryBudgets)
	assert.True(t, b.OverBudget)
	assert.Equal(t, 100.0, b.Percentage)
	assert.True(t, b.Remaining.Equal(dec("-5000")))
}

func TestBudgetService(t *testing.T) {
	env := newTestEnv(t, nil, "10000")
	svc := NewBudgetService(env.kv, env.wallets, dec("15000"), logger.Discard().Component("budget"))
	ctx := context.Background()

	_, _, err := env.wallets.SendMoney(ctx, "s1", SendMoneyInput{Amount: dec("600"), Recipient: "Cafe", Category: models.CategoryFoodDining, Title: "Food & Dining"})
	require.NoError(t, err)

	b, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, b.MonthlyBudget.Equal(dec("15000")))
	assert.True(t, b.Categories[0].Spent.Equal(dec("600")))

	monthly := dec("20000")
	b, err = svc.Update(ctx, "s1", BudgetUpdate{
		MonthlyBudget: &monthly,
		Categories:    map[string]decimal.Decimal{"food & dining": dec("1000")},
	})
	require.NoError(t, err)
	assert.True(t, b.MonthlyBudget.Equal(monthly))
	assert.True(t, b.Categories[0].Budget.Equal(dec("1000")))
	assert.Equal(t, 60.0, b.Categories[0].Percentage)

	// settings survive a fresh service over the same store
	again, err := NewBudgetService(env.kv, env.wallets, dec("15000"), logger.Discard().Component("budget")).Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, again.MonthlyBudget.Equal(monthly))
	assert.True(t, again.Categories[0].Budget.Equal(dec("1000")))
	assert.True(t, DefaultCategoryBudgets[0].Budget.Equal(dec("5000")))

	zero := dec("0")
	_, err = svc.Update(ctx, "s1", BudgetUpdate{MonthlyBudget: &zero})
	assert.ErrorIs(t, err, ErrInvalidBudget)
	_, err = svc.Update(ctx, "s1", BudgetUpdate{Categories: map[string]decimal.Decimal{"Travel": dec("10")}})
	assert.ErrorIs(t, err, ErrInvalidBudget)
	_, err = svc.Update(ctx, "s1", BudgetUpdate{Categories: map[string]decimal.Decimal{"Shopping": dec("-1")}})
	assert.ErrorIs(t, err, ErrInvalidBudget)
}

func TestBudgetService_UnreadableSettings(t *testing.T) {
	env := newTestEnv(t, nil, "10000")
	svc := NewBudgetService(env.kv, env.wallets, dec("15000"), logger.Discard().Component("budget"))
	ctx := context.Background()

	require.NoError(t, env.kv.SetMany(ctx, map[string]string{
		Key("s1", KeyMonthlyBudget):   "lots",
		Key("s1", KeyCategoryBudgets): "{not json",
	}))

	b, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, b.MonthlyBudget.Equal(dec("15000")))
	assert.True(t, b.Categories[0].Budget.Equal(dec("5000")))
}

func TestBudgetService_StoreFailure(t *testing.T) {
	kv := &failingStore{KVStore: storage.NewMemoryStore()}
	env := newTestEnvWithStore(t, kv, nil, "10000")
	svc := NewBudgetService(kv, env.wallets, dec("15000"), logger.Discard().Component("budget"))
	ctx := context.Background()

	env.ledger(t, "s1")
	kv.set(true, false)
	_, err := svc.Get(ctx, "s1")
	assert.ErrorIs(t, err, errStoreDown)

	kv.set(false, true)
	monthly := dec("100")
	_, err = svc.Update(ctx, "s1", BudgetUpdate{MonthlyBudget: &monthly})
	assert.ErrorIs(t, err, errStoreDown)
}
