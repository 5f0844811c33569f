package services

import (
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	txnIDPattern     = regexp.MustCompile(`^TXN[0-9A-Z]{9}$`)
	referencePattern = regexp.MustCompile(`^REF20241014[0-9]{6}$`)
)

func TestTransactionFactory_Create(t *testing.T) {
	f := NewTransactionFactory(fixedClock, rand.New(rand.NewPCG(7, 7)))

	tx := f.Create(models.Debit, models.CategoryMoneySent, "Money Sent", "john_doe", dec("500"), models.OutcomeSuccess)

	assert.Regexp(t, txnIDPattern, tx.ID)
	assert.Equal(t, models.Debit, tx.Direction)
	assert.Equal(t, models.CategoryMoneySent, tx.Category)
	assert.Equal(t, "Money Sent", tx.Title)
	assert.Equal(t, "john_doe", tx.Counterparty)
	assert.True(t, tx.Amount.Equal(dec("500")))
	assert.Equal(t, "2024-10-14", tx.Date)
	assert.Equal(t, "18:45", tx.Time)
	assert.Equal(t, models.OutcomeSuccess, tx.Outcome)
	require.NoError(t, tx.Validate())

	at, err := tx.OccurredAt(fixedNow.Location())
	require.NoError(t, err)
	assert.Equal(t, fixedNow, at)
}

func TestTransactionFactory_IDsDiffer(t *testing.T) {
	f := NewTransactionFactory(fixedClock, nil)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := f.NewID()
		require.Regexp(t, txnIDPattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 990)
}

func TestTransactionFactory_WithID(t *testing.T) {
	f := NewTransactionFactory(fixedClock, nil)

	ref := f.NewReference()
	assert.Regexp(t, referencePattern, ref)

	tx := f.WithID(ref, models.Debit, models.CategoryMoneySent, "Money Sent", "john_doe", dec("10"), models.OutcomeSuccess)
	assert.Equal(t, ref, tx.ID)
	assert.NoError(t, tx.Validate())
}
