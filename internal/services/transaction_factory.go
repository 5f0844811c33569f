package services

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/shopspring/decimal"
)

const (
	txnPrefix   = "TXN"
	txnIDLength = 9
	idAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// TransactionFactory stamps new transaction records with an id and the current time
type TransactionFactory struct {
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTransactionFactory builds a factory. Nil arguments select the wall clock
// and a randomly seeded source.
func NewTransactionFactory(now func() time.Time, rng *rand.Rand) *TransactionFactory {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &TransactionFactory{now: now, rng: rng}
}

// NewID returns TXN followed by nine characters of [0-9A-Z]. Collisions are not checked.
func (f *TransactionFactory) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var b strings.Builder
	b.Grow(len(txnPrefix) + txnIDLength)
	b.WriteString(txnPrefix)
	for i := 0; i < txnIDLength; i++ {
		b.WriteByte(idAlphabet[f.rng.IntN(len(idAlphabet))])
	}
	return b.String()
}

// NewReference returns a server-style reference number, REF followed by the
// current date and six digits
func (f *TransactionFactory) NewReference() string {
	f.mu.Lock()
	n := f.rng.IntN(1_000_000)
	f.mu.Unlock()
	return fmt.Sprintf("REF%s%06d", f.now().Format("20060102"), n)
}

// Create builds a transaction with a fresh id
func (f *TransactionFactory) Create(direction models.Direction, category models.Category, title, counterparty string, amount decimal.Decimal, outcome models.Outcome) models.Transaction {
	return f.WithID(f.NewID(), direction, category, title, counterparty, amount, outcome)
}

// WithID builds a transaction carrying an externally issued reference
func (f *TransactionFactory) WithID(id string, direction models.Direction, category models.Category, title, counterparty string, amount decimal.Decimal, outcome models.Outcome) models.Transaction {
	at := f.now()
	return models.Transaction{
		ID:           id,
		Direction:    direction,
		Category:     category,
		Title:        title,
		Counterparty: counterparty,
		Amount:       amount,
		Date:         at.Format(models.DateLayout),
		Time:         at.Format(models.TimeLayout),
		Outcome:      outcome,
	}
}

// Now exposes the factory clock to views that label dates
func (f *TransactionFactory) Now() time.Time {
	return f.now()
}
