package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger is the balance and transaction history of one session.
// Transactions are ordered newest first.
type Ledger struct {
	Balance      decimal.Decimal `json:"balance" swaggertype:"string" example:"12547.5"`
	Transactions []Transaction   `json:"transactions"`
}

// Clone returns a copy that shares nothing mutable with l
func (l Ledger) Clone() Ledger {
	txs := make([]Transaction, len(l.Transactions))
	copy(txs, l.Transactions)
	return Ledger{Balance: l.Balance, Transactions: txs}
}

// Validate checks the balance floor and every transaction record
func (l Ledger) Validate() error {
	if l.Balance.IsNegative() {
		return fmt.Errorf("negative balance %s", l.Balance)
	}
	var errs []error
	for _, tx := range l.Transactions {
		if err := tx.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recent returns up to n transactions from the head of the history
func (l Ledger) Recent(n int) []Transaction {
	if n > len(l.Transactions) {
		n = len(l.Transactions)
	}
	out := make([]Transaction, n)
	copy(out, l.Transactions[:n])
	return out
}
