package services

import (
	"fmt"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/shopspring/decimal"
)

// ApplyDelta returns the balance after moving delta in the given direction.
// Debits floor at zero; the unrecovered remainder is dropped.
func ApplyDelta(balance, delta decimal.Decimal, direction models.Direction) (decimal.Decimal, error) {
	if delta.IsNegative() {
		return balance, fieldError("amount", ErrInvalidAmount, "amount must not be negative")
	}

	switch direction {
	case models.Credit:
		return balance.Add(delta), nil
	case models.Debit:
		next := balance.Sub(delta)
		if next.IsNegative() {
			return decimal.Zero, nil
		}
		return next, nil
	}
	return balance, fmt.Errorf("unknown direction %q", direction)
}
