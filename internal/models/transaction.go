package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the money movement direction of a transaction
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}

// Category tags a transaction with the channel or purpose it came from
type Category string

const (
	CategoryMoneyReceived Category = "money_received"
	CategoryMoneySent     Category = "money_sent"
	CategoryBillPayment   Category = "bill_payment"
	CategoryMoneyAdded    Category = "money_added"
	CategoryQRPayment     Category = "qr_payment"
	CategoryFoodDining    Category = "food_dining"
)

var knownCategories = map[Category]bool{
	CategoryMoneyReceived: true,
	CategoryMoneySent:     true,
	CategoryBillPayment:   true,
	CategoryMoneyAdded:    true,
	CategoryQRPayment:     true,
	CategoryFoodDining:    true,
}

// Valid reports whether c is one of the closed set of categories
func (c Category) Valid() bool {
	return knownCategories[c]
}

// Outcome is the terminal state of a money movement
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Valid reports whether o is a known outcome
func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailed
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Transaction is one immutable record of a completed or failed money movement.
// JSON keys match the persisted snapshot layout.
type Transaction struct {
	ID           string          `json:"id" example:"TXN4K2Q9ZP1A"`
	Direction    Direction       `json:"type" example:"debit"`
	Category     Category        `json:"category" example:"money_sent"`
	Title        string          `json:"title" example:"Money Sent"`
	Counterparty string          `json:"subtitle" example:"john_doe"`
	Amount       decimal.Decimal `json:"amount" swaggertype:"string" example:"500"`
	Date         string          `json:"date" example:"2024-10-14"`
	Time         string          `json:"time" example:"18:30"`
	Outcome      Outcome         `json:"status" example:"success"`
}

// OccurredAt combines the date and time components in the given location
func (t Transaction) OccurredAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, t.Date+" "+t.Time, loc)
}

// Succeeded reports whether the transaction moved money
func (t Transaction) Succeeded() bool {
	return t.Outcome == OutcomeSuccess
}

// Validate checks the fields a persisted record must carry
func (t Transaction) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if !t.Direction.Valid() {
		errs = append(errs, fmt.Errorf("invalid type %q", t.Direction))
	}
	if !t.Category.Valid() {
		errs = append(errs, fmt.Errorf("invalid category %q", t.Category))
	}
	if t.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if t.Amount.IsNegative() {
		errs = append(errs, fmt.Errorf("negative amount %s", t.Amount))
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		errs = append(errs, fmt.Errorf("invalid date %q", t.Date))
	}
	if _, err := time.Parse(TimeLayout, t.Time); err != nil {
		errs = append(errs, fmt.Errorf("invalid time %q", t.Time))
	}
	if !t.Outcome.Valid() {
		errs = append(errs, fmt.Errorf("invalid status %q", t.Outcome))
	}
	if len(errs) > 0 {
		return fmt.Errorf("transaction %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}
