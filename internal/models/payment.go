package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is the state of a payment attempt
type Stage string

const (
	StageCollectingTarget        Stage = "collecting_target"
	StageCollectingAmount        Stage = "collecting_amount"
	StageCollectingAuthorization Stage = "collecting_authorization"
	StageExecuting               Stage = "executing"
	StageResolved                Stage = "resolved"
)

// Channel is a distinct payment channel driven through the flow
type Channel string

const (
	ChannelTransfer Channel = "transfer"
	ChannelBill     Channel = "bill"
	ChannelQR       Channel = "qr"
)

// Merchant is the payee decoded from a QR payload
type Merchant struct {
	Name  string `json:"name" example:"Coffee Shop Express"`
	UPIID string `json:"upiId" example:"coffeeshop@paytm"`
}

// Display is the counterparty string shown for a merchant
func (m Merchant) Display() string {
	if m.Name != "" {
		return m.Name
	}
	return m.UPIID
}

// PaymentResult is populated when an attempt reaches the resolved stage
type PaymentResult struct {
	Outcome       Outcome         `json:"outcome"`
	TransactionID string          `json:"transactionId,omitempty"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string"`
	Balance       decimal.Decimal `json:"balance" swaggertype:"string"`
	Merchant      *Merchant       `json:"merchant,omitempty"`
	Message       string          `json:"message,omitempty"`
	ResolvedAt    time.Time       `json:"resolvedAt"`
}

// PaymentAttempt is the transient state of one flow invocation
type PaymentAttempt struct {
	ID           string          `json:"id"`
	Channel      Channel         `json:"channel"`
	BillType     string          `json:"billType,omitempty"`
	Stage        Stage           `json:"stage"`
	Target       string          `json:"target,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	Merchant     *Merchant       `json:"merchant,omitempty"`
	Amount       decimal.Decimal `json:"amount" swaggertype:"string"`
	Category     Category        `json:"category"`
	Title        string          `json:"title"`
	Error        string          `json:"error,omitempty"`
	Result       *PaymentResult  `json:"result,omitempty"`
	StartedAt    time.Time       `json:"startedAt"`
}
