package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the session profile persisted under the session key
type User struct {
	ID        string           `json:"id" example:"2f1c7a8e-4b7e-4b59-9a0e-4c1f0d3b2a11"` // Session ID
	FullName  string           `json:"fullName" example:"Asha Rao"`                       // Display name
	Username  string           `json:"username" example:"asha"`                           // Handle shown to payers
	Balance   *decimal.Decimal `json:"balance,omitempty" swaggertype:"string"`            // Cached balance
	CreatedAt time.Time        `json:"createdAt"`
}
