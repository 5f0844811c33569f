// Package audit records money movements and authorization failures as structured events.
package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	EventSettlement  = "SETTLEMENT"
	EventCredit      = "CREDIT"
	EventPINRejected = "PIN_REJECTED"
	EventError       = "ERROR"
	EventLogout      = "LOGOUT"
)

type Event struct {
	Timestamp     time.Time
	EventType     string
	SessionID     string
	TransactionID string
	Amount        decimal.Decimal
	Status        string
	Details       map[string]string
}

// Logger writes audit events to a dedicated logrus entry
type Logger struct {
	entry *logrus.Entry
	now   func() time.Time
}

func NewLogger(entry *logrus.Entry) *Logger {
	return &Logger{entry: entry.WithField("audit", true), now: time.Now}
}

// LogSettlement records the outcome of a resolved payment or credit
func (a *Logger) LogSettlement(sessionID, transactionID, channel string, amount decimal.Decimal, status string) {
	a.log(Event{
		EventType:     EventSettlement,
		SessionID:     sessionID,
		TransactionID: transactionID,
		Amount:        amount,
		Status:        status,
		Details:       map[string]string{"channel": channel},
	})
}

func (a *Logger) LogCredit(sessionID, transactionID, method string, amount decimal.Decimal) {
	a.log(Event{
		EventType:     EventCredit,
		SessionID:     sessionID,
		TransactionID: transactionID,
		Amount:        amount,
		Status:        "success",
		Details:       map[string]string{"method": method},
	})
}

func (a *Logger) LogPINRejected(sessionID, attemptID string) {
	a.log(Event{
		EventType: EventPINRejected,
		SessionID: sessionID,
		Status:    "rejected",
		Details:   map[string]string{"attempt_id": attemptID},
	})
}

func (a *Logger) LogError(sessionID, reference string, err error) {
	a.log(Event{
		EventType: EventError,
		SessionID: sessionID,
		Status:    "failed",
		Details:   map[string]string{"reference": reference, "error": err.Error()},
	})
}

func (a *Logger) LogOperation(sessionID, operation, details string) {
	a.log(Event{
		EventType: operation,
		SessionID: sessionID,
		Status:    "success",
		Details:   map[string]string{"details": details},
	})
}

func (a *Logger) log(event Event) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
		"status":     event.Status,
		"event_time": a.now().UTC().Format(time.RFC3339),
	}
	if event.TransactionID != "" {
		fields["transaction_id"] = event.TransactionID
	}
	if !event.Amount.IsZero() {
		fields["amount"] = event.Amount.String()
	}
	for k, v := range event.Details {
		fields[k] = v
	}
	a.entry.WithFields(fields).Info("AUDIT")
}
