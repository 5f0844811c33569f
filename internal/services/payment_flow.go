package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ruralpay/wallet/internal/audit"
	"github.com/ruralpay/wallet/internal/metrics"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const unreachableMessage = "Unable to reach the payment service. Please check your connection and try again."

// BillType is a payable bill category
type BillType struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Glyph string `json:"glyph"`
}

var BillTypes = []BillType{
	{Code: "electricity", Label: "Electricity", Glyph: models.GlyphZap},
	{Code: "mobile", Label: "Mobile Recharge", Glyph: "smartphone"},
	{Code: "gas", Label: "Gas Bill", Glyph: "flame"},
	{Code: "dth", Label: "DTH/Cable", Glyph: "tv"},
}

func lookupBillType(code string) (BillType, bool) {
	for _, bt := range BillTypes {
		if bt.Code == code {
			return bt, true
		}
	}
	return BillType{}, false
}

// MerchantResolver turns a scanned QR payload into a payee. A payload is
// looked up while the flow collects its target and consumed once paid.
type MerchantResolver interface {
	PeekMerchant(ctx context.Context, payload string) (models.Merchant, error)
	ConsumeMerchant(ctx context.Context, payload string) error
}

// channelRules fixes the target rule and transaction labels of a channel
type channelRules struct {
	minTarget int
	category  models.Category
	title     string
}

var channels = map[models.Channel]channelRules{
	models.ChannelTransfer: {minTarget: 3, category: models.CategoryMoneySent, title: "Money Sent"},
	models.ChannelBill:     {minTarget: 5, category: models.CategoryBillPayment},
	models.ChannelQR:       {minTarget: 3, category: models.CategoryQRPayment, title: "QR Payment"},
}

// FlowDeps are the collaborators shared by every flow
type FlowDeps struct {
	Factory                *TransactionFactory
	Executor               Executor
	PIN                    *PINVerifier
	Merchants              MerchantResolver
	Audit                  *audit.Logger
	Metrics                *metrics.Metrics
	Log                    *logrus.Entry
	RequireSufficientFunds bool
}

// PaymentFlow drives one payment attempt through
// target, amount, authorization, execution and result.
type PaymentFlow struct {
	deps     *FlowDeps
	ledger   *LedgerStore
	channel  models.Channel
	billType BillType
	rules    channelRules

	mu      sync.Mutex
	attempt models.PaymentAttempt
}

// NewPaymentFlow starts a flow at the target stage. Bill flows need a bill type.
func NewPaymentFlow(deps *FlowDeps, ledger *LedgerStore, channel models.Channel, billType string) (*PaymentFlow, error) {
	rules, ok := channels[channel]
	if !ok {
		return nil, fieldError("channel", ErrInvalidChannel, "unknown channel %q", channel)
	}

	f := &PaymentFlow{deps: deps, ledger: ledger, channel: channel, rules: rules}
	if channel == models.ChannelBill {
		bt, ok := lookupBillType(billType)
		if !ok {
			return nil, fieldError("billType", ErrInvalidBillType, "select a bill type")
		}
		f.billType = bt
		f.rules.title = bt.Label
	}

	f.attempt = f.freshAttempt()
	return f, nil
}

func (f *PaymentFlow) freshAttempt() models.PaymentAttempt {
	return models.PaymentAttempt{
		ID:        uuid.New().String(),
		Channel:   f.channel,
		BillType:  f.billType.Code,
		Stage:     models.StageCollectingTarget,
		Category:  f.rules.category,
		Title:     f.rules.title,
		StartedAt: f.deps.Factory.Now(),
	}
}

// Snapshot returns a copy of the attempt
func (f *PaymentFlow) Snapshot() models.PaymentAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempt
}

// Executing reports whether the attempt is inside the executing stage
func (f *PaymentFlow) Executing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempt.Stage == models.StageExecuting
}

// SubmitTarget validates the recipient, bill reference or QR payload
func (f *PaymentFlow) SubmitTarget(ctx context.Context, target string) (models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.attempt.Stage != models.StageCollectingTarget {
		return f.attempt, ErrWrongStage
	}

	target = strings.TrimSpace(target)
	counterparty, merchant, fe := f.resolveTarget(ctx, target)
	if fe != nil {
		return f.reject(fe)
	}

	f.attempt.Target = target
	f.attempt.Counterparty = counterparty
	f.attempt.Merchant = merchant
	f.attempt.Error = ""
	f.attempt.Stage = models.StageCollectingAmount
	return f.attempt, nil
}

func (f *PaymentFlow) resolveTarget(ctx context.Context, target string) (string, *models.Merchant, *FieldError) {
	switch f.channel {
	case models.ChannelQR:
		if target == "" || f.deps.Merchants == nil {
			return "", nil, fieldError("target", ErrInvalidTarget, "scan a merchant QR code")
		}
		m, err := f.deps.Merchants.PeekMerchant(ctx, target)
		if err != nil {
			return "", nil, fieldError("target", ErrInvalidTarget, "invalid or expired QR code")
		}
		if utf8.RuneCountInString(m.Display()) < f.rules.minTarget {
			return "", nil, fieldError("target", ErrInvalidTarget, "merchant details are incomplete")
		}
		return m.Display(), &m, nil

	case models.ChannelBill:
		if utf8.RuneCountInString(target) < f.rules.minTarget {
			return "", nil, fieldError("target", ErrInvalidTarget, "enter a valid bill reference (at least %d characters)", f.rules.minTarget)
		}
		return f.billType.Label + " - " + target, nil, nil
	}

	if utf8.RuneCountInString(target) < f.rules.minTarget {
		return "", nil, fieldError("target", ErrInvalidTarget, "enter a valid recipient (at least %d characters)", f.rules.minTarget)
	}
	return target, nil, nil
}

// SubmitAmount validates a positive amount. With sufficient funds required,
// amounts above the balance are rejected here and again after execution.
func (f *PaymentFlow) SubmitAmount(amount decimal.Decimal) (models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.attempt.Stage != models.StageCollectingAmount {
		return f.attempt, ErrWrongStage
	}
	if !amount.IsPositive() {
		return f.reject(fieldError("amount", ErrInvalidAmount, "enter a valid amount"))
	}
	if f.deps.RequireSufficientFunds {
		if balance := f.ledger.Balance(); amount.GreaterThan(balance) {
			return f.reject(fieldError("amount", ErrInsufficientFunds, "insufficient balance, available %s", balance.StringFixed(2)))
		}
	}

	f.attempt.Amount = amount
	f.attempt.Error = ""
	f.attempt.Stage = models.StageCollectingAuthorization
	return f.attempt, nil
}

// Authorize checks the PIN and, when it matches, runs the execution step to
// resolution. Execution is not cancelled by ctx.
func (f *PaymentFlow) Authorize(ctx context.Context, pin string) (models.PaymentAttempt, error) {
	f.mu.Lock()
	if f.attempt.Stage != models.StageCollectingAuthorization {
		defer f.mu.Unlock()
		return f.attempt, ErrWrongStage
	}
	if !f.deps.PIN.Verify(pin) {
		defer f.mu.Unlock()
		if f.deps.Metrics != nil {
			f.deps.Metrics.PINRejections.Inc()
		}
		f.deps.Audit.LogPINRejected(f.ledger.SessionID(), f.attempt.ID)
		f.attempt.Error = "Please enter the correct wallet PIN"
		return f.attempt, ErrInvalidPIN
	}

	f.attempt.Error = ""
	f.attempt.Stage = models.StageExecuting
	req := ExecutionRequest{
		SessionID:    f.ledger.SessionID(),
		AttemptID:    f.attempt.ID,
		Channel:      f.channel,
		Category:     f.attempt.Category,
		Title:        f.attempt.Title,
		Counterparty: f.attempt.Counterparty,
		Amount:       f.attempt.Amount,
	}
	f.mu.Unlock()

	execCtx := context.WithoutCancel(ctx)
	start := time.Now()
	result, err := f.deps.Executor.Execute(execCtx, req)
	if f.deps.Metrics != nil {
		f.deps.Metrics.PaymentDuration.WithLabelValues(string(f.channel)).Observe(time.Since(start).Seconds())
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		return f.abandonExecution(err)
	}

	tx, ledger, err := f.record(execCtx, req, result)
	if err != nil {
		return f.abandonExecution(err)
	}

	f.attempt.Stage = models.StageResolved
	f.attempt.Result = &models.PaymentResult{
		Outcome:       tx.Outcome,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Balance:       ledger.Balance,
		Merchant:      f.attempt.Merchant,
		Message:       result.Message,
		ResolvedAt:    f.deps.Factory.Now(),
	}
	if tx.Outcome == models.OutcomeFailed && result.Outcome == models.OutcomeSuccess {
		f.attempt.Result.Message = "Insufficient balance"
	}

	if tx.Outcome == models.OutcomeSuccess {
		f.consumeMerchant(execCtx)
	}

	if f.deps.Metrics != nil {
		f.deps.Metrics.PaymentAttempts.WithLabelValues(string(f.channel), string(tx.Outcome)).Inc()
	}
	f.deps.Audit.LogSettlement(req.SessionID, tx.ID, string(f.channel), tx.Amount, string(tx.Outcome))
	f.deps.Log.WithFields(logrus.Fields{
		"session_id":     req.SessionID,
		"attempt_id":     req.AttemptID,
		"channel":        f.channel,
		"transaction_id": tx.ID,
		"outcome":        tx.Outcome,
	}).Info("Payment resolved")

	return f.attempt, nil
}

// record writes exactly one transaction for a verdict
func (f *PaymentFlow) record(ctx context.Context, req ExecutionRequest, result ExecutionResult) (models.Transaction, models.Ledger, error) {
	build := func(outcome models.Outcome) models.Transaction {
		if result.Reference != "" {
			return f.deps.Factory.WithID(result.Reference, models.Debit, req.Category, req.Title, req.Counterparty, req.Amount, outcome)
		}
		return f.deps.Factory.Create(models.Debit, req.Category, req.Title, req.Counterparty, req.Amount, outcome)
	}

	if result.Outcome != models.OutcomeSuccess {
		tx := build(models.OutcomeFailed)
		ledger, err := f.ledger.Commit(ctx, func(l *models.Ledger) error {
			prepend(l, tx)
			return nil
		})
		return tx, ledger, err
	}

	if result.Balance != nil {
		tx := build(models.OutcomeSuccess)
		ledger, err := f.ledger.Reconcile(ctx, *result.Balance, tx)
		return tx, ledger, err
	}

	var tx models.Transaction
	ledger, err := f.ledger.Commit(ctx, func(l *models.Ledger) error {
		outcome := models.OutcomeSuccess
		if f.deps.RequireSufficientFunds && req.Amount.GreaterThan(l.Balance) {
			outcome = models.OutcomeFailed
		}
		tx = build(outcome)
		return settle(l, tx)
	})
	return tx, ledger, err
}

// consumeMerchant spends a paid QR code. The payment is already recorded,
// so a failure here is only logged.
func (f *PaymentFlow) consumeMerchant(ctx context.Context) {
	if f.channel != models.ChannelQR || f.deps.Merchants == nil {
		return
	}
	if err := f.deps.Merchants.ConsumeMerchant(ctx, f.attempt.Target); err != nil {
		f.deps.Log.WithError(err).WithField("attempt_id", f.attempt.ID).Warn("Failed to consume QR code")
	}
}

// abandonExecution returns to authorization without recording anything
func (f *PaymentFlow) abandonExecution(err error) (models.PaymentAttempt, error) {
	f.attempt.Stage = models.StageCollectingAuthorization
	f.deps.Audit.LogError(f.ledger.SessionID(), f.attempt.ID, err)

	if errors.Is(err, ErrCollaboratorUnreachable) {
		f.attempt.Error = unreachableMessage
		f.deps.Log.WithError(err).WithField("attempt_id", f.attempt.ID).Warn("Payment collaborator unreachable")
		return f.attempt, ErrCollaboratorUnreachable
	}

	f.attempt.Error = "The payment could not be recorded. Please try again."
	f.deps.Log.WithError(err).WithField("attempt_id", f.attempt.ID).Error("Payment execution failed")
	return f.attempt, fmt.Errorf("execute payment: %w", err)
}

// GoBack re-enters the previous collecting stage
func (f *PaymentFlow) GoBack() (models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.attempt.Stage {
	case models.StageCollectingAmount:
		f.attempt.Stage = models.StageCollectingTarget
	case models.StageCollectingAuthorization:
		f.attempt.Stage = models.StageCollectingAmount
	default:
		return f.attempt, ErrWrongStage
	}
	f.attempt.Error = ""
	return f.attempt, nil
}

// Repeat starts a fresh attempt on the same channel once resolved
func (f *PaymentFlow) Repeat() (models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.attempt.Stage != models.StageResolved {
		return f.attempt, ErrWrongStage
	}
	f.attempt = f.freshAttempt()
	return f.attempt, nil
}

func (f *PaymentFlow) reject(err *FieldError) (models.PaymentAttempt, error) {
	f.attempt.Error = err.Message
	return f.attempt, err
}

// LedgerProvider hands out the ledger of a session
type LedgerProvider interface {
	Ledger(ctx context.Context, sessionID string) (*LedgerStore, error)
}

// FlowManager keeps at most one payment flow per session
type FlowManager struct {
	deps    *FlowDeps
	ledgers LedgerProvider

	mu    sync.Mutex
	flows map[string]*PaymentFlow
}

func NewFlowManager(deps *FlowDeps, ledgers LedgerProvider) *FlowManager {
	return &FlowManager{deps: deps, ledgers: ledgers, flows: make(map[string]*PaymentFlow)}
}

// Begin replaces the session's flow with a new one. A flow that is
// executing cannot be replaced.
func (m *FlowManager) Begin(ctx context.Context, sessionID string, channel models.Channel, billType string) (*PaymentFlow, error) {
	ledger, err := m.ledgers.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	flow, err := NewPaymentFlow(m.deps, ledger, channel, billType)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.flows[sessionID]; ok && cur.Executing() {
		return nil, ErrFlowBusy
	}
	m.flows[sessionID] = flow
	return flow, nil
}

// Current returns the session's flow
func (m *FlowManager) Current(sessionID string) (*PaymentFlow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[sessionID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

// Discard exits the session's flow. Missing flows are not an error.
func (m *FlowManager) Discard(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.flows[sessionID]; ok {
		if cur.Executing() {
			return ErrFlowBusy
		}
		delete(m.flows, sessionID)
	}
	return nil
}
