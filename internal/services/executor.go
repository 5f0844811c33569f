package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ruralpay/wallet/internal/client"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/shopspring/decimal"
)

// ExecutionRequest is what the executing stage hands to an Executor
type ExecutionRequest struct {
	SessionID    string
	AttemptID    string
	Channel      models.Channel
	Category     models.Category
	Title        string
	Counterparty string
	Amount       decimal.Decimal
}

// ExecutionResult is the collaborator's verdict on one attempt
type ExecutionResult struct {
	Outcome   models.Outcome
	Reference string           // server-issued transaction id, if any
	Balance   *decimal.Decimal // server-reported balance, if any
	Message   string
}

// Executor performs the money movement for an authorized attempt.
// ErrCollaboratorUnreachable means no verdict was obtained.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}

// SimulatedExecutor waits a fixed delay and then succeeds with a fixed probability
type SimulatedExecutor struct {
	delay       time.Duration
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedExecutor(delay time.Duration, successRate float64, rng *rand.Rand) *SimulatedExecutor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SimulatedExecutor{delay: delay, successRate: successRate, rng: rng}
}

func (e *SimulatedExecutor) Execute(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	if e.delay > 0 {
		t := time.NewTimer(e.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ExecutionResult{}, ctx.Err()
		}
	}

	e.mu.Lock()
	roll := e.rng.Float64()
	e.mu.Unlock()

	if roll < e.successRate {
		return ExecutionResult{Outcome: models.OutcomeSuccess, Message: "Payment successful"}, nil
	}
	return ExecutionResult{Outcome: models.OutcomeFailed, Message: "Payment failed. Please try again."}, nil
}

// MoneySender is the part of the wallet API the remote executor needs
type MoneySender interface {
	SendMoney(ctx context.Context, req client.SendMoneyRequest) (*client.MoneyResponse, error)
}

// RemoteExecutor delegates execution to a networked wallet API
type RemoteExecutor struct {
	api MoneySender
}

func NewRemoteExecutor(api MoneySender) *RemoteExecutor {
	return &RemoteExecutor{api: api}
}

func (e *RemoteExecutor) Execute(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	resp, err := e.api.SendMoney(ctx, client.SendMoneyRequest{
		Amount:    req.Amount,
		Recipient: req.Counterparty,
		Category:  string(req.Category),
		Title:     req.Title,
	})

	var apiErr *client.APIError
	switch {
	case err == nil:
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return ExecutionResult{Outcome: models.OutcomeFailed, Message: apiErr.Message}, nil
	default:
		return ExecutionResult{}, errors.Join(ErrCollaboratorUnreachable, err)
	}

	if !resp.Success {
		return ExecutionResult{Outcome: models.OutcomeFailed, Message: resp.Message}, nil
	}

	// Without a reported balance the debit is applied locally
	var balance *decimal.Decimal
	if resp.NewBalance != nil {
		b := *resp.NewBalance
		balance = &b
	}
	return ExecutionResult{
		Outcome:   models.OutcomeSuccess,
		Reference: resp.Transaction.ID,
		Balance:   balance,
		Message:   resp.Message,
	}, nil
}
