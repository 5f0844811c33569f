// Package client is a JSON client for the wallet HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/shopspring/decimal"
)

const (
	apiPrefix        = "/api/v1"
	maxErrorBodySize = 64 << 10
	maxBodySize      = 8 << 20
)

// APIError is a response the server answered with a non-2xx status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// TransportError means the server could not be reached or its reply was unreadable
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "wallet api unreachable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err came from the transport rather than the server
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// WalletClient calls the wallet API with a bearer token
type WalletClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewWalletClient(cfg Config) *WalletClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WalletClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance" swaggertype:"string"`
}

type AddMoneyRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
	Method string          `json:"method"`
}

type SendMoneyRequest struct {
	Amount    decimal.Decimal `json:"amount" swaggertype:"string"`
	Recipient string          `json:"recipient"`
	Category  string          `json:"category,omitempty"`
	Title     string          `json:"title,omitempty"`
}

// MoneyResponse is returned by add-money and send-money
type MoneyResponse struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	NewBalance  *decimal.Decimal   `json:"newBalance,omitempty" swaggertype:"string"`
	Transaction models.Transaction `json:"transaction"`
}

type TransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

func (c *WalletClient) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var resp BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/wallet/balance", nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Balance, nil
}

func (c *WalletClient) AddMoney(ctx context.Context, req AddMoneyRequest) (*MoneyResponse, error) {
	var resp MoneyResponse
	if err := c.do(ctx, http.MethodPost, "/wallet/add-money", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *WalletClient) SendMoney(ctx context.Context, req SendMoneyRequest) (*MoneyResponse, error) {
	var resp MoneyResponse
	if err := c.do(ctx, http.MethodPost, "/wallet/send-money", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *WalletClient) Transactions(ctx context.Context) ([]models.Transaction, error) {
	var resp TransactionsResponse
	if err := c.do(ctx, http.MethodGet, "/wallet/transactions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *WalletClient) do(ctx context.Context, method, path string, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if target == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(target); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts the message of an {"error": "..."} body, else the raw text
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
