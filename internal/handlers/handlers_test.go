package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruralpay/wallet/internal/audit"
	"github.com/ruralpay/wallet/internal/client"
	"github.com/ruralpay/wallet/internal/logger"
	"github.com/ruralpay/wallet/internal/metrics"
	"github.com/ruralpay/wallet/internal/middleware"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 10, 14, 18, 45, 0, 0, time.UTC)

type testServer struct {
	router http.Handler
	flows  *services.FlowManager
}

func newTestServer(t *testing.T, exec services.Executor) *testServer {
	t.Helper()
	log := logger.Discard()
	m := metrics.New()
	auditLog := audit.NewLogger(log.Component("audit"))
	kv := storage.NewMemoryStore()

	factory := services.NewTransactionFactory(func() time.Time { return testNow }, nil)
	seed := services.SeedConfig{StartingBalance: decimal.RequireFromString("12547.50"), DemoHistory: true}
	wallets := services.NewWalletService(kv, seed, factory, auditLog, m, log.Component("wallet"))

	pin, err := services.NewPINVerifier("1234")
	require.NoError(t, err)
	qr := services.NewQRService(nil, time.Minute, 128)
	if exec == nil {
		exec = services.NewSimulatedExecutor(0, 1, nil)
	}
	flows := services.NewFlowManager(&services.FlowDeps{
		Factory:   factory,
		Executor:  exec,
		PIN:       pin,
		Merchants: qr,
		Audit:     auditLog,
		Metrics:   m,
		Log:       log.Component("payment"),
	}, wallets)
	sessions := services.NewSessionService(kv, nil, wallets, flows, "test-secret", time.Hour, auditLog, log.Component("session"))

	api := API{
		Sessions: NewSessionHandler(sessions, log.Component("http")),
		Wallet: NewWalletHandler(wallets,
			services.NewDashboardService(wallets),
			services.NewHistoryService(wallets, func() time.Time { return testNow }),
			services.NewBudgetService(kv, wallets, decimal.NewFromInt(15000), log.Component("budget")),
			log.Component("http")),
		Flows:   NewFlowHandler(flows, log.Component("http")),
		QR:      NewQRHandler(qr, log.Component("http")),
		Catalog: NewCatalogHandler(services.NewCatalogService(t.TempDir())),
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		RegisterRoutes(r, api, middleware.Auth(sessions, log.Component("auth")))
	})
	return &testServer{router: r, flows: flows}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/session", "", `{"fullName":"Asha Rao","username":"asha"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var session services.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSession(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/session", "", `{"fullName":"A","username":"asha"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[services.ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", errResp.Error)
	assert.Contains(t, errResp.Details, "FullName")

	rec = s.do(t, http.MethodGet, "/wallet/balance", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := s.login(t)
	rec = s.do(t, http.MethodGet, "/session", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode[models.User](t, rec)
	assert.Equal(t, "asha", user.Username)
	assert.True(t, user.Balance.Equal(decimal.RequireFromString("12547.50")))

	rec = s.do(t, http.MethodPost, "/session/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/wallet/balance", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestBodyRules(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", `{"amount":"10","method":"upi","extra":1}`, "Invalid request body"},
		{"two objects", `{"amount":"10","method":"upi"}{}`, "Request body must only contain a single JSON object"},
		{"bad method", `{"amount":"10","method":"cash"}`, "Validation failed"},
		{"zero amount", `{"amount":"0","method":"upi"}`, "enter a valid amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/wallet/add-money", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[services.ErrorResponse](t, rec).Error)
		})
	}
}

func TestWalletEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/wallet/dashboard", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[services.Dashboard](t, rec)
	assert.Equal(t, "12547.50", d.Balance)
	assert.Len(t, d.Recent, 3)

	rec = s.do(t, http.MethodGet, "/wallet/dashboard?hideBalance=true", token, "")
	assert.Equal(t, "••••••", decode[services.Dashboard](t, rec).Balance)
	rec = s.do(t, http.MethodGet, "/wallet/dashboard?hideBalance=maybe", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/wallet/add-money", token, `{"amount":2500,"method":"card"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	money := decode[client.MoneyResponse](t, rec)
	assert.True(t, money.Success)
	require.NotNil(t, money.NewBalance)
	assert.True(t, money.NewBalance.Equal(decimal.RequireFromString("15047.50")))
	assert.Equal(t, "Via Credit/Debit Card", money.Transaction.Counterparty)

	rec = s.do(t, http.MethodPost, "/wallet/send-money", token, `{"amount":"100000","recipient":"john_doe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[services.ErrorResponse](t, rec)
	assert.Contains(t, errResp.Error, "insufficient balance")
	assert.Contains(t, errResp.Details, "amount")

	rec = s.do(t, http.MethodPost, "/wallet/send-money", token, `{"amount":"47.50","recipient":"john_doe"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(decode[client.MoneyResponse](t, rec).Transaction.ID, "REF"))

	rec = s.do(t, http.MethodGet, "/wallet/balance", token, "")
	assert.True(t, decode[client.BalanceResponse](t, rec).Balance.Equal(decimal.NewFromInt(15000)))

	rec = s.do(t, http.MethodGet, "/wallet/transactions", token, "")
	assert.Len(t, decode[client.TransactionsResponse](t, rec).Transactions, 5)

	rec = s.do(t, http.MethodGet, "/wallet/history?type=credit", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[services.History](t, rec)
	assert.Equal(t, 2, hist.Count)
	assert.True(t, hist.TotalCredit.Equal(decimal.NewFromInt(7500)))

	rec = s.do(t, http.MethodGet, "/wallet/history?status=pending", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgetEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/wallet/budget", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode[services.Budget](t, rec)
	assert.True(t, b.TotalSpent.Equal(decimal.NewFromInt(4000)))
	assert.True(t, b.Categories[0].Spent.Equal(decimal.NewFromInt(1200)))

	rec = s.do(t, http.MethodPut, "/wallet/budget", token, `{"monthlyBudget":"8000","categories":{"Shopping":"500"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	b = decode[services.Budget](t, rec)
	assert.True(t, b.MonthlyBudget.Equal(decimal.NewFromInt(8000)))
	assert.Equal(t, 50.0, b.Percentage)

	rec = s.do(t, http.MethodPut, "/wallet/budget", token, `{"monthlyBudget":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/flows/current", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows", token, `{"channel":"transfer"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.StageCollectingTarget, decode[FlowResponse](t, rec).Attempt.Stage)

	rec = s.do(t, http.MethodPost, "/flows/current/amount", token, `{"amount":"500"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows/current/target", token, `{"target":"jo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[services.ErrorResponse](t, rec).Details, "target")

	rec = s.do(t, http.MethodPost, "/flows/current/target", token, `{"target":"john_doe"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows/current/amount", token, `{"amount":500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StageCollectingAuthorization, decode[FlowResponse](t, rec).Attempt.Stage)

	rec = s.do(t, http.MethodPost, "/flows/current/authorize", token, `{"pin":"12a4"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows/current/authorize", token, `{"pin":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please enter the correct wallet PIN", decode[services.ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/flows/current/authorize", token, `{"pin":"1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	attempt := decode[FlowResponse](t, rec).Attempt
	assert.Equal(t, models.StageResolved, attempt.Stage)
	require.NotNil(t, attempt.Result)
	assert.Equal(t, models.OutcomeSuccess, attempt.Result.Outcome)
	assert.True(t, attempt.Result.Balance.Equal(decimal.RequireFromString("12047.50")))

	rec = s.do(t, http.MethodGet, "/wallet/balance", token, "")
	assert.True(t, decode[client.BalanceResponse](t, rec).Balance.Equal(decimal.RequireFromString("12047.50")))

	rec = s.do(t, http.MethodPost, "/flows/current/back", token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows/current/repeat", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StageCollectingTarget, decode[FlowResponse](t, rec).Attempt.Stage)

	rec = s.do(t, http.MethodDelete, "/flows/current", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/flows/current", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillFlowRequiresBillType(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t)

	rec := s.do(t, http.MethodPost, "/flows", token, `{"channel":"bill"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows", token, `{"channel":"bill","billType":"water"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows", token, `{"channel":"bill","billType":"gas"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Gas Bill", decode[FlowResponse](t, rec).Attempt.Title)
}

func TestQRFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t)

	rec := s.do(t, http.MethodPost, "/qr/generate", token, `{"name":"Coffee Shop Express","upiId":"coffeeshop@paytm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	generated := decode[map[string]any](t, rec)
	payload, _ := generated["qrCode"].(string)
	require.NotEmpty(t, payload)
	assert.NotEmpty(t, generated["qrImage"])

	rec = s.do(t, http.MethodPost, "/qr/process", token, `{"qrData":"`+payload+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/qr/process", token, `{"qrData":"garbage"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/flows", token, `{"channel":"qr"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/flows/current/target", token, `{"target":"`+payload+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Coffee Shop Express", decode[FlowResponse](t, rec).Attempt.Counterparty)
}

func TestCatalogIsPublic(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/catalog", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[services.Catalog](t, rec)
	assert.Len(t, c.BillTypes, 4)
	assert.NotEmpty(t, c.Glyphs)
}

// The remote executor drives a second wallet API through the client
func TestRemoteExecutionAgainstWalletAPI(t *testing.T) {
	upstream := newTestServer(t, nil)
	upstreamToken := upstream.login(t)
	srv := httptest.NewServer(upstream.router)
	defer srv.Close()

	api := client.NewWalletClient(client.Config{BaseURL: srv.URL, Token: upstreamToken, Timeout: 5 * time.Second})
	s := newTestServer(t, services.NewRemoteExecutor(api))
	token := s.login(t)

	s.do(t, http.MethodPost, "/flows", token, `{"channel":"transfer"}`)
	s.do(t, http.MethodPost, "/flows/current/target", token, `{"target":"john_doe"}`)
	s.do(t, http.MethodPost, "/flows/current/amount", token, `{"amount":"500"}`)
	rec := s.do(t, http.MethodPost, "/flows/current/authorize", token, `{"pin":"1234"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	attempt := decode[FlowResponse](t, rec).Attempt
	assert.Equal(t, models.OutcomeSuccess, attempt.Result.Outcome)
	assert.True(t, strings.HasPrefix(attempt.Result.TransactionID, "REF"))

	rec = upstream.do(t, http.MethodGet, "/wallet/balance", upstreamToken, "")
	assert.True(t, decode[client.BalanceResponse](t, rec).Balance.Equal(decimal.RequireFromString("12047.50")))

	// An over-balance payment is a failed verdict from upstream, recorded locally
	s.do(t, http.MethodPost, "/flows/current/repeat", token, "")
	s.do(t, http.MethodPost, "/flows/current/target", token, `{"target":"john_doe"}`)
	s.do(t, http.MethodPost, "/flows/current/amount", token, `{"amount":"999999"}`)
	rec = s.do(t, http.MethodPost, "/flows/current/authorize", token, `{"pin":"1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OutcomeFailed, decode[FlowResponse](t, rec).Attempt.Result.Outcome)

	// Upstream down is unreachable and records nothing
	srv.Close()
	s.do(t, http.MethodPost, "/flows/current/repeat", token, "")
	s.do(t, http.MethodPost, "/flows/current/target", token, `{"target":"john_doe"}`)
	s.do(t, http.MethodPost, "/flows/current/amount", token, `{"amount":"1"}`)
	rec = s.do(t, http.MethodPost, "/flows/current/authorize", token, `{"pin":"1234"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = s.do(t, http.MethodGet, "/wallet/transactions", token, "")
	assert.Len(t, decode[client.TransactionsResponse](t, rec).Transactions, 5)
}
