package handlers

import (
	"net/http"
	"strconv"

	"github.com/ruralpay/wallet/internal/client"
	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AddMoneyRequest credits the wallet
// @Description Add money request
type AddMoneyRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"2500"`
	Method string          `json:"method" validate:"required,oneof=card bank upi" example:"upi"`
}

// SendMoneyRequest debits the wallet after a balance check
// @Description Send money request
type SendMoneyRequest struct {
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"500"`
	Recipient string          `json:"recipient" validate:"required,max=100" example:"john_doe"`
	Category  string          `json:"category,omitempty" validate:"omitempty,oneof=money_sent bill_payment qr_payment food_dining" example:"money_sent"`
	Title     string          `json:"title,omitempty" validate:"max=100" example:"Money Sent"`
}

// UpdateBudgetRequest changes budget ceilings. Omitted fields keep their value.
// @Description Budget update request
type UpdateBudgetRequest struct {
	MonthlyBudget *decimal.Decimal           `json:"monthlyBudget,omitempty" swaggertype:"string" example:"15000"`
	Categories    map[string]decimal.Decimal `json:"categories,omitempty" swaggertype:"object,string"`
}

type WalletHandler struct {
	wallets   *services.WalletService
	dashboard *services.DashboardService
	history   *services.HistoryService
	budgets   *services.BudgetService
	validator *services.ValidationHelper
	log       *logrus.Entry
}

func NewWalletHandler(wallets *services.WalletService, dashboard *services.DashboardService, history *services.HistoryService, budgets *services.BudgetService, log *logrus.Entry) *WalletHandler {
	return &WalletHandler{
		wallets:   wallets,
		dashboard: dashboard,
		history:   history,
		budgets:   budgets,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// Balance returns the wallet balance
// @Summary Wallet balance
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} client.BalanceResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	balance, err := h.wallets.Balance(r.Context(), sid)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, client.BalanceResponse{Balance: balance})
}

// AddMoney credits the wallet through a funding method
// @Summary Add money
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddMoneyRequest true "Add money request"
// @Success 200 {object} client.MoneyResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/add-money [post]
func (h *WalletHandler) AddMoney(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req AddMoneyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, ledger, err := h.wallets.AddMoney(r.Context(), sid, req.Amount, req.Method)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}

	writeJSON(w, http.StatusOK, client.MoneyResponse{
		Success:     true,
		Message:     "Money added successfully",
		NewBalance:  &ledger.Balance,
		Transaction: tx,
	})
}

// SendMoney debits the wallet when the balance covers the amount
// @Summary Send money
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendMoneyRequest true "Send money request"
// @Success 200 {object} client.MoneyResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/send-money [post]
func (h *WalletHandler) SendMoney(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req SendMoneyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, ledger, err := h.wallets.SendMoney(r.Context(), sid, services.SendMoneyInput{
		Amount:    req.Amount,
		Recipient: req.Recipient,
		Category:  models.Category(req.Category),
		Title:     req.Title,
	})
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}

	writeJSON(w, http.StatusOK, client.MoneyResponse{
		Success:     true,
		Message:     "Money sent successfully",
		NewBalance:  &ledger.Balance,
		Transaction: tx,
	})
}

// Transactions lists every transaction, newest first
// @Summary Transactions
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} client.TransactionsResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/transactions [get]
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	txs, err := h.wallets.Transactions(r.Context(), sid)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, client.TransactionsResponse{Transactions: txs})
}

// Dashboard returns the summary screen
// @Summary Dashboard
// @Description Balance, three most recent transactions and quick actions
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param hideBalance query bool false "Mask the balance in this response"
// @Success 200 {object} services.Dashboard
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/dashboard [get]
func (h *WalletHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	hide := false
	if v := r.URL.Query().Get("hideBalance"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			services.SendErrorResponse(w, "hideBalance must be true or false", http.StatusBadRequest, nil)
			return
		}
		hide = parsed
	}

	d, err := h.dashboard.Build(r.Context(), sid, hide)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// History searches and groups the transaction history
// @Summary Transaction history
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param q query string false "Matches title, counterparty or id"
// @Param status query string false "all, success or failed"
// @Param type query string false "all, credit or debit"
// @Success 200 {object} services.History
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/history [get]
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	q := services.HistoryQuery{
		Query:     r.URL.Query().Get("q"),
		Status:    r.URL.Query().Get("status"),
		Direction: r.URL.Query().Get("type"),
	}
	if err := h.validator.ValidateStruct(&q); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	hist, err := h.history.Query(r.Context(), sid, q)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// Budget returns spending against the monthly and category budgets
// @Summary Budget
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Budget
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/budget [get]
func (h *WalletHandler) Budget(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	b, err := h.budgets.Get(r.Context(), sid)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBudget changes the budget ceilings
// @Summary Update budget
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateBudgetRequest true "Budget update"
// @Success 200 {object} services.Budget
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/budget [put]
func (h *WalletHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req UpdateBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	b, err := h.budgets.Update(r.Context(), sid, services.BudgetUpdate{
		MonthlyBudget: req.MonthlyBudget,
		Categories:    req.Categories,
	})
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, b)
}
