package handlers

import (
	"net/http"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BeginFlowRequest opens a payment flow on a channel
// @Description Payment flow request
type BeginFlowRequest struct {
	Channel  string `json:"channel" validate:"required,oneof=transfer bill qr" example:"transfer"`
	BillType string `json:"billType,omitempty" validate:"required_if=Channel bill" example:"electricity"`
}

// TargetRequest carries a recipient, bill reference or scanned QR payload
// @Description Flow target
type TargetRequest struct {
	Target string `json:"target" validate:"max=2048" example:"john_doe"`
}

// AmountRequest carries the payment amount
// @Description Flow amount
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"500"`
}

// AuthorizeRequest carries the wallet PIN
// @Description Flow authorization
type AuthorizeRequest struct {
	PIN string `json:"pin" validate:"required,pin" example:"1234"`
}

// FlowResponse wraps the attempt state after every flow operation
type FlowResponse struct {
	Success bool                  `json:"success"`
	Attempt models.PaymentAttempt `json:"attempt"`
}

type FlowHandler struct {
	flows     *services.FlowManager
	validator *services.ValidationHelper
	log       *logrus.Entry
}

func NewFlowHandler(flows *services.FlowManager, log *logrus.Entry) *FlowHandler {
	return &FlowHandler{
		flows:     flows,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// respond writes the attempt, or the error with the attempt's inline message
func (h *FlowHandler) respond(w http.ResponseWriter, attempt models.PaymentAttempt, err error) {
	if err != nil {
		sendServiceError(w, h.log, err, attempt.Error)
		return
	}
	writeJSON(w, http.StatusOK, FlowResponse{Success: true, Attempt: attempt})
}

// current resolves the session's flow or writes the error
func (h *FlowHandler) current(w http.ResponseWriter, r *http.Request) (*services.PaymentFlow, bool) {
	sid, ok := sessionID(w, r)
	if !ok {
		return nil, false
	}
	flow, err := h.flows.Current(sid)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return nil, false
	}
	return flow, true
}

// Begin opens a new payment flow, replacing any idle one
// @Summary Begin payment
// @Description Start a transfer, bill or QR payment at the target stage
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BeginFlowRequest true "Channel"
// @Success 201 {object} FlowResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /flows [post]
func (h *FlowHandler) Begin(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req BeginFlowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	flow, err := h.flows.Begin(r.Context(), sid, models.Channel(req.Channel), req.BillType)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, FlowResponse{Success: true, Attempt: flow.Snapshot()})
}

// Current returns the active attempt
// @Summary Current payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} FlowResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /flows/current [get]
func (h *FlowHandler) Current(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.current(w, r)
	if !ok {
		return
	}
	h.respond(w, flow.Snapshot(), nil)
}

// Discard exits the active flow
// @Summary Exit payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool}
// @Failure 409 {object} services.ErrorResponse
// @Router /flows/current [delete]
func (h *FlowHandler) Discard(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.flows.Discard(sid); err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// SubmitTarget validates the recipient, bill reference or QR payload
// @Summary Submit target
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TargetRequest true "Target"
// @Success 200 {object} FlowResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /flows/current/target [post]
func (h *FlowHandler) SubmitTarget(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.current(w, r)
	if !ok {
		return
	}

	var req TargetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	attempt, err := flow.SubmitTarget(r.Context(), req.Target)
	h.respond(w, attempt, err)
}

// SubmitAmount validates the amount
// @Summary Submit amount
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AmountRequest true "Amount"
// @Success 200 {object} FlowResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /flows/current/amount [post]
func (h *FlowHandler) SubmitAmount(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.current(w, r)
	if !ok {
		return
	}

	var req AmountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	attempt, err := flow.SubmitAmount(req.Amount)
	h.respond(w, attempt, err)
}

// Authorize checks the PIN and executes the payment
// @Summary Authorize payment
// @Description Verify the wallet PIN, execute and record the payment. Blocks until the payment resolves.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AuthorizeRequest true "PIN"
// @Success 200 {object} FlowResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /flows/current/authorize [post]
func (h *FlowHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.current(w, r)
	if !ok {
		return
	}

	var req AuthorizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	attempt, err := flow.Authorize(r.Context(), req.PIN)
	h.respond(w, attempt, err)
}

// Back returns to the previous collecting stage
// @Summary Previous step
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} FlowResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /flows/current/back [post]
func (h *FlowHandler) Back(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.current(w, r)
	if !ok {
		return
	}
	attempt, err := flow.GoBack()
	h.respond(w, attempt, err)
}

// Repeat starts a new attempt on the same channel after a result
// @Summary Pay again
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} FlowResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /flows/current/repeat [post]
func (h *FlowHandler) Repeat(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.current(w, r)
	if !ok {
		return
	}
	attempt, err := flow.Repeat()
	h.respond(w, attempt, err)
}
