package handlers

import (
	"net/http"

	"github.com/ruralpay/wallet/internal/middleware"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/sirupsen/logrus"
)

// CreateSessionRequest starts a wallet session
// @Description Session creation request
type CreateSessionRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100" example:"Asha Rao"`
	Username string `json:"username" validate:"required,min=3,max=50" example:"asha"`
}

type SessionHandler struct {
	sessions  *services.SessionService
	validator *services.ValidationHelper
	log       *logrus.Entry
}

func NewSessionHandler(sessions *services.SessionService, log *logrus.Entry) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// Create starts a session with a freshly seeded wallet
// @Summary Create session
// @Description Create a wallet session and return its bearer token
// @Tags Session
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Session request"
// @Success 201 {object} services.Session
// @Failure 400 {object} services.ErrorResponse
// @Router /session [post]
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), req.FullName, req.Username)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Me returns the session profile
// @Summary Current user
// @Description Profile of the session owner with the current balance
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} services.ErrorResponse
// @Router /session [get]
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	user, err := h.sessions.User(r.Context(), sid)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout clears the wallet and revokes the token
// @Summary Logout
// @Description Clear the session wallet, profile and active payment flow
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool}
// @Failure 401 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /session/logout [post]
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Logout(r.Context(), sid, middleware.Token(r.Context())); err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
