package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ruralpay/wallet/internal/middleware"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1_048_576

// decodeBody reads a single JSON object into dst. It writes the error
// response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sessionID returns the authenticated session or writes a 401
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.SessionID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	}
	return id, ok
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var fieldErr *services.FieldError
	switch {
	case errors.Is(err, services.ErrInvalidPIN), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrWrongStage), errors.Is(err, services.ErrFlowBusy):
		return http.StatusConflict
	case errors.Is(err, services.ErrFlowNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrCollaboratorUnreachable):
		return http.StatusBadGateway
	case errors.As(err, &fieldErr),
		errors.Is(err, services.ErrInvalidQR),
		errors.Is(err, services.ErrInvalidChannel),
		errors.Is(err, services.ErrInvalidBillType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// sendServiceError writes err with its mapped status. message overrides the
// error text when set. Unmapped errors are logged and hidden.
func sendServiceError(w http.ResponseWriter, log *logrus.Entry, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
		services.SendErrorResponse(w, "Internal server error", status, nil)
		return
	}

	if message == "" {
		var fieldErr *services.FieldError
		if errors.As(err, &fieldErr) {
			message = fieldErr.Message
		} else {
			message = err.Error()
		}
	}
	services.SendErrorResponse(w, message, status, err)
}
