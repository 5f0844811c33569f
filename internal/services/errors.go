package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTarget           = errors.New("invalid target")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFunds       = errors.New("insufficient balance")
	ErrInvalidPIN              = errors.New("incorrect PIN")
	ErrWrongStage              = errors.New("operation not allowed at this stage")
	ErrFlowBusy                = errors.New("a payment is being processed")
	ErrFlowNotFound            = errors.New("no active payment flow")
	ErrCollaboratorUnreachable = errors.New("unable to reach the payment service")
	ErrInvalidChannel          = errors.New("unknown payment channel")
	ErrInvalidBillType         = errors.New("unknown bill type")
	ErrInvalidMethod           = errors.New("unknown funding method")
	ErrInvalidQR               = errors.New("invalid or expired QR code")
	ErrInvalidBudget           = errors.New("invalid budget")
	ErrInvalidToken            = errors.New("invalid or expired token")
)

// FieldError is a recoverable input error reported next to the offending field
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...), Err: err}
}
