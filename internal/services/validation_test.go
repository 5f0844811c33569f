package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSessionRequest struct {
	FullName string `validate:"required,min=2"`
	Username string `validate:"required,alphanum,min=3"`
	PIN      string `validate:"required,pin"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := testSessionRequest{FullName: "Asha Rao", Username: "asha", PIN: "1234"}
		assert.NoError(t, vh.ValidateStruct(&valid))
	})

	t.Run("invalid struct", func(t *testing.T) {
		invalid := testSessionRequest{
			FullName: "A",     // Too short
			Username: "a-b",   // Not alphanumeric
			PIN:      "12345", // Not four digits
		}

		err := vh.ValidateStruct(&invalid)
		require.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, validationErrors, 3)
	})

	t.Run("pin tag", func(t *testing.T) {
		invalid := testSessionRequest{FullName: "Asha Rao", Username: "asha", PIN: "12a4"}

		validationErrors, ok := vh.ValidateStruct(&invalid).(validator.ValidationErrors)
		require.True(t, ok)
		require.Len(t, validationErrors, 1)
		assert.Equal(t, "PIN", validationErrors[0].Field())
		assert.Equal(t, "pin", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without details", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("validator errors become details", func(t *testing.T) {
		validationErr := NewValidationHelper().ValidateStruct(&testSessionRequest{FullName: "A"})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "FullName")
		assert.Contains(t, response.Details, "Username")
		assert.Contains(t, response.Details, "PIN")
	})

	t.Run("field errors become details", func(t *testing.T) {
		err := fmt.Errorf("submit: %w", fieldError("amount", ErrInvalidAmount, "enter a valid amount"))

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, err)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, map[string]string{"amount": "enter a valid amount"}, response.Details)
	})

	t.Run("plain errors carry no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, ErrInvalidToken)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, response.Details)
	})
}
