package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/mallofhookah/internal/errors"
)

func validationError(t *testing.T) error {
	t.Helper()
	err := validator.New().Struct(struct {
		Email string `validate:"required,email"`
	}{})
	require.Error(t, err)
	return err
}

func TestStatusCodeFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "validation", err: validationError(t), expected: http.StatusBadRequest},
		{name: "wrapped validation", err: fmt.Errorf("failed validating body with error=%w", validationError(t)), expected: http.StatusBadRequest},
		{name: "missing authorization", err: inErrors.ErrEmptyAuth, expected: http.StatusUnauthorized},
		{name: "invalid token", err: fmt.Errorf("failed verifying token with error=%w", inErrors.ErrTokenInvalid), expected: http.StatusUnauthorized},
		{name: "invalid credentials", err: inErrors.ErrInvalidCredentials, expected: http.StatusUnauthorized},
		{name: "unauthenticated", err: fmt.Errorf("failed placing order with error=%w", inErrors.ErrUnauthenticated), expected: http.StatusUnauthorized},
		{name: "forbidden", err: inErrors.ErrForbidden, expected: http.StatusForbidden},
		{name: "not found", err: fmt.Errorf("failed finding order with error=%w", inErrors.ErrNotFound), expected: http.StatusNotFound},
		{name: "checkout not found", err: inErrors.ErrCheckoutNotFound, expected: http.StatusNotFound},
		{name: "product unavailable", err: inErrors.ErrProductUnavailable, expected: http.StatusNotFound},
		{name: "empty cart", err: fmt.Errorf("failed Start with error=%w", inErrors.ErrEmptyCart), expected: http.StatusConflict},
		{name: "illegal transition", err: inErrors.ErrIllegalTransition, expected: http.StatusConflict},
		{name: "submission in progress", err: inErrors.ErrSubmissionInProgress, expected: http.StatusConflict},
		{name: "user exists", err: inErrors.ErrUserAlreadyExists, expected: http.StatusConflict},
		{name: "create order", err: fmt.Errorf("%w: insert or update on table violates foreign key", inErrors.ErrCreateOrder), expected: http.StatusBadGateway},
		{name: "missing order id", err: inErrors.ErrMissingOrderID, expected: http.StatusBadGateway},
		{name: "partial order over canceled context", err: fmt.Errorf("%w: %w", inErrors.ErrPartialOrder, context.Canceled), expected: http.StatusBadGateway},
		{name: "canceled", err: context.Canceled, expected: 499},
		{name: "unknown", err: errors.New("connection reset by peer"), expected: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusCodeFromError(tt.err))
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		data     map[string]interface{}
		expected int
		hasData  bool
	}{
		{name: "without data", err: inErrors.ErrEmptyCart, expected: http.StatusConflict},
		{
			name:     "with data",
			err:      inErrors.ErrPartialOrder,
			data:     map[string]interface{}{"needsReview": true},
			expected: http.StatusBadGateway,
			hasData:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteErrorResponse(context.Background(), w, tt.err, tt.data)

			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, VALUE_HEADER_APP_JSON, w.Header().Get(KEY_HEADER_CONTENT_TYPE))
			body := map[string]interface{}{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, "failed", body["status"])
			assert.Equal(t, float64(tt.expected), body["statusCode"])
			assert.Equal(t, tt.err.Error(), body["message"])
			_, ok := body["data"]
			assert.Equal(t, tt.hasData, ok)
		})
	}
}
