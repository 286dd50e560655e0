package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
)

func WriteJsonResponse(
	c context.Context,
	w http.ResponseWriter,
	header map[string]string,
	body map[string]interface{},
) {
	c, span := otel.Tracer.Start(c, "WriteJsonResponse")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "WriteJsonResponse").Logger()

	w.Header().Add(KEY_HEADER_CONTENT_TYPE, VALUE_HEADER_APP_JSON)
	for k, v := range header {
		w.Header().Add(k, v)
	}

	if v, ok := body["statusCode"]; ok {
		w.WriteHeader(v.(int))
	}

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
}

// WriteErrorResponse writes the failed envelope with a status derived from err.
func WriteErrorResponse(c context.Context, w http.ResponseWriter, err error, data map[string]interface{}) {
	body := map[string]interface{}{
		"status":     "failed",
		"statusCode": StatusCodeFromError(err),
		"message":    err.Error(),
	}
	if data != nil {
		body["data"] = data
	}
	WriteJsonResponse(c, w, map[string]string{}, body)
}

func StatusCodeFromError(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, inErrors.ErrEmptyAuth),
		errors.Is(err, inErrors.ErrTokenInvalid),
		errors.Is(err, inErrors.ErrInvalidCredentials),
		errors.Is(err, inErrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, inErrors.ErrNotFound),
		errors.Is(err, inErrors.ErrCheckoutNotFound),
		errors.Is(err, inErrors.ErrProductUnavailable):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrEmptyCart),
		errors.Is(err, inErrors.ErrUserAlreadyExists),
		errors.Is(err, inErrors.ErrIllegalTransition),
		errors.Is(err, inErrors.ErrSubmissionInProgress):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrCreateOrder),
		errors.Is(err, inErrors.ErrMissingOrderID),
		errors.Is(err, inErrors.ErrPartialOrder):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}
