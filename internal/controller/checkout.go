package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/checkout"
	"github.com/Alturino/mallofhookah/internal/constants"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/pkg/request"
	"github.com/Alturino/mallofhookah/pkg/response"
)

type CheckoutController struct {
	service *checkout.CheckoutService
}

func AttachCheckoutController(router *mux.Router, authenticate mux.MiddlewareFunc, service *checkout.CheckoutService) {
	controller := CheckoutController{service: service}

	r := router.PathPrefix("/checkout").Subrouter()
	r.Use(authenticate)
	r.HandleFunc("", controller.Start).Methods(http.MethodPost)
	r.HandleFunc("/{checkoutId}", controller.View).Methods(http.MethodGet)
	r.HandleFunc("/{checkoutId}", controller.Abandon).Methods(http.MethodDelete)
	r.HandleFunc("/{checkoutId}/shipping", controller.SubmitShipping).Methods(http.MethodPost)
	r.HandleFunc("/{checkoutId}/payment", controller.SubmitPayment).Methods(http.MethodPost)
	r.HandleFunc("/{checkoutId}/back", controller.Back).Methods(http.MethodPost)
	r.HandleFunc("/{checkoutId}/place-order", controller.PlaceOrder).Methods(http.MethodPost)
}

func writeCheckout(c context.Context, w http.ResponseWriter, statusCode int, message string, view response.Checkout) {
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": statusCode,
		"message":    message,
		"data":       map[string]interface{}{"checkout": view},
	})
}

func (ctrl *CheckoutController) Start(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Start")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutController Start").
		Str(constants.KEY_PROCESS, "starting checkout").
		Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	logger.Info().Msg("starting checkout")
	view, err := ctrl.service.Start(logger.WithContext(c), userID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Str(constants.KEY_CHECKOUT_ID, view.ID.String()).Msg("started checkout")

	writeCheckout(c, w, http.StatusCreated, "started checkout", view)
}

func (ctrl *CheckoutController) View(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController View")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController View").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	checkoutID, err := pathUUID(r, "checkoutId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	view, err := ctrl.service.View(logger.WithContext(c), userID, checkoutID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	writeCheckout(c, w, http.StatusOK, "found checkout", view)
}

func (ctrl *CheckoutController) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController SubmitShipping")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController SubmitShipping").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	checkoutID, err := pathUUID(r, "checkoutId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger = logger.With().Str(constants.KEY_CHECKOUT_ID, checkoutID.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	param := request.Shipping{}
	if err := decode(c, r, &param); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().Str(constants.KEY_DELIVERY_METHOD, string(param.DeliveryMethod)).Logger()
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "submitting shipping").Logger()
	logger.Info().Msg("submitting shipping")
	view, err := ctrl.service.SubmitShipping(logger.WithContext(c), userID, checkoutID, param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, map[string]interface{}{"checkout": view})
		return
	}
	logger.Info().Msg("submitted shipping")

	writeCheckout(c, w, http.StatusOK, "submitted shipping", view)
}

func (ctrl *CheckoutController) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController SubmitPayment")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController SubmitPayment").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	checkoutID, err := pathUUID(r, "checkoutId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger = logger.With().Str(constants.KEY_CHECKOUT_ID, checkoutID.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	param := request.Payment{}
	if err := decode(c, r, &param); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger = logger.With().Object(constants.KEY_REQUEST, param).Logger()
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "submitting payment").Logger()
	logger.Info().Msg("submitting payment")
	view, err := ctrl.service.SubmitPayment(logger.WithContext(c), userID, checkoutID, param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, map[string]interface{}{"checkout": view})
		return
	}
	logger.Info().Msg("submitted payment")

	writeCheckout(c, w, http.StatusOK, "submitted payment", view)
}

func (ctrl *CheckoutController) Back(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Back")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController Back").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	checkoutID, err := pathUUID(r, "checkoutId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	view, err := ctrl.service.Back(logger.WithContext(c), userID, checkoutID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	writeCheckout(c, w, http.StatusOK, "went back", view)
}

func (ctrl *CheckoutController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController PlaceOrder")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController PlaceOrder").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	checkoutID, err := pathUUID(r, "checkoutId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger = logger.With().Str(constants.KEY_CHECKOUT_ID, checkoutID.String()).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "placing order").Logger()
	logger.Info().Msg("placing order")
	confirmation, err := ctrl.service.PlaceOrder(logger.WithContext(c), userID, checkoutID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		var partial *checkout.PartialOrderError
		if errors.As(err, &partial) {
			inHttp.WriteErrorResponse(c, w, err, map[string]interface{}{
				"orderId":     partial.OrderID,
				"needsReview": partial.CompensationErr != nil,
			})
			return
		}
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger = logger.With().Str(constants.KEY_ORDER_ID, confirmation.OrderID.String()).Logger()
	logger.Info().Msg("placed order")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "placed order",
		"data":       map[string]interface{}{"confirmation": confirmation},
	})
}

func (ctrl *CheckoutController) Abandon(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Abandon")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CheckoutController Abandon").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	checkoutID, err := pathUUID(r, "checkoutId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	if err := ctrl.service.Abandon(logger.WithContext(c), userID, checkoutID); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "abandoned checkout",
		"data":       map[string]interface{}{"exit": checkout.ExitToProducts},
	})
}
