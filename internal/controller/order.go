package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/order"
	"github.com/Alturino/mallofhookah/internal/otel"
)

type OrderController struct {
	service *order.OrderService
}

func AttachOrderController(router *mux.Router, authenticate mux.MiddlewareFunc, service *order.OrderService) {
	controller := OrderController{service: service}

	r := router.PathPrefix("/orders").Subrouter()
	r.Use(authenticate)
	r.HandleFunc("", controller.FindOrders).Methods(http.MethodGet)
	r.HandleFunc("/{orderId}/confirmation", controller.FindConfirmation).Methods(http.MethodGet)
}

func (ctrl *OrderController) FindOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "OrderController FindOrders").
		Str(constants.KEY_PROCESS, "finding orders").
		Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, userID.String()).Logger()

	logger.Info().Msg("finding orders")
	orders, err := ctrl.service.FindOrders(logger.WithContext(c), userID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Int(constants.KEY_ORDERS, len(orders)).Msg("found orders")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found orders",
		"data":       map[string]interface{}{"orders": orders},
	})
}

func (ctrl *OrderController) FindConfirmation(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindConfirmation")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "OrderController FindConfirmation").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "validating orderId").Logger()
	logger.Info().Msg("validating orderId")
	orderID, err := pathUUID(r, "orderId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger = logger.With().Str(constants.KEY_ORDER_ID, orderID.String()).Logger()
	logger.Info().Msg("validated orderId")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding confirmation").Logger()
	logger.Info().Msg("finding confirmation")
	confirmation, err := ctrl.service.FindConfirmation(logger.WithContext(c), userID, orderID)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Msg("found confirmation")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found confirmation",
		"data":       map[string]interface{}{"confirmation": confirmation},
	})
}
