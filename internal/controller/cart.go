package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/constants"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/pkg/request"
)

type CartController struct {
	service *cart.CartService
}

func AttachCartController(router *mux.Router, authenticate mux.MiddlewareFunc, service *cart.CartService) {
	controller := CartController{service: service}

	r := router.PathPrefix("/cart").Subrouter()
	r.Use(authenticate)
	r.HandleFunc("", controller.FindCart).Methods(http.MethodGet)
	r.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{itemId}", controller.UpdateItem).Methods(http.MethodPatch)
	r.HandleFunc("/items/{itemId}", controller.RemoveItem).Methods(http.MethodDelete)
}

func (ctrl *CartController) FindCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartController FindCart").
		Str(constants.KEY_PROCESS, "finding cart").
		Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	logger.Info().Msg("finding cart")
	result := ctrl.service.FindCart(logger.WithContext(c), userID)
	logger.Info().Msg("found cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found cart",
		"data":       map[string]interface{}{"cart": result},
	})
}

func (ctrl *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController AddItem").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request body").Logger()
	logger.Info().Msg("validating request body")
	param := request.AddCartItem{}
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
	logger = logger.With().Any(constants.KEY_REQUEST, param).Logger()
	logger.Info().Msg("validated request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding item").Logger()
	logger.Info().Msg("adding item")
	result, err := ctrl.service.AddProduct(logger.WithContext(c), userID, param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Msg("added item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "added item to cart",
		"data":       map[string]interface{}{"cart": result},
	})
}

func (ctrl *CartController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController UpdateItem").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	itemID, err := pathUUID(r, "itemId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request body").Logger()
	logger.Info().Msg("validating request body")
	param := request.UpdateCartItem{}
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
	logger.Info().Msg("validated request body")

	result := ctrl.service.UpdateItem(logger.WithContext(c), userID, itemID, param)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "updated cart item",
		"data":       map[string]interface{}{"cart": result},
	})
}

func (ctrl *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController RemoveItem").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	itemID, err := pathUUID(r, "itemId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	result := ctrl.service.RemoveItem(logger.WithContext(c), userID, itemID)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "removed cart item",
		"data":       map[string]interface{}{"cart": result},
	})
}

func (ctrl *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController ClearCart").Logger()

	userID, err := userIDFromContext(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	result := ctrl.service.ClearCart(logger.WithContext(c), userID)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "cleared cart",
		"data":       map[string]interface{}{"cart": result},
	})
}
