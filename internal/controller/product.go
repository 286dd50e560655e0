package controller

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/product"
	"github.com/Alturino/mallofhookah/internal/repository"
)

type ProductController struct {
	service *product.ProductService
}

func AttachProductController(router *mux.Router, service *product.ProductService) {
	controller := ProductController{service: service}

	r := router.PathPrefix("/products").Subrouter()
	r.HandleFunc("", controller.FindProducts).Methods(http.MethodGet)
	r.HandleFunc("/{productId}", controller.FindProductById).Methods(http.MethodGet)
}

func (ctrl *ProductController) FindProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "ProductController FindProducts").Logger()

	param := repository.FindProductsParams{}
	if categoryID := r.URL.Query().Get("categoryId"); categoryID != "" {
		logger = logger.With().Str(constants.KEY_PROCESS, "validating categoryId").Logger()
		logger.Info().Msg("validating categoryId")
		id, err := uuid.Parse(categoryID)
		if err != nil {
			err = fmt.Errorf("failed validating categoryId=%s with error=%w", categoryID, err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
				"status":     "failed",
				"statusCode": http.StatusBadRequest,
				"message":    err.Error(),
			})
			return
		}
		param.CategoryID = id
		logger.Info().Msg("validated categoryId")
	}
	param.Query = r.URL.Query().Get("q")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding products").Logger()
	logger.Info().Msg("finding products")
	products, err := ctrl.service.FindProducts(logger.WithContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Msg("found products")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found products",
		"data":       map[string]interface{}{"products": products},
	})
}

func (ctrl *ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "ProductController FindProductById").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating productId").Logger()
	logger.Info().Msg("validating productId")
	productID, err := pathUUID(r, "productId")
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger = logger.With().Str(constants.KEY_PRODUCT_ID, productID.String()).Logger()
	logger.Info().Msg("validated productId")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Info().Msg("finding product")
	p, err := ctrl.service.FindProductById(logger.WithContext(c), productID)
	if err == nil && !p.IsActive {
		err = fmt.Errorf("failed finding product with error=%w", inErrors.ErrProductUnavailable)
	}
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Msg("found product")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found product",
		"data":       map[string]interface{}{"product": product.ToResponse(p)},
	})
}
