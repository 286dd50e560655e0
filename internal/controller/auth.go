package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/auth"
	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/pkg/request"
)

type AuthController struct {
	service *auth.Service
}

func AttachAuthController(router *mux.Router, authenticate mux.MiddlewareFunc, service *auth.Service) {
	controller := AuthController{service: service}

	r := router.PathPrefix("/auth").Subrouter()
	r.HandleFunc("/register", controller.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", controller.Login).Methods(http.MethodPost)
	r.Handle("/logout", authenticate(http.HandlerFunc(controller.Logout))).Methods(http.MethodPost)
}

func (ctrl *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AuthController Login")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "AuthController Login").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	param := request.Login{}
	if err := json.NewDecoder(r.Body).Decode(&param); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
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

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request body").Logger()
	logger.Info().Msg("validating request body")
	if err := validate.StructCtx(c, param); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "logging in").Logger()
	logger.Info().Msg("logging in")
	login, err := ctrl.service.Login(logger.WithContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Msg("logged in")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "logged in",
		"data":       login,
	})
}

func (ctrl *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AuthController Register")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "AuthController Register").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	param := request.Register{}
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

	logger = logger.With().Str(constants.KEY_PROCESS, "registering user").Logger()
	logger.Info().Msg("registering user")
	login, err := ctrl.service.Register(logger.WithContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Str(constants.KEY_USER_ID, login.Session.UserID.String()).Msg("registered user")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "registered user",
		"data":       login,
	})
}

func (ctrl *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AuthController Logout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "AuthController Logout").
		Str(constants.KEY_PROCESS, "logging out").
		Logger()

	session, ok := auth.SessionFromContext(c)
	if !ok {
		err := fmt.Errorf("failed logging out with error=%w", inErrors.ErrUnauthenticated)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}

	logger.Info().Msg("logging out")
	if err := ctrl.service.Logout(logger.WithContext(c), session); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteErrorResponse(c, w, err, nil)
		return
	}
	logger.Info().Msg("logged out")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "logged out",
	})
}
