package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/auth"
	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/otel"
)

// Auth rejects requests without a valid bearer token and attaches the
// session carried by the token to the request context.
func Auth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, span := otel.Tracer.Start(r.Context(), "middleware Auth")
			defer span.End()

			logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "middleware Auth").Logger()

			authorization := r.Header.Get(inHttp.KEY_HEADER_AUTHORIZATION)
			if len(authorization) <= len(inHttp.VALUE_BEARER_PREFIX) ||
				!strings.EqualFold(authorization[:len(inHttp.VALUE_BEARER_PREFIX)], inHttp.VALUE_BEARER_PREFIX) {
				err := inErrors.ErrEmptyAuth
				otel.RecordError(err, span)
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteErrorResponse(c, w, err, nil)
				return
			}

			claims, err := auth.VerifyToken(c, authorization[len(inHttp.VALUE_BEARER_PREFIX):], secret)
			if err != nil {
				otel.RecordError(err, span)
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteErrorResponse(c, w, inErrors.ErrTokenInvalid, nil)
				return
			}

			session, err := claims.Session()
			if err != nil {
				err = fmt.Errorf("failed reading session with error=%w", inErrors.ErrEmptySubject)
				otel.RecordError(err, span)
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteErrorResponse(c, w, inErrors.ErrTokenInvalid, nil)
				return
			}

			logger = logger.With().Str(constants.KEY_USER_ID, session.UserID.String()).Logger()
			c = logger.WithContext(c)
			c = auth.AttachSession(c, session)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
