package middleware

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/log"
	"github.com/Alturino/mallofhookah/internal/otel"
)

var recoveredPanics = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_http_recovered_panics_total",
	Help: "Handler panics turned into failed responses, by route.",
}, []string{"route"})

// RecoverPanic answers a panicking handler with the failed envelope. The panic
// value stays in the log, the customer only gets the request id to quote.
// Nothing is written when the handler already started its response.
func RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, span := otel.Tracer.Start(r.Context(), "middleware RecoverPanic")
		defer span.End()

		req := log.RequestFromContext(c)
		logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "middleware RecoverPanic").Logger()
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			err = fmt.Errorf("recovered from panic with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Stack().Msg(err.Error())
			recoveredPanics.WithLabelValues(routeOf(r)).Inc()

			if recorder, ok := w.(*statusRecorder); ok && recorder.written {
				logger.Warn().Int(constants.KEY_STATUS_CODE, recorder.statusCode).Msg("response already started, leaving it as is")
				return
			}
			var data map[string]interface{}
			if req.ID != "" {
				data = map[string]interface{}{"requestId": req.ID}
			}
			inHttp.WriteErrorResponse(c, w, inErrors.ErrInternal, data)
		}()

		next.ServeHTTP(w, r.WithContext(c))
	})
}
