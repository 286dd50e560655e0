package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/mallofhookah/internal/constants"
	inHttp "github.com/Alturino/mallofhookah/internal/http"
	"github.com/Alturino/mallofhookah/internal/log"
	"github.com/Alturino/mallofhookah/internal/otel"
)

const (
	maskedValue    = "****"
	unmatchedRoute = "unmatched"
)

// Form fields that never reach the log, at any depth of the body.
var maskedFields = map[string]struct{}{
	"password":        {},
	"confirmPassword": {},
	"cardNumber":      {},
	"cardCvc":         {},
	"cardExpiry":      {},
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "storefront_http_request_duration_seconds",
	Help:    "Duration of storefront requests by route and status code.",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "method", "statusCode"})

// statusRecorder remembers the status written by the handler so the request
// can be logged and measured once it completed.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (s *statusRecorder) WriteHeader(statusCode int) {
	if !s.written {
		s.statusCode = statusCode
		s.written = true
	}
	s.ResponseWriter.WriteHeader(statusCode)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.written {
		s.statusCode = http.StatusOK
		s.written = true
	}
	return s.ResponseWriter.Write(b)
}

func routeOf(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unmatchedRoute
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return unmatchedRoute
	}
	return template
}

func maskBody(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, field := range v {
			if _, ok := maskedFields[k]; ok && field != nil {
				v[k] = maskedValue
				continue
			}
			v[k] = maskBody(field)
		}
	case []interface{}:
		for i := range v {
			v[i] = maskBody(v[i])
		}
	}
	return v
}

func maskHeader(h http.Header) http.Header {
	masked := h.Clone()
	if masked.Get(inHttp.KEY_HEADER_AUTHORIZATION) != "" {
		masked.Set(inHttp.KEY_HEADER_AUTHORIZATION, maskedValue)
	}
	return masked
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(inHttp.KEY_HEADER_REQUEST_ID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		route := routeOf(r)
		c, span := otel.Tracer.Start(
			r.Context(),
			"middleware Logging",
			trace.WithAttributes(
				attribute.String(constants.KEY_REQUEST_ID, requestID),
				attribute.String(constants.KEY_ROUTE, route),
				attribute.String(constants.KEY_REQUEST_HOST, r.Host),
				attribute.String(constants.KEY_REQUEST_IP, r.RemoteAddr),
				attribute.String(constants.KEY_REQUEST_METHOD, r.Method),
				attribute.String(constants.KEY_REQUEST_URI, r.RequestURI),
			),
		)
		defer span.End()

		var requestBody interface{}
		if r.Body != nil && r.Body != http.NoBody {
			var buffer bytes.Buffer
			tee := io.TeeReader(r.Body, &buffer)
			_ = json.NewDecoder(tee).Decode(&requestBody)
			_, _ = io.Copy(io.Discard, tee)
			r.Body = io.NopCloser(&buffer)
		}

		c = log.AttachRequestToContext(c, log.Request{ID: requestID, Route: route})
		logger := zerolog.Ctx(c).
			With().
			Ctx(c).
			Str(constants.KEY_TAG, "middleware Logging").
			Dict(constants.KEY_REQUEST, zerolog.Dict().
				Any(constants.KEY_HEADER, maskHeader(r.Header)).
				Str(constants.KEY_REQUEST_HOST, r.Host).
				Str(constants.KEY_REQUEST_IP, r.RemoteAddr).
				Str(constants.KEY_REQUEST_METHOD, r.Method).
				Str(constants.KEY_REQUEST_URI, r.RequestURI).
				Str(constants.KEY_REQUEST_URL, r.URL.String()).
				Any(constants.KEY_BODY, maskBody(requestBody))).
			Logger()
		c = logger.WithContext(c)
		w.Header().Set(inHttp.KEY_HEADER_REQUEST_ID, requestID)
		logger.Trace().Msg("attached request value to context")

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(c))

		elapsed := time.Since(start)
		statusCode := strconv.Itoa(recorder.statusCode)
		requestDuration.WithLabelValues(route, r.Method, statusCode).Observe(elapsed.Seconds())
		span.SetAttributes(attribute.Int(constants.KEY_STATUS_CODE, recorder.statusCode))

		event := logger.Info()
		if recorder.statusCode >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Int(constants.KEY_STATUS_CODE, recorder.statusCode).
			Dur(constants.KEY_DURATION, elapsed).
			Msg("served request")
	})
}
