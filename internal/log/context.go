package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/mallofhookah/internal/constants"
)

// Request is the storefront call an event was logged under. Route is the
// matched path template so events of one endpoint group together regardless
// of the checkout or product id in the path.
type Request struct {
	ID    string
	Route string
}

type requestKey struct{}

func RequestFromContext(c context.Context) Request {
	req, _ := c.Value(requestKey{}).(Request)
	return req
}

func RequestIDFromContext(c context.Context) string {
	return RequestFromContext(c).ID
}

func AttachRequestToContext(c context.Context, req Request) context.Context {
	return context.WithValue(c, requestKey{}, req)
}

// AttachRequestFromContext copies the request and the active span ids onto
// every event logged with .Ctx(c). Events logged outside a request, like the
// listeners, only carry the span ids.
func AttachRequestFromContext() zerolog.HookFunc {
	return func(e *zerolog.Event, level zerolog.Level, message string) {
		c := e.GetCtx()
		req := RequestFromContext(c)
		if req.ID != "" {
			e.Str(constants.KEY_REQUEST_ID, req.ID)
		}
		if req.Route != "" {
			e.Str(constants.KEY_ROUTE, req.Route)
		}
		spanCtx := trace.SpanContextFromContext(c)
		if spanCtx.IsValid() {
			e.Str(constants.KEY_TRACE_ID, spanCtx.TraceID().String()).
				Str(constants.KEY_SPAN_ID, spanCtx.SpanID().String())
		}
	}
}
