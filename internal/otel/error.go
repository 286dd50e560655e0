package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordError marks the span as failed. A cancelled context is only recorded
// as an event since the caller went away.
func RecordError(err error, span trace.Span) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		span.AddEvent("canceled", trace.WithAttributes(attribute.String("error", err.Error())))
		return
	}
	span.AddEvent(err.Error())
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
