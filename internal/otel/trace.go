package otel

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/Alturino/mallofhookah/internal/constants"
)

var Tracer = otel.Tracer(
	constants.APP_STOREFRONT,
	oteltrace.WithInstrumentationAttributes(semconv.ServiceName(constants.APP_STOREFRONT)),
)

func initTracerProvider(
	c context.Context,
	endpoint string,
	res *resource.Resource,
) (*trace.TracerProvider, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "otel initTracerProvider").
		Str(constants.KEY_PROCESS, "initializing traceExporter").
		Logger()

	logger.Info().Msg("initializing traceExporter")
	traceExporter, err := otlptracegrpc.New(
		c,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		err = fmt.Errorf("failed creating traceExporter with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized traceExporter")

	return trace.NewTracerProvider(
		trace.WithBatcher(traceExporter, trace.WithBatchTimeout(5*time.Second)),
		trace.WithResource(res),
	), nil
}
