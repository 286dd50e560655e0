package otel

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/Alturino/mallofhookah/internal/constants"
)

func initMeterProvider(
	c context.Context,
	endpoint string,
	res *resource.Resource,
) (*metric.MeterProvider, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "otel initMeterProvider").
		Str(constants.KEY_PROCESS, "initializing metricExporter").
		Logger()

	logger.Info().Msg("initializing metricExporter")
	metricExporter, err := otlpmetricgrpc.New(
		c,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		err = fmt.Errorf("failed creating metricExporter with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized metricExporter")

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(5*time.Second))),
		metric.WithResource(res),
	), nil
}
