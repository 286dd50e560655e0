package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/mallofhookah/internal/config"
	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/otel"
)

func NewCacheClient(c context.Context, config config.Cache) (*redis.Client, error) {
	c, span := otel.Tracer.Start(c, "infra NewCacheClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra NewCacheClient").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing redis client").Logger()
	logger.Info().Msg("initializing redis client")
	cache := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.Database,
	})
	logger.Info().Msg("initialized redis client")

	logger = logger.With().Str(constants.KEY_PROCESS, "instrumenting redis client").Logger()
	logger.Info().Msg("instrumenting redis client")
	err := redisotel.InstrumentTracing(cache, redisotel.WithAttributes(semconv.DBSystemRedis))
	if err != nil {
		err = fmt.Errorf("failed initializing otel redis tracing with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	err = redisotel.InstrumentMetrics(cache, redisotel.WithAttributes(semconv.DBSystemRedis))
	if err != nil {
		err = fmt.Errorf("failed initializing otel redis metric with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("instrumented redis client")

	logger = logger.With().Str(constants.KEY_PROCESS, "pinging redis").Logger()
	logger.Info().Msg("pinging redis")
	err = cache.Ping(c).Err()
	if err != nil {
		err = fmt.Errorf("failed pinging redis with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("pinged redis")

	return cache, nil
}
