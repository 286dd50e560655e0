package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/mallofhookah/internal/config"
	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/otel"
)

func postgresUrl(dbConfig config.Database) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable&timezone=%s",
		dbConfig.Username,
		dbConfig.Password,
		dbConfig.Host,
		int(dbConfig.Port),
		dbConfig.Name,
		dbConfig.TimeZone,
	)
}

func NewDatabaseClient(c context.Context, dbConfig config.Database) (*pgxpool.Pool, error) {
	c, span := otel.Tracer.Start(c, "infra NewDatabaseClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra NewDatabaseClient").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing pgx config").Logger()
	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := pgxpool.ParseConfig(postgresUrl(dbConfig))
	if err != nil {
		err = fmt.Errorf("failed creating pgx config with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	pgxConfig.MaxConns = dbConfig.MaxConnections
	pgxConfig.MinConns = dbConfig.MinConnections
	pgxConfig.MaxConnLifetime = 15 * time.Minute
	pgxConfig.MaxConnIdleTime = 5 * time.Minute
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	pgxConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(constants.KEY_PROCESS, "creating connection pool").Logger()
	logger.Info().Msg("creating connection pool")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("created connection pool")

	logger = logger.With().Str(constants.KEY_PROCESS, "pinging db").Logger()
	logger.Info().Msg("pinging db")
	err = pool.Ping(c)
	if err != nil {
		pool.Close()
		err = fmt.Errorf("failed pinging db with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("pinged db")

	return pool, nil
}

// Migrate applies every pending migration, or rolls all of them back when down is set.
func Migrate(c context.Context, pool *pgxpool.Pool, dbConfig config.Database, down bool) error {
	c, span := otel.Tracer.Start(c, "infra Migrate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra Migrate").
		Bool("down", down).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing migration driver").Logger()
	logger.Info().Msg("initializing migration driver")
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		err = fmt.Errorf("failed creating postgres migration driver with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	migration, err := migrate.NewWithDatabaseInstance(dbConfig.MigrationPath, dbConfig.Name, driver)
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized migration driver")

	logger = logger.With().Str(constants.KEY_PROCESS, "running migration").Logger()
	logger.Info().Msg("running migration")
	if down {
		err = migration.Down()
	} else {
		err = migration.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed running migration with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("ran migration")

	return nil
}
