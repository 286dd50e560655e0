package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Alturino/mallofhookah/internal/config"
	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/infra"
	"github.com/Alturino/mallofhookah/internal/log"
)

func RunMigration(c context.Context, down bool) {
	cfg := config.Get(c, constants.APP_STOREFRONT)

	logger := log.Get(filepath.Join("/var/log/", constants.APP_STOREFRONT+".log"), cfg.Application).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT).
		Str(constants.KEY_TAG, "main RunMigration").
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	db, err := infra.NewDatabaseClient(c, cfg.Database)
	if err != nil {
		err = fmt.Errorf("failed initializing database with error=%w", err)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	defer db.Close()
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(constants.KEY_PROCESS, "migrating database").Logger()
	logger.Info().Msg("migrating database")
	if err := infra.Migrate(c, db, cfg.Database, down); err != nil {
		err = fmt.Errorf("failed migrating database with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("migrated database")
}
