package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/mallofhookah/internal/constants"
)

func Start() {
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str(constants.KEY_APP_NAME, constants.APP_MAIN).
		Str(constants.KEY_TAG, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	var down bool
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			RunMigration(cmd.Context(), down)
		},
	}
	migrateCmd.Flags().BoolVar(&down, "down", false, "roll back every migration")

	rootCmd := &cobra.Command{Use: "mallofhookah"}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run storefront service",
			Run: func(cmd *cobra.Command, args []string) {
				RunStorefront(cmd.Context())
			},
		},
		migrateCmd,
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
