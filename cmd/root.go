package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	"github.com/Alturino/marketclub/internal/log"
)

const KEY_ENV_TOKEN = "MARKETCLUB_TOKEN"

var (
	configName string
	token      string
)

func Start() {
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           constants.APP_MARKETCLUB,
		Short:         "Storefront gateway and command line client for the market club shop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configName, "config", constants.APP_MARKETCLUB, "config file name looked up in ./env and .")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv(KEY_ENV_TOKEN), "bearer token of the logged in user, defaults to $"+KEY_ENV_TOKEN)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "storefront",
			Short: "Run the storefront gateway and the payment webhook",
			Run: func(cmd *cobra.Command, args []string) {
				runStorefrontService(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context())
			},
		},
		newCartCommand(),
		newWishlistCommand(),
		newWholesaleCommand(),
		newCheckoutCommand(),
	)

	if err := rootCmd.ExecuteContext(c); err != nil {
		cfg := config.Get(c, configName)
		logger := log.Get("", cfg.Application.Env)
		logger.Error().Err(err).Msgf("error when executing command=%s", err.Error())
		os.Exit(1)
	}
}
