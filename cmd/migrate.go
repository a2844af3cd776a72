package cmd

import (
	"context"
	"fmt"

	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	"github.com/Alturino/marketclub/internal/infra"
	"github.com/Alturino/marketclub/internal/log"
)

func runMigrate(c context.Context) error {
	cfg := config.Get(c, configName)

	logger := log.Get("", cfg.Application.Env).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT_CLI).
		Str(constants.KEY_TAG, "main runMigrate").
		Logger()
	c = logger.WithContext(c)

	db := infra.NewDatabaseClient(c, cfg.Database)
	defer db.Close()

	if err := infra.Migrate(c, db, cfg.Database); err != nil {
		return fmt.Errorf("failed migrating database with error=%w", err)
	}
	logger.Info().Msg("database is up to date")
	return nil
}
