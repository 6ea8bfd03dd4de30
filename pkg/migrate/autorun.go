package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

type bootSchema int

const (
	bootSchemaNone bootSchema = iota
	bootSchemaModels
	bootSchemaGoose
)

// bootSchemaFor picks how a process prepares the schema on start. SQLite has
// no goose history and is always built from the models; Postgres is only
// touched in dev with the auto-migrate flag on.
func bootSchemaFor(cfg *config.Config) bootSchema {
	switch {
	case cfg.DB.Driver == config.DBDriverSQLite:
		return bootSchemaModels
	case cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate:
		return bootSchemaGoose
	default:
		return bootSchemaNone
	}
}

// MaybeRunDev prepares the schema on boot when the environment allows it.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	switch bootSchemaFor(cfg) {
	case bootSchemaModels:
		logg.Info(ctx, "building sqlite schema from models")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrate sqlite: %w", err)
		}
	case bootSchemaGoose:
		sqlDB, err := client.DB().DB()
		if err != nil {
			return fmt.Errorf("unwrap sql.DB: %w", err)
		}
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
		applied, err := Up(ctx, sqlDB, Embedded())
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		logg.Info(logg.WithField(ctx, "applied", len(applied)), "dev migrations applied")
	}
	return nil
}
