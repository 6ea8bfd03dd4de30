package migrate

import (
	"context"
	"testing"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

func TestMaybeRunDevMigratesSQLite(t *testing.T) {
	client, conn := dbtest.Client(t)
	cfg := &config.Config{DB: config.DBConfig{Driver: config.DBDriverSQLite}}
	logg := logger.New(logger.Options{ServiceName: "migrate-test"})

	if err := MaybeRunDev(context.Background(), cfg, logg, client); err != nil {
		t.Fatalf("MaybeRunDev: %v", err)
	}
	if !conn.Migrator().HasTable("tickets") {
		t.Fatal("expected tickets table after auto-migrate")
	}
}

func TestMaybeRunDevSkipsPostgresOutsideDev(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvProd},
		DB:  config.DBConfig{Driver: config.DBDriverPostgres},
	}
	if err := MaybeRunDev(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestBootSchemaFor(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want bootSchema
	}{
		{"sqlite in prod", config.Config{App: config.AppConfig{Env: config.AppEnvProd}, DB: config.DBConfig{Driver: config.DBDriverSQLite}}, bootSchemaModels},
		{"postgres dev flag on", config.Config{App: config.AppConfig{Env: config.AppEnvDev}, DB: config.DBConfig{Driver: config.DBDriverPostgres}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}, bootSchemaGoose},
		{"postgres dev flag off", config.Config{App: config.AppConfig{Env: config.AppEnvDev}, DB: config.DBConfig{Driver: config.DBDriverPostgres}}, bootSchemaNone},
		{"postgres prod flag on", config.Config{App: config.AppConfig{Env: config.AppEnvProd}, DB: config.DBConfig{Driver: config.DBDriverPostgres}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}, bootSchemaNone},
	}
	for _, tc := range cases {
		if got := bootSchemaFor(&tc.cfg); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
