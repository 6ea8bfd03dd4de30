package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/tablebook-backend/pkg/bootstrap"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// offline commands only touch migration files.
var offline = map[string]func(opts options) (string, error){
	"create": func(opts options) (string, error) {
		if opts.name == "" {
			return "", fmt.Errorf("missing -name for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return "", err
		}
		return "created migration: " + path, nil
	},
	"validate": func(opts options) (string, error) {
		if err := migrate.Validate(migrate.Source(opts.dir)); err != nil {
			return "", err
		}
		return "migration validation passed", nil
	},
}

// online commands run goose against the configured postgres database.
var online = map[string]func(ctx context.Context, sqlDB *sql.DB, opts options) error{
	"up": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		applied, err := migrate.Up(ctx, sqlDB, migrate.Source(opts.dir))
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s) %v\n", len(applied), applied)
		return nil
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		version, err := migrate.Down(ctx, sqlDB, migrate.Source(opts.dir))
		if err != nil {
			return err
		}
		fmt.Println("rolled back", version)
		return nil
	},
	"redo": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		version, err := migrate.Redo(ctx, sqlDB, migrate.Source(opts.dir))
		if err != nil {
			return err
		}
		fmt.Println("reapplied", version)
		return nil
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		rows, err := migrate.ListStatus(ctx, sqlDB, migrate.Source(opts.dir))
		if err != nil {
			return err
		}
		for _, row := range rows {
			applied := "pending"
			if row.Applied {
				applied = row.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-16d %-28s %s\n", row.Version, applied, row.Path)
		}
		return nil
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, migrate.Source(opts.dir), opts.version)
	},
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory (default: migrations embedded in the binary)")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if cmd, ok := offline[opts.cmd]; ok {
		msg, err := cmd(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", opts.cmd, err)
			os.Exit(1)
		}
		fmt.Println(msg)
		return
	}

	cmd, ok := online[opts.cmd]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", opts.cmd)
		os.Exit(2)
	}

	bootstrap.Main("migrate", func(ctx context.Context, p *bootstrap.Process) error {
		cfg, logg := p.Config, p.Logger
		if cfg.DB.Driver == config.DBDriverSQLite {
			return errors.New("goose migrations target postgres; sqlite schemas are built by the dev auto-migrator")
		}

		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return bootstrap.Require("database", err)
		}
		p.DeferCloser("database", dbClient)

		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			return err
		}

		ctx = logg.WithFields(ctx, map[string]any{"cmd": opts.cmd, "dir": opts.dir})
		if err := cmd(ctx, sqlDB, opts); err != nil {
			return fmt.Errorf("migrate %s: %w", opts.cmd, err)
		}
		logg.Info(ctx, "migration command finished")
		return nil
	})
}
