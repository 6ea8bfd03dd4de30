package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migration files are written during development.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

// Source reads migrations from dir, or from the embedded set when dir is empty.
func Source(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Status is one migration as seen by the database.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Up applies every pending migration and returns the applied versions.
func Up(ctx context.Context, db *sql.DB, fsys fs.FS) ([]int64, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return appliedVersions(results), nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, fsys fs.FS) (int64, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return 0, err
	}
	result, err := provider.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose down: %w", err)
	}
	return result.Source.Version, nil
}

// Redo rolls back the most recent migration and applies it again.
func Redo(ctx context.Context, db *sql.DB, fsys fs.FS) (int64, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return 0, err
	}
	if _, err := provider.Down(ctx); err != nil {
		return 0, fmt.Errorf("goose redo down: %w", err)
	}
	result, err := provider.UpByOne(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose redo up: %w", err)
	}
	return result.Source.Version, nil
}

// ListStatus reports every known migration and whether it is applied.
func ListStatus(ctx context.Context, db *sql.DB, fsys fs.FS) ([]Status, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}
	rows, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			Path:      row.Source.Path,
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

// MigrateToVersion moves the schema up or down until targetVersion is current.
func MigrateToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current < target:
		_, err = provider.UpTo(ctx, target)
	case current > target:
		_, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func appliedVersions(results []*goose.MigrationResult) []int64 {
	versions := make([]int64, 0, len(results))
	for _, res := range results {
		if res != nil && res.Source != nil {
			versions = append(versions, res.Source.Version)
		}
	}
	return versions
}
