package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopfront/apiserver/config"
)

// DefaultMigrationsDir is resolved relative to the working directory.
const DefaultMigrationsDir = "internal/db/migrations"

// NewMigrator returns a migrator for the configured driver, reading SQL files
// from <dir>/<driver>.
func NewMigrator(cfg config.DatabaseConfig, dir string) (*migrate.Migrate, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultMigrationsDir
	}

	var dsn string
	switch cfg.Driver {
	case "mysql":
		dsn = "mysql://" + MySQLDSN(cfg) + "&multiStatements=true"
	default:
		dsn = PostgresURL(cfg)
	}

	sourceURL := fmt.Sprintf("file://%s/%s", strings.TrimRight(dir, "/"), driverDir(cfg.Driver))
	migrator, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}

// Up applies all pending migrations.
func Up(cfg config.DatabaseConfig, dir string) error {
	migrator, err := NewMigrator(cfg, dir)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// Down rolls back steps migrations, or all of them when steps <= 0.
func Down(cfg config.DatabaseConfig, dir string, steps int) error {
	migrator, err := NewMigrator(cfg, dir)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if steps > 0 {
		err = migrator.Steps(-steps)
	} else {
		err = migrator.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

func driverDir(driver string) string {
	if driver == "mysql" {
		return "mysql"
	}
	return "postgres"
}
