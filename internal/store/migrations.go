package store

import (
	"database/sql"
	"fmt"

	"github.com/MohamedIjlal27/SFA-sub000/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending migrations in dir of the embedded
// migrations filesystem.
func RunMigrations(db *sql.DB, dir string) error {
	// Disable goose's default logging to avoid stdout noise
	goose.SetLogger(goose.NopLogger())

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
