// Package migrate applies the embedded gamealert migrations with goose.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/coregx/gamealert"
)

// Commands accepted by Run.
var Commands = []string{"up", "down", "status", "version"}

// Run executes a goose command against the migrations of the given driver.
func Run(ctx context.Context, db *sql.DB, driver, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	dir, err := gamealert.MigrationDir(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(gamealert.MigrationFiles)
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
