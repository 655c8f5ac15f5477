package gamealert

import (
	"embed"
	"fmt"
)

// MigrationFiles contains the goose SQL migrations for every supported dialect,
// one directory per driver name.
//
// Example with goose:
//
//	import (
//	    "github.com/pressly/goose/v3"
//	    "github.com/coregx/gamealert"
//	)
//
//	dir, err := gamealert.MigrationDir("postgres")
//	goose.SetBaseFS(gamealert.MigrationFiles)
//	goose.SetDialect("postgres")
//	if err := goose.Up(db, dir); err != nil {
//	    log.Fatal(err)
//	}
//
//go:embed migrations
var MigrationFiles embed.FS

// MigrationDir returns the directory inside MigrationFiles for a database driver.
// Accepted drivers: "postgres", "mysql", "sqlite3".
func MigrationDir(driver string) (string, error) {
	switch driver {
	case "postgres", "mysql", "sqlite3":
		return "migrations/" + driver, nil
	default:
		return "", NewError(ErrCodeConfiguration, fmt.Sprintf("unsupported database driver %q", driver))
	}
}
