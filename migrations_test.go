package gamealert

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/gamealert/model"
)

func TestMigrations_EveryDialectCreatesEveryTable(t *testing.T) {
	tables := []string{
		model.Giveaway{}.TableName(),
		model.FreeToPlayGame{}.TableName(),
		model.GamePassTitle{}.TableName(),
		model.LocalGiveaway{}.TableName(),
	}
	for _, kind := range model.AllKinds() {
		tables = append(tables, kind.Table())
	}

	for _, driver := range []string{"postgres", "mysql", "sqlite3"} {
		t.Run(driver, func(t *testing.T) {
			dir, err := MigrationDir(driver)
			require.NoError(t, err)

			files, err := fs.Glob(MigrationFiles, dir+"/*.sql")
			require.NoError(t, err)
			require.NotEmpty(t, files)

			var all strings.Builder
			for _, f := range files {
				data, err := fs.ReadFile(MigrationFiles, f)
				require.NoError(t, err)
				txt := string(data)
				assert.Contains(t, txt, "-- +goose Up", f)
				assert.Contains(t, txt, "-- +goose Down", f)
				all.WriteString(txt)
			}

			for _, table := range tables {
				assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (", "driver=%s", driver)
				assert.Contains(t, all.String(), "DROP TABLE IF EXISTS "+table+";", "driver=%s", driver)
			}
		})
	}
}

func TestMigrationDir_UnknownDriver(t *testing.T) {
	_, err := MigrationDir("oracle")
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfiguration, err.(*Error).Code)
}
