package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GAMEALERT_DISCORD_TOKEN", "token")
	t.Setenv("GAMEALERT_ITAD_API_KEY", "itad")
	t.Setenv("GAMEALERT_TOPGG_TOKEN", "topgg")
}

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Quota.SoftLimit)
	assert.Equal(t, 10, cfg.Quota.HardLimit)
	assert.Equal(t, 4*time.Hour, cfg.Schedule.Price)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Giveaway)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Heartbeat)
	assert.False(t, cfg.App.Debug)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	require.NoError(t, os.Unsetenv("GAMEALERT_DISCORD_TOKEN"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvertedQuota(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("GAMEALERT_QUOTA_SOFT", "10")
	t.Setenv("GAMEALERT_QUOTA_HARD", "5")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  DatabaseConfig{Driver: "postgres", DSN: "postgres://x"},
			want: "postgres://x",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", User: "u", Password: "p", Host: "h", Port: 3306, Database: "d"},
			want: "u:p@tcp(h:3306)/d?parseTime=true",
		},
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "h", Port: 5432, Database: "d"},
			want: "host=h port=5432 user=u password=p dbname=d sslmode=disable",
		},
		{
			name: "sqlite3",
			cfg:  DatabaseConfig{Driver: "sqlite3", Database: "/tmp/alerts.db"},
			want: "/tmp/alerts.db",
		},
		{
			name: "unknown",
			cfg:  DatabaseConfig{Driver: "oracle"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GetDSN())
		})
	}
}
