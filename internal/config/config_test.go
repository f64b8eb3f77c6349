package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
default: local
connections:
  local:
    host: localhost
    user: postgres
    database: app
    query_timeout: 15s
  legacy:
    driver: mysql
    dsn: "root:secret@tcp(127.0.0.1:3306)/shop"
    max_conns: 2
logger:
  level: debug
  format: console
browse:
  page_size: 250
export:
  endpoint: localhost:9000
  bucket: dumps
`

func clearEnv(t *testing.T) {
	t.Setenv(EnvDSN, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvListen, "")
}

func TestParse(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"legacy", "local"}, cfg.ProfileNames())
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, 250, cfg.Browse.PageSize)
	assert.Equal(t, "public", cfg.Browse.Schema, "unset values keep defaults")
	assert.Equal(t, "127.0.0.1:7070", cfg.Server.Listen)
	assert.Equal(t, "dumps", cfg.Export.Bucket)
	assert.True(t, cfg.Export.Enabled())

	local, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, database.DriverPostgres, local.Driver)
	assert.Equal(t, 15*time.Second, local.QueryTimeout)
	assert.Equal(t, int32(4), local.MaxConns, "pool defaults filled in")

	legacy, err := cfg.Profile("legacy")
	require.NoError(t, err)
	assert.Equal(t, database.DriverMySQL, legacy.Driver)
	assert.Equal(t, int32(2), legacy.MaxConns)
}

func TestProfile_NotFound(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	_, err = cfg.Profile("staging")
	assert.True(t, errs.IsNotFound(err))
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDSN, "postgres://u:p@db:5432/app")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvListen, "0.0.0.0:9999")

	cfg, err := Parse(nil)
	require.NoError(t, err)

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/app", p.DSN)
	assert.Equal(t, database.DriverPostgres, p.Driver)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
}

func TestEnvDSN_OverridesDefaultProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDSN, "postgres://other/db")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	local, err := cfg.Profile("local")
	require.NoError(t, err)
	assert.Equal(t, "postgres://other/db", local.DSN)
}

func TestDriverFromDSN(t *testing.T) {
	assert.Equal(t, database.DriverMySQL, driverFromDSN("root:pw@tcp(localhost:3306)/db"))
	assert.Equal(t, database.DriverPostgres, driverFromDSN("postgres://localhost/db"))
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		yaml string
	}{
		{"missing host and dsn", "connections:\n  a:\n    user: x\n"},
		{"bad driver", "connections:\n  a:\n    driver: oracle\n    host: h\n"},
		{"min above max", "connections:\n  a:\n    host: h\n    max_conns: 2\n    min_conns: 3\n"},
		{"bad page size", "browse:\n  page_size: -5\n"},
		{"not yaml", "connections: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "rowcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Connections, 2)

	missing, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing.Connections)
}
