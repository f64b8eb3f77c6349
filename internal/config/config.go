// Package config loads rowcraft's YAML configuration: named connection
// profiles, logging, browse defaults, the local API listener and the export
// object store.
//
// Values are layered: built-in defaults, then the file, then environment
// overrides (ROWCRAFT_DSN, ROWCRAFT_LOG_LEVEL, ROWCRAFT_LISTEN).
//
// Example file:
//
//	default: local
//	connections:
//	  local:
//	    driver: postgres
//	    host: localhost
//	    user: postgres
//	    database: app
//	    query_timeout: 15s
//	browse:
//	  page_size: 200
//	server:
//	  listen: 127.0.0.1:7070
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/filestore"
	"github.com/koustreak/rowcraft/internal/logger"
	"go.yaml.in/yaml/v3"
)

// Environment variables that override file values.
const (
	EnvDSN      = "ROWCRAFT_DSN"
	EnvLogLevel = "ROWCRAFT_LOG_LEVEL"
	EnvListen   = "ROWCRAFT_LISTEN"
)

// DefaultProfile is the profile name used when none is configured.
const DefaultProfile = "default"

// Config is the whole configuration file.
type Config struct {
	Default     string                      `yaml:"default"`
	Connections map[string]*database.Config `yaml:"connections"`
	Logger      logger.Config               `yaml:"logger"`
	Browse      Browse                      `yaml:"browse"`
	Server      Server                      `yaml:"server"`
	Export      filestore.Config            `yaml:"export"`
}

// Browse holds table browsing defaults.
type Browse struct {
	PageSize int    `yaml:"page_size"`
	Schema   string `yaml:"schema"`
}

// Server holds the local HTTP API settings.
type Server struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *Config {
	lc := logger.DefaultConfig()
	lc.Output = nil
	return &Config{
		Default:     DefaultProfile,
		Connections: map[string]*database.Config{},
		Logger:      *lc,
		Browse:      Browse{PageSize: 100, Schema: "public"},
		Server:      Server{Listen: "127.0.0.1:7070"},
		Export:      filestore.Config{Provider: filestore.ProviderMinIO},
	}
}

// Load reads the file at path. An empty path, or a path that does not
// exist, yields the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = b
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config "+path, err)
		}
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "parse config", err)
		}
	}
	if cfg.Connections == nil {
		cfg.Connections = map[string]*database.Config{}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dsn := os.Getenv(EnvDSN); dsn != "" {
		name := c.Default
		if name == "" {
			name = DefaultProfile
			c.Default = name
		}
		p, ok := c.Connections[name]
		if !ok {
			p = &database.Config{Driver: driverFromDSN(dsn)}
			c.Connections[name] = p
		}
		p.DSN = dsn
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.Logger.Level = lvl
	}
	if addr := os.Getenv(EnvListen); addr != "" {
		c.Server.Listen = addr
	}
}

// driverFromDSN guesses the engine of an environment-supplied DSN: URLs are
// Postgres, tcp(...) style strings are MySQL.
func driverFromDSN(dsn string) database.Driver {
	if strings.HasPrefix(dsn, "mysql://") || strings.Contains(dsn, "@tcp(") || strings.Contains(dsn, "@unix(") {
		return database.DriverMySQL
	}
	return database.DriverPostgres
}

// applyDefaults fills unset pool and timeout settings of every profile.
func (c *Config) applyDefaults() {
	def := database.DefaultConfig("")
	for _, p := range c.Connections {
		if p == nil {
			continue
		}
		if p.Driver == "" {
			p.Driver = database.DriverPostgres
		}
		if p.MaxConns == 0 {
			p.MaxConns = def.MaxConns
		}
		if p.MinConns == 0 {
			p.MinConns = def.MinConns
		}
		if p.MaxConnLifetime == 0 {
			p.MaxConnLifetime = def.MaxConnLifetime
		}
		if p.MaxConnIdleTime == 0 {
			p.MaxConnIdleTime = def.MaxConnIdleTime
		}
		if p.ConnectTimeout == 0 {
			p.ConnectTimeout = def.ConnectTimeout
		}
		if p.QueryTimeout == 0 {
			p.QueryTimeout = def.QueryTimeout
		}
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	for _, name := range c.ProfileNames() {
		p := c.Connections[name]
		if p == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "connection %q is empty", name)
		}
		switch p.Driver {
		case database.DriverPostgres, database.DriverMySQL:
		default:
			return errs.Newf(errs.ErrKindInvalidInput, "connection %q: unsupported driver %q", name, p.Driver)
		}
		if p.DSN == "" && p.Host == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "connection %q: dsn or host is required", name)
		}
		if p.MinConns > p.MaxConns {
			return errs.Newf(errs.ErrKindInvalidInput, "connection %q: min_conns %d exceeds max_conns %d", name, p.MinConns, p.MaxConns)
		}
	}
	if c.Browse.PageSize <= 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "browse.page_size must be positive, got %d", c.Browse.PageSize)
	}
	if c.Server.Listen == "" {
		return errs.New(errs.ErrKindInvalidInput, "server.listen is required")
	}
	return nil
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Connections))
	for n := range c.Connections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Profile returns the named connection profile. An empty name selects the
// default profile.
func (c *Config) Profile(name string) (*database.Config, error) {
	if name == "" {
		name = c.Default
	}
	p, ok := c.Connections[name]
	if !ok || p == nil {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("connection profile %q not found", name))
	}
	return p, nil
}
