package main

import (
	"context"
	"strings"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/config"
	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/database/mysql"
	"github.com/koustreak/rowcraft/internal/database/postgres"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/export"
	"github.com/koustreak/rowcraft/internal/filestore/minio"
	"github.com/koustreak/rowcraft/internal/logger"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rowcraft",
	Short: "rowcraft is a typed data-access layer and client for relational databases",
	Long: `rowcraft lists tables, browses and edits rows, changes table structure and
exports result sets. Connections come from named profiles in the config file
or from ROWCRAFT_DSN.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	configPath string
	profile    string

	cfg *config.Config
	log *logger.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "rowcraft.yaml", "Path to the config file")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "P", "", "Connection profile (default: the configured default)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	lc := cfg.Logger
	lc.Output = cmd.ErrOrStderr()
	log = logger.New(&lc)
	logger.SetGlobal(log)
	return nil
}

// connect opens the selected profile and wraps it in a Store.
func connect(ctx context.Context) (*store.Store, *database.Config, error) {
	p, err := cfg.Profile(profile)
	if err != nil {
		return nil, nil, err
	}

	reg := codec.DefaultRegistry()
	var conn database.Conn
	switch p.Driver {
	case database.DriverMySQL:
		conn, err = mysql.New(ctx, p)
	default:
		conn, err = postgres.New(ctx, p, reg)
	}
	if err != nil {
		return nil, nil, err
	}

	log.With().Str("driver", string(p.Driver)).Logger().Debug("connected")
	return store.New(conn, reg, log, store.WithQueryTimeout(p.QueryTimeout)), p, nil
}

// requireCatalog rejects table-level commands on engines without an
// introspector.
func requireCatalog(p *database.Config) error {
	if p.Driver != database.DriverPostgres {
		return errs.Newf(errs.ErrKindInvalidInput, "%s connections support ad-hoc queries only", p.Driver)
	}
	return nil
}

// newExporter returns nil when no export endpoint is configured.
func newExporter(ctx context.Context) (*export.Exporter, error) {
	if !cfg.Export.Enabled() {
		return nil, nil
	}
	files, err := minio.New(ctx, &cfg.Export)
	if err != nil {
		return nil, err
	}
	bucket := cfg.Export.Bucket
	if bucket == "" {
		bucket = "rowcraft-exports"
	}
	return export.New(files, bucket, cfg.Export.Prefix, log), nil
}

// parseTableRef reads "schema.table" or a bare table name in the browse
// schema.
func parseTableRef(s string) (model.TableRef, error) {
	schemaName, table, ok := strings.Cut(s, ".")
	if !ok {
		schemaName, table = cfg.Browse.Schema, s
	}
	if schemaName == "" || table == "" {
		return model.TableRef{}, errs.Newf(errs.ErrKindInvalidInput, "invalid table %q, want schema.table", s)
	}
	return model.TableRef{Schema: schemaName, Table: table}, nil
}
