package migration

import (
	"fmt"

	"github.com/goldnightmare/goldservice/internal/config"
)

// NewMigratorFromStoreConfig builds a migrator from the service's own store
// configuration (internal/config.StoreConfig), the same settings store.Open
// uses to connect.
func NewMigratorFromStoreConfig(cfg config.StoreConfig) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	var dbURL string
	switch dbType {
	case DatabaseTypePostgres:
		dbURL = BuildDatabaseURL(dbType, cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password, cfg.SSLMode)
	case DatabaseTypeSQLite:
		// For SQLite, the Name field carries the file path (or DSN, see StoreConfig.DSN).
		dbURL = BuildDatabaseURL(dbType, "", 0, cfg.Name, "", "", "")
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	migCfg := &Config{
		DatabaseType: dbType,
		DatabaseURL:  dbURL,
		TableName:    "schema_migrations",
	}

	return NewMigrator(migCfg)
}

// NewMigratorFromURL creates a new migrator from a database URL
func NewMigratorFromURL(dbType, dbURL string) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}

	return NewMigrator(&Config{
		DatabaseType: dt,
		DatabaseURL:  dbURL,
		TableName:    "schema_migrations",
	})
}
