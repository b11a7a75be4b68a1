package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/migrations"
)

type clientConfig struct {
	driver      string
	server      string
	debug       bool
	serviceName string
}

func (c clientConfig) GetDebug() bool {
	return c.debug
}

func (c clientConfig) GetDriver() string {
	return c.driver
}

func (c clientConfig) GetServer() string {
	return c.server
}

func (c clientConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c clientConfig) GetOtelIdentifier() string {
	return c.serviceName
}

// OpenClient connects to the configured profile database and applies the
// embedded migrations for its dialect.
func OpenClient(ctx context.Context, cfg core.Config) (*persistence.Client, error) {
	driver := cfg.StorageDriver()
	dialect := migrations.DialectFor(driver)
	if dialect == migrations.DialectSQLite {
		driver = "sqlite3"
	}

	sqlDB, err := sql.Open(driver, cfg.StorageDSN())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	var bunDialect schema.Dialect = pgdialect.New()
	if dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
		bunDialect = sqlitedialect.New()
	}

	client, err := persistence.New(clientConfig{
		driver:      driver,
		server:      cfg.StorageDSN(),
		debug:       cfg.Storage.Debug,
		serviceName: firstNonEmpty(cfg.ServiceName, core.DefaultServiceName),
	}, sqlDB, bunDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: persistence client: %w", err)
	}
	if err := migrations.Apply(ctx, client, dialect); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
