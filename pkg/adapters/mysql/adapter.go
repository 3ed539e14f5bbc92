// Package mysql provides a MySQL executor for sqlbench.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/sqlbench/pkg/adapter"
)

// Dialect describes MySQL. max_execution_time bounds SELECT statements on
// the session in milliseconds.
var Dialect = &adapter.Dialect{
	Name:        "mysql",
	Placeholder: adapter.QuestionPlaceholder,
	SessionTimeout: func(timeout time.Duration) string {
		return fmt.Sprintf("SET SESSION max_execution_time = %d", timeout.Milliseconds())
	},
}

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Dialect: Dialect},
	}
}

// Dialect returns the MySQL dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return Dialect
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", buildMySQLDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildMySQLDSN converts the adapter config to the driver's DSN format.
// A DSN that is not a mysql:// URL is used as is.
func buildMySQLDSN(cfg adapter.Config) string {
	if cfg.DSN != "" && !strings.HasPrefix(cfg.DSN, "mysql://") {
		return cfg.DSN
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := driver.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	for k, v := range cfg.Options {
		if mc.Params == nil {
			mc.Params = make(map[string]string, len(cfg.Options))
		}
		mc.Params[k] = v
	}
	return mc.FormatDSN()
}

// DescribeSchema lists the tables of the connected database.
func (a *Adapter) DescribeSchema(ctx context.Context) (*adapter.Schema, error) {
	return a.DescribeSchemaCommon(ctx, a.Cfg.Database)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
