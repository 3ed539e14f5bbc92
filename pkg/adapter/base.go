package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Ping and Execute implementations.
type BaseSQLAdapter struct {
	DB      *sql.DB
	Cfg     Config
	Logger  *slog.Logger
	Dialect *Dialect
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// Ping checks the connection.
func (b *BaseSQLAdapter) Ping(ctx context.Context) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	return b.DB.PingContext(ctx)
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Execute runs query on a dedicated connection bounded by timeout and
// returns every row. A zero timeout selects verify.DefaultTimeout. When the
// deadline passes the error wraps verify.ErrTimeout. The connection is
// returned to the pool on every path.
func (b *BaseSQLAdapter) Execute(ctx context.Context, query string, timeout time.Duration) ([]verify.Row, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	if timeout <= 0 {
		timeout = verify.DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return nil, b.wrapErr(ctx, timeout, fmt.Errorf("failed to acquire connection: %w", err))
	}
	defer func() { _ = conn.Close() }()

	if b.Dialect != nil && b.Dialect.SessionTimeout != nil {
		if stmt := b.Dialect.SessionTimeout(timeout); stmt != "" {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return nil, b.wrapErr(ctx, timeout, fmt.Errorf("failed to set session timeout: %w", err))
			}
		}
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, b.wrapErr(ctx, timeout, err)
	}
	defer func() { _ = rows.Close() }()

	result, err := ScanRows(rows)
	if err != nil {
		return nil, b.wrapErr(ctx, timeout, err)
	}
	b.logger().Debug("query executed", slog.Int("rows", len(result)))
	return result, nil
}

func (b *BaseSQLAdapter) wrapErr(ctx context.Context, timeout time.Duration, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s: %v", verify.ErrTimeout, timeout, err)
	}
	return err
}

// ScanRows reads every remaining row into verify rows, keeping the
// driver's column order.
func ScanRows(rows *sql.Rows) ([]verify.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []verify.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(verify.Row, len(cols))
		for i, c := range cols {
			row[i] = verify.Field{Column: c, Value: values[i]}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// DescribeSchemaCommon lists the tables of schema from
// information_schema.columns using the dialect's placeholders. Adapters for
// databases without information_schema provide their own DescribeSchema.
func (b *BaseSQLAdapter) DescribeSchemaCommon(ctx context.Context, schema string) (*Schema, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	placeholder := QuestionPlaceholder
	if b.Dialect != nil && b.Dialect.Placeholder != nil {
		placeholder = b.Dialect.Placeholder
	}

	//nolint:gosec // Placeholders come from the dialect
	query := fmt.Sprintf(`
		SELECT
			table_name,
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s
		ORDER BY table_name, ordinal_position
	`, placeholder(1))

	rows, err := b.DB.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := &Schema{}
	for rows.Next() {
		var table, nullable string
		var col Column
		if err := rows.Scan(&table, &col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		out.AddColumn(schema, table, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return out, nil
}

// AddColumn appends col to the named table, starting a new table when the
// name changes. Callers feed columns grouped by table.
func (s *Schema) AddColumn(schema, table string, col Column) {
	if n := len(s.Tables); n == 0 || s.Tables[n-1].Name != table {
		s.Tables = append(s.Tables, Table{Schema: schema, Name: table})
	}
	last := &s.Tables[len(s.Tables)-1]
	last.Columns = append(last.Columns, col)
}
