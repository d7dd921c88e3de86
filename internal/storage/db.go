// Package storage opens the relational PeeringDB mirror and dumps its tables.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"peerdata/internal/table"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported driver")
	ErrInvalidTableName  = errors.New("invalid table name")

	tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to a MySQL DSN or a SQLite file path.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
		conn, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}
		if _, err := conn.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &DB{conn: conn, driver: driver}, nil

	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("mysql dsn: %w", err)
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		if _, ok := cfg.Params["charset"]; !ok {
			cfg.Params["charset"] = "utf8mb4"
		}
		conn, err := sql.Open(DriverMySQL, cfg.FormatDSN())
		if err != nil {
			return nil, err
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("connect %s@%s/%s: %w", cfg.User, cfg.Addr, cfg.DBName, err)
		}
		return &DB{conn: conn, driver: driver}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// ListTables returns the user tables in name order.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	if d.driver == DriverMySQL {
		query = `SHOW TABLES`
	}
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// DumpTable reads every row of name as text; NULL becomes "".
func (d *DB) DumpTable(ctx context.Context, name string) (*table.Table, error) {
	quoted, err := d.quote(name)
	if err != nil {
		return nil, err
	}
	rows, err := d.conn.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := table.New(cols...)
	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("dump %s: %w", name, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		out.Append(row...)
	}
	return out, rows.Err()
}

func (d *DB) quote(name string) (string, error) {
	if !tableNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	if d.driver == DriverMySQL {
		return "`" + name + "`", nil
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`, nil
}
