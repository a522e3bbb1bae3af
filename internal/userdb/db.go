package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite-backed user database: settings, rpc node
// configuration and query-range bookkeeping. Migrations operate on it
// through scoped transactions.
type DB struct {
	db *sql.DB
}

// Open initializes the user database and runs minimal schema setup.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func configure(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

func createSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	schema := `
CREATE TABLE IF NOT EXISTS settings (
  name   TEXT PRIMARY KEY,
  value  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rpc_nodes (
  name      TEXT NOT NULL,
  endpoint  TEXT NOT NULL,
  owned     INTEGER NOT NULL DEFAULT 0,
  active    INTEGER NOT NULL DEFAULT 1,
  weight    TEXT NOT NULL,
  PRIMARY KEY(name, endpoint)
);

CREATE TABLE IF NOT EXISTS used_query_ranges (
  name      TEXT PRIMARY KEY,
  start_ts  INTEGER NOT NULL,
  end_ts    INTEGER NOT NULL
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// WithTx executes a callback inside a transaction: commit on success,
// rollback on error. Migration steps rely on this so a failing step
// leaves no partial writes.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetSetting reads a settings value; ok is false when the key is absent.
func (d *DB) GetSetting(ctx context.Context, name string) (value string, ok bool, err error) {
	row := d.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?;`, name)
	switch err = row.Scan(&value); {
	case err == nil:
		return value, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("get setting %s: %w", name, err)
	}
}

// SetSetting writes a settings value, replacing any previous one.
func (d *DB) SetSetting(ctx context.Context, name, value string) error {
	_, err := d.db.ExecContext(ctx, `
INSERT INTO settings (name, value) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET value=excluded.value;
`, name, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}

// RpcNode is one row of the rpc node configuration table.
type RpcNode struct {
	Name     string
	Endpoint string
	Owned    bool
	Active   bool
	Weight   decimal.Decimal
}

// GetRpcNodes returns all configured rpc nodes.
func (d *DB) GetRpcNodes(ctx context.Context) ([]RpcNode, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, endpoint, owned, active, weight FROM rpc_nodes ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("query rpc nodes: %w", err)
	}
	defer rows.Close()

	var nodes []RpcNode
	for rows.Next() {
		var node RpcNode
		var weight string
		if err := rows.Scan(&node.Name, &node.Endpoint, &node.Owned, &node.Active, &weight); err != nil {
			return nil, fmt.Errorf("scan rpc node: %w", err)
		}
		node.Weight, err = decimal.NewFromString(weight)
		if err != nil {
			return nil, fmt.Errorf("parse weight for %s: %w", node.Name, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// ReplaceRpcNodes atomically replaces the whole rpc node table.
func (d *DB) ReplaceRpcNodes(ctx context.Context, nodes []RpcNode) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		return ReplaceRpcNodesTx(ctx, tx, nodes)
	})
}

// SetQueryRange records the used timestamp range for a named query.
func (d *DB) SetQueryRange(ctx context.Context, name string, startTs, endTs uint64) error {
	_, err := d.db.ExecContext(ctx, `
INSERT INTO used_query_ranges (name, start_ts, end_ts) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET start_ts=excluded.start_ts, end_ts=excluded.end_ts;
`, name, startTs, endTs)
	if err != nil {
		return fmt.Errorf("set query range %s: %w", name, err)
	}
	return nil
}

// CountQueryRanges returns how many stored ranges match a name pattern
// (SQL LIKE syntax).
func (d *DB) CountQueryRanges(ctx context.Context, pattern string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM used_query_ranges WHERE name LIKE ?;`, pattern).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count query ranges: %w", err)
	}
	return count, nil
}
