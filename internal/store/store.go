// Package store persists candidates, interviews and the audit trail in SQL.
//
// SQLite (mattn/go-sqlite3) is the default driver. PostgreSQL (lib/pq) is
// supported with the same schema. Every write the workflow engine performs
// runs inside WithinTx.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// sqliteParams: immediate transactions take the write lock at BEGIN, so two
// concurrent admissions serialize and the second one sees the first's row.
const sqliteParams = "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialectSQLite, nil
	case DriverPostgres:
		return dialectPostgres, nil
	default:
		return 0, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate adds a row lock where the dialect has one. SQLite runs write
// transactions under _txlock=immediate instead.
func (d dialect) forUpdate(query string) string {
	if d == dialectPostgres {
		return query + " FOR UPDATE"
	}
	return query
}

// DB wraps a sql.DB with workflow persistence operations.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if d == dialectSQLite {
		dsn = sqliteDSN(dsn)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db := &DB{conn: conn, dialect: d}
	if err := db.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteParams
	}
	return dsn + "?" + sqliteParams
}

// New wraps an existing connection without touching the schema.
func New(conn *sql.DB, driver string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn, dialect: d}, nil
}

// Migrate applies the schema. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Queries returns non-transactional query access.
func (db *DB) Queries() *Queries {
	return &Queries{q: db.conn, d: db.dialect}
}

// WithinTx runs fn in one transaction. It commits when fn returns nil and
// rolls back otherwise, returning fn's error unchanged.
func (db *DB) WithinTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&Queries{q: tx, d: db.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries executes statements against a connection or a transaction.
type Queries struct {
	q querier
	d dialect
}

func (q *Queries) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := q.q.ExecContext(ctx, q.d.rebind(query), args...)
	if err != nil {
		return nil, classify(op, err)
	}
	return res, nil
}

func (q *Queries) query(ctx context.Context, op, query string, args ...any) (*sql.Rows, error) {
	rows, err := q.q.QueryContext(ctx, q.d.rebind(query), args...)
	if err != nil {
		return nil, classify(op, err)
	}
	return rows, nil
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.d.rebind(query), args...)
}

// expectOne turns a zero-row update or delete into ErrNoRows.
func expectOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}
