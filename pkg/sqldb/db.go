// Copyright © 2018 One Concern

// Package sqldb holds the SQLite connection of a benchmark environment.
//
// The connection is opened lazily, on first use, and reopened after Close.
// A single connection is ever used, so statements run one at a time, the way
// they would in a single threaded host.
package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/errors"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrClosed is returned when using a database handle after Shutdown
var ErrClosed = errors.New("database is shut down")

// Pragmas applied to every new connection
type Pragmas struct {
	JournalMode string
	Synchronous int
	PageSize    int
	LockingMode string
	TempStore   int
	CacheSize   int
}

// DefaultPragmas favor throughput over durability
func DefaultPragmas() Pragmas {
	return Pragmas{
		JournalMode: "MEMORY",
		Synchronous: 0,
		PageSize:    4096,
		LockingMode: "EXCLUSIVE",
		TempStore:   2,
	}
}

// SQL renders the pragmas as statements
func (p Pragmas) SQL() string {
	var b strings.Builder
	if p.PageSize > 0 {
		fmt.Fprintf(&b, "PRAGMA page_size=%d;\n", p.PageSize)
	}
	if p.JournalMode != "" {
		fmt.Fprintf(&b, "PRAGMA journal_mode=%s;\n", p.JournalMode)
	}
	fmt.Fprintf(&b, "PRAGMA synchronous=%d;\n", p.Synchronous)
	if p.LockingMode != "" {
		fmt.Fprintf(&b, "PRAGMA locking_mode=%s;\n", p.LockingMode)
	}
	fmt.Fprintf(&b, "PRAGMA temp_store=%d;\n", p.TempStore)
	if p.CacheSize != 0 {
		fmt.Fprintf(&b, "PRAGMA cache_size=%d;\n", p.CacheSize)
	}
	return b.String()
}

// DB is a lazily opened SQLite database
type DB struct {
	path    string
	pragmas Pragmas
	l       *zap.Logger

	mx       sync.Mutex
	db       *sql.DB
	shutdown bool
}

// Open a database handle on a file. The file is not touched until first use.
func Open(pth string, pragmas Pragmas, logger *zap.Logger) *DB {
	return &DB{
		path:    pth,
		pragmas: pragmas,
		l:       dlogger.Component(logger, "sqldb").With(zap.String("path", pth)),
	}
}

type connector struct {
	driver *sqlite3.SQLiteDriver
	dsn    string
}

func (c connector) Connect(context.Context) (driver.Conn, error) { return c.driver.Open(c.dsn) }

func (c connector) Driver() driver.Driver { return c.driver }

// Path of the database file
func (d *DB) Path() string { return d.path }

// SQL returns the underlying connection pool, opening it if needed
func (d *DB) SQL() (*sql.DB, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.shutdown {
		return nil, ErrClosed
	}
	if d.db != nil {
		return d.db, nil
	}

	pragmas := d.pragmas.SQL()
	db := sql.OpenDB(connector{
		dsn: d.path,
		driver: &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				_, err := conn.Exec(pragmas, nil)
				return err
			},
		},
	})
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	d.l.Debug("opened database")
	d.db = db
	return db, nil
}

// WithConnection runs fn with the connection
func (d *DB) WithConnection(ctx context.Context, fn func(*sql.Conn) error) error {
	db, err := d.SQL()
	if err != nil {
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

// WithTx runs fn in a transaction, committed when fn succeeds and rolled back otherwise.
//
// fn must only use the transaction: the connection is held until it completes.
func (d *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	db, err := d.SQL()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Exec runs a statement and reports the number of affected rows
func (d *DB) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	db, err := d.SQL()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecBatch runs several statements separated by semicolons
func (d *DB) ExecBatch(ctx context.Context, batch string) error {
	db, err := d.SQL()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, batch)
	return err
}

// Query runs a query and returns all rows, with values rendered as text
func (d *DB) Query(ctx context.Context, query string, args ...interface{}) ([][]*string, error) {
	db, err := d.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return Collect(rows)
}

// Count the rows of a table
func (d *DB) Count(ctx context.Context, table string) (int64, error) {
	db, err := d.SQL()
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&n)
	return n, err
}

// QuoteIdent quotes an identifier, such as a table name
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Close the connection. The database is reopened on next use.
func (d *DB) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	d.l.Debug("closed database")
	return err
}

// Shutdown closes the connection for good
func (d *DB) Shutdown() error {
	err := d.Close()
	d.mx.Lock()
	d.shutdown = true
	d.mx.Unlock()
	return err
}

// PragmasFromConfig converts configured SQLite settings
func PragmasFromConfig(c config.SQLite) Pragmas {
	return Pragmas{
		JournalMode: c.JournalMode,
		Synchronous: c.Synchronous,
		PageSize:    c.PageSize,
		LockingMode: c.LockingMode,
		TempStore:   c.TempStore,
		CacheSize:   c.CacheSize,
	}
}
