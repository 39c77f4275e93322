// Copyright © 2018 One Concern

// Package chinook is a SQL console over a database file which can be uploaded,
// downloaded and grown with large customer records.
package chinook

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oneconcern/stablebench/internal/rand"
	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/sqldb"
	"github.com/oneconcern/stablebench/pkg/stable"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Name of the suite
const Name = "chinook"

// DBMemory holds the database file
const DBMemory stable.MemoryID = 0

// ErrNoDatabase is returned when the database file does not exist
var ErrNoDatabase = errors.New("database file not found")

const (
	firstBytesLen = 100
	maxCustomers  = 100000000
	fillerSize    = 5900

	createUsers = `CREATE TABLE IF NOT EXISTS users (
	user_id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`
	createOrders = `CREATE TABLE IF NOT EXISTS orders (
	order_id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	amount REAL NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(user_id)
)`
	selectTables = `SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%';`

	createCustomers = `CREATE TABLE IF NOT EXISTS customers (
	CustomerId INTEGER PRIMARY KEY AUTOINCREMENT,
	FirstName NVARCHAR(40) NOT NULL,
	LastName NVARCHAR(20) NOT NULL,
	Company NVARCHAR(80),
	Address NVARCHAR(70),
	City NVARCHAR(40),
	State NVARCHAR(40),
	Country NVARCHAR(40),
	PostalCode NVARCHAR(10),
	Phone NVARCHAR(24),
	Fax NVARCHAR(24),
	Email NVARCHAR(60) NOT NULL,
	SupportRepId INTEGER
)`
	insertCustomer = `INSERT INTO customers (firstname, lastname, email, address, city, state, country, postalcode, phone, fax)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

var (
	defaultIndices = []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);",
	}
	chinookIndices = []string{
		"CREATE INDEX IF NOT EXISTS idx_customers_first_name ON customers(firstname);",
		"CREATE INDEX IF NOT EXISTS idx_customers_last_name ON customers(lastname);",
	}
)

// Suite is a console over a SQLite database file
type Suite struct {
	db     *sqldb.DB
	fs     afero.Fs
	name   string
	budget uint64
	l      *zap.Logger
}

// New suite in an environment. A default database with users and orders is created.
func New(ctx context.Context, env *stable.Env, cfg config.Config, logger *zap.Logger) (*Suite, error) {
	l := dlogger.Component(logger, Name)
	dir, err := env.Dir(DBMemory)
	if err != nil {
		return nil, err
	}
	s := &Suite{
		db:     sqldb.Open(filepath.Join(dir, cfg.SQLite.File), sqldb.PragmasFromConfig(cfg.SQLite), l),
		fs:     afero.NewBasePathFs(afero.NewOsFs(), dir),
		name:   cfg.SQLite.File,
		budget: uint64(cfg.Scaled(int(cfg.InstructionBudget))),
		l:      l,
	}
	if err := s.init(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Suite) init(ctx context.Context) error {
	for _, stmt := range append([]string{createUsers, createOrders}, defaultIndices...) {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Name of the suite
func (s *Suite) Name() string { return Name }

// DB handle of the suite
func (s *Suite) DB() *sqldb.DB { return s.db }

// Query runs a query and logs the units it took
func (s *Suite) Query(ctx context.Context, query string) ([][]*string, error) {
	start := meter.Performance(ctx)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	s.l.Info("query", zap.String("sql", query), zap.Uint64("execution_time", meter.Performance(ctx)-start))
	return rows, nil
}

// ExecuteBatch runs several statements
func (s *Suite) ExecuteBatch(ctx context.Context, batch string) error {
	return s.db.ExecBatch(ctx, batch)
}

// CloseDatabase closes the connection, reopened on next use
func (s *Suite) CloseDatabase() error {
	return s.db.Close()
}

// UploadDatabase replaces the content of the database file, which must exist
func (s *Suite) UploadDatabase(content []byte) error {
	if err := s.db.Close(); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(s.name, os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoDatabase.Wrap(err)
		}
		return err
	}
	_, err = f.Write(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// DownloadDatabase returns the content of the database file
func (s *Suite) DownloadDatabase() ([]byte, error) {
	if err := s.db.Close(); err != nil {
		return nil, err
	}
	content, err := afero.ReadFile(s.fs, s.name)
	if os.IsNotExist(err) {
		return nil, ErrNoDatabase.Wrap(err)
	}
	return content, err
}

// GetDBSize returns the size of the database file
func (s *Suite) GetDBSize() (int64, error) {
	if err := s.db.Close(); err != nil {
		return 0, err
	}
	fi, err := s.fs.Stat(s.name)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNoDatabase.Wrap(err)
		}
		return 0, err
	}
	return fi.Size(), nil
}

// FirstBytes returns the first bytes of the database file, hex encoded
func (s *Suite) FirstBytes() (string, error) {
	if err := s.db.Close(); err != nil {
		return "", err
	}
	f, err := s.fs.Open(s.name)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoDatabase.Wrap(err)
		}
		return "", err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, firstBytesLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return hex.EncodeToString(buf[:n]), nil
}

// GetTables lists user tables
func (s *Suite) GetTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, selectTables)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 && row[0] != nil {
			names = append(names, *row[0])
		}
	}
	return names, nil
}

// CreateChinookIndices indexes customers by first and last name
func (s *Suite) CreateChinookIndices(ctx context.Context) error {
	for _, stmt := range chinookIndices {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateCustomers creates an empty customers table, shaped like the one of the chinook sample database
func (s *Suite) CreateCustomers(ctx context.Context) error {
	_, err := s.db.Exec(ctx, createCustomers)
	return err
}

// Customer is a record inserted in the customers table
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Filler    string
}

// NewCustomer builds the customer record of an id
func NewCustomer(id uint64) Customer {
	mixed := rand.Mix(id)
	return Customer{
		FirstName: fmt.Sprintf("%dcustomer_name%d", id, id),
		LastName:  fmt.Sprintf("%dcustomer_last_name%d", mixed, mixed),
		Email:     fmt.Sprintf("%dcustomer@example.com", id),
		Filler:    rand.Lorem(fillerSize),
	}
}

// AddCustomers inserts customers from offset+1 in one transaction, until the budget
// of units is spent. It returns the units spent and the number of customers added.
func (s *Suite) AddCustomers(ctx context.Context, offset uint64) (uint64, uint64, error) {
	ctx = meter.Ensure(ctx)
	start := meter.Performance(ctx)
	var added uint64

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertCustomer)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := uint64(0); i < maxCustomers; i++ {
			c := NewCustomer(offset + i + 1)
			if _, err := stmt.ExecContext(ctx,
				c.FirstName, c.LastName, c.Email,
				c.Filler, c.Filler, c.Filler, c.Filler, c.Filler, c.Filler, c.Filler,
			); err != nil {
				return fmt.Errorf("insert of customer %d failed: %w", offset+i+1, err)
			}
			added++
			if meter.Performance(ctx)-start > s.budget {
				break
			}
		}
		return nil
	})
	if err != nil {
		return 0, added, err
	}
	spent := meter.Performance(ctx) - start
	s.l.Info("customers added", zap.Uint64("count", added), zap.Uint64("units", spent))
	return spent, added, nil
}

// Close the database
func (s *Suite) Close() error {
	return s.db.Shutdown()
}
