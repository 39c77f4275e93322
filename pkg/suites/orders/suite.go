// Copyright © 2018 One Concern

// Package orders runs a relational workload of users and their orders.
package orders

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/sqldb"
	"github.com/oneconcern/stablebench/pkg/stable"

	"go.uber.org/zap"
)

// Name of the suite
const Name = "orders"

// DBMemory holds the database file
const DBMemory stable.MemoryID = 0

// ErrBadCount is returned when a table does not hold the expected number of rows
var ErrBadCount = errors.New("unexpected row count")

const (
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
	createUsersEmailIndex = "CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);"
	createOrdersUserIndex = "CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);"

	insertUser  = "INSERT INTO users (username, email) VALUES (?, ?)"
	insertOrder = "INSERT INTO orders (user_id, amount) VALUES (?, ?)"
	countOrders = "SELECT COUNT(*) FROM orders"
)

// Suite holds the users and orders database
type Suite struct {
	db *sqldb.DB
	l  *zap.Logger
}

// New suite in an environment. Tables are created.
func New(ctx context.Context, env *stable.Env, cfg config.Config, logger *zap.Logger) (*Suite, error) {
	l := dlogger.Component(logger, Name)
	dir, err := env.Dir(DBMemory)
	if err != nil {
		return nil, err
	}
	s := &Suite{
		db: sqldb.Open(filepath.Join(dir, cfg.SQLite.File), sqldb.PragmasFromConfig(cfg.SQLite), l),
		l:  l,
	}
	if err := s.CreateTables(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Name of the suite
func (s *Suite) Name() string { return Name }

// DB handle of the suite
func (s *Suite) DB() *sqldb.DB { return s.db }

// CreateTables creates the users and orders tables
func (s *Suite) CreateTables(ctx context.Context) error {
	return s.execAll(ctx, createUsers, createOrders)
}

// CreateIndices indexes users by email and orders by user
func (s *Suite) CreateIndices(ctx context.Context) error {
	return s.execAll(ctx, createUsersEmailIndex, createOrdersUserIndex)
}

func (s *Suite) execAll(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddUsers inserts count users in a transaction, named after ids offset+1 to offset+count
func (s *Suite) AddUsers(ctx context.Context, offset, count uint64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertUser)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := uint64(0); i < count; i++ {
			id := offset + i + 1
			if _, err := stmt.ExecContext(ctx, fmt.Sprintf("user%d", id), fmt.Sprintf("user%d@example.com", id)); err != nil {
				return fmt.Errorf("insert of user %d failed: %w", id, err)
			}
		}
		return nil
	})
}

// OrderUser returns the user of the i-th order inserted from offset, in [1, idMod]
func OrderUser(offset, i, idMod uint64) uint64 {
	return (offset+i+1)*13%idMod + 1
}

// OrderAmount returns the amount of an order placed by a user
func OrderAmount(userID uint64) uint64 {
	return (userID*100 + userID*17) / 15
}

// AddOrders inserts count orders in a transaction, spread over idMod users
func (s *Suite) AddOrders(ctx context.Context, offset, count, idMod uint64) error {
	if idMod == 0 {
		return fmt.Errorf("add orders: user modulus must be positive")
	}
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertOrder)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := uint64(0); i < count; i++ {
			id := OrderUser(offset, i, idMod)
			if _, err := stmt.ExecContext(ctx, int64(id), int64(OrderAmount(id))); err != nil {
				return fmt.Errorf("insertion of a new order failed: i = %d count = %d id = %d: %w", i, count, id, err)
			}
		}
		return nil
	})
}

// Query runs a query and returns rows rendered as text
func (s *Suite) Query(ctx context.Context, query string) ([][]*string, error) {
	return s.db.Query(ctx, query)
}

// Execute runs a statement
func (s *Suite) Execute(ctx context.Context, stmt string) error {
	_, err := s.db.Exec(ctx, stmt)
	return err
}

// CountOrders counts all orders
func (s *Suite) CountOrders(ctx context.Context) (int64, error) {
	return s.db.Count(ctx, "orders")
}

// DeleteAndRollback deletes the orders above an id in an explicit transaction, counts
// the remaining orders, then rolls back. It returns the count seen inside the transaction.
func (s *Suite) DeleteAndRollback(ctx context.Context, above uint64) (int64, error) {
	var inside int64
	err := s.db.WithConnection(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, "DELETE FROM orders WHERE order_id > ?", int64(above))
		if err == nil {
			err = conn.QueryRowContext(ctx, countOrders).Scan(&inside)
		}
		if _, rerr := conn.ExecContext(ctx, "ROLLBACK"); err == nil {
			err = rerr
		}
		return err
	})
	return inside, err
}

// ExpectOrders checks the number of orders
func (s *Suite) ExpectOrders(ctx context.Context, expected int64) error {
	n, err := s.CountOrders(ctx)
	if err != nil {
		return err
	}
	if n != expected {
		return ErrBadCount.Wrapf("orders: expected %d, got %d", expected, n)
	}
	return nil
}

// Close the database
func (s *Suite) Close() error {
	return s.db.Shutdown()
}
