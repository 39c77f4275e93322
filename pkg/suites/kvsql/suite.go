// Copyright © 2018 One Concern

// Package kvsql compares inserting and reading users in SQLite with an ordered map.
package kvsql

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/kvmap"
	"github.com/oneconcern/stablebench/pkg/sqldb"
	"github.com/oneconcern/stablebench/pkg/stable"

	"go.uber.org/zap"
)

// Name of the suite
const Name = "kvsql"

// Memories used by the suite
const (
	MapMemory stable.MemoryID = 0
	DBMemory  stable.MemoryID = 1
)

const (
	createUsers = "CREATE TABLE IF NOT EXISTS users ( id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT NOT NULL)"
	insertUser  = "INSERT INTO users (id, username) VALUES (?1, ?2);"
	selectUser  = "SELECT username FROM users WHERE id = ?1"
)

// Suite holds users in a SQLite table and in an ordered map
type Suite struct {
	db      *sqldb.DB
	users   *kvmap.Typed[string]
	payload string
	l       *zap.Logger
}

// New suite in an environment. Tables are created.
func New(ctx context.Context, env *stable.Env, cfg config.Config, logger *zap.Logger) (*Suite, error) {
	l := dlogger.Component(logger, Name)

	dbDir, err := env.Dir(DBMemory)
	if err != nil {
		return nil, err
	}
	mapDir, err := env.Dir(MapMemory)
	if err != nil {
		return nil, err
	}
	m, err := kvmap.Open(cfg.KV.Backend, mapDir, l)
	if err != nil {
		return nil, err
	}

	s := &Suite{
		db:    sqldb.Open(filepath.Join(dbDir, cfg.SQLite.File), sqldb.PragmasFromConfig(cfg.SQLite), l),
		users: kvmap.NewTyped[string](m, nil),
		l:     l,
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

// InitPayload sets the username stored for every user, made of size 'a' characters
func (s *Suite) InitPayload(size int) {
	s.payload = strings.Repeat("a", size)
}

// Payload stored for every user
func (s *Suite) Payload() string { return s.payload }

// CreateTables creates the users table
func (s *Suite) CreateTables(ctx context.Context) error {
	_, err := s.db.Exec(ctx, createUsers)
	return err
}

// ForEachUser calls f with ids offset+i, for i from 0 while i < count, by steps of increment
func ForEachUser(offset, increment, count uint64, f func(id uint64) error) error {
	if increment == 0 {
		increment = 1
	}
	for i := uint64(0); i < count; i += increment {
		if err := f(offset + i); err != nil {
			return err
		}
	}
	return nil
}

// AddUsersBTree inserts users in the ordered map
func (s *Suite) AddUsersBTree(_ context.Context, offset, increment, count uint64) error {
	return ForEachUser(offset, increment, count, func(id uint64) error {
		return s.users.Insert(id, s.payload)
	})
}

// AddUsersNaive inserts users one statement at a time
func (s *Suite) AddUsersNaive(ctx context.Context, offset, increment, count uint64) error {
	return s.db.WithConnection(ctx, func(conn *sql.Conn) error {
		return ForEachUser(offset, increment, count, func(id uint64) error {
			_, err := conn.ExecContext(ctx, insertUser, int64(id), s.payload)
			return err
		})
	})
}

// AddUsersStored inserts users with a prepared statement, without a transaction
func (s *Suite) AddUsersStored(ctx context.Context, offset, increment, count uint64) error {
	return s.db.WithConnection(ctx, func(conn *sql.Conn) error {
		stmt, err := conn.PrepareContext(ctx, insertUser)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return ForEachUser(offset, increment, count, func(id uint64) error {
			_, err := stmt.ExecContext(ctx, int64(id), s.payload)
			return err
		})
	})
}

// AddUsersBulk inserts users with a prepared statement, in a transaction
func (s *Suite) AddUsersBulk(ctx context.Context, offset, increment, count uint64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertUser)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return ForEachUser(offset, increment, count, func(id uint64) error {
			_, err := stmt.ExecContext(ctx, int64(id), s.payload)
			return err
		})
	})
}

// ReadUsersBTree reads users from the ordered map and reports how many were found
func (s *Suite) ReadUsersBTree(_ context.Context, offset, increment, count uint64) (uint64, error) {
	var found uint64
	err := ForEachUser(offset, increment, count, func(id uint64) error {
		_, ok, err := s.users.Get(id)
		if ok {
			found++
		}
		return err
	})
	return found, err
}

// ReadUsersBulk reads users from SQLite in a transaction and reports how many were found
func (s *Suite) ReadUsersBulk(ctx context.Context, offset, increment, count uint64) (uint64, error) {
	var found uint64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, selectUser)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return ForEachUser(offset, increment, count, func(id uint64) error {
			rows, err := stmt.QueryContext(ctx, int64(id))
			if err != nil {
				return err
			}
			defer func() { _ = rows.Close() }()
			for rows.Next() {
				var username string
				if err := rows.Scan(&username); err != nil {
					return err
				}
				found++
			}
			return rows.Err()
		})
	})
	return found, err
}

// Close the database and the map
func (s *Suite) Close() error {
	err := s.db.Shutdown()
	if cerr := s.users.Close(); err == nil {
		err = cerr
	}
	return err
}
