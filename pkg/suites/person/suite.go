// Copyright © 2018 One Concern

// Package person runs single statement CRUD operations over two person tables,
// a narrow one and one carrying a large data column. Every operation reports the
// units counted by the current call.
package person

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/oneconcern/stablebench/internal/rand"
	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/sqldb"
	"github.com/oneconcern/stablebench/pkg/stable"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Name of the suite
const Name = "person"

// DBMemory holds the database file
const DBMemory stable.MemoryID = 0

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Person is a row of a person table. Data is only set for tables carrying data.
type Person struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Age    uint32 `json:"age"`
	Gender uint8  `json:"gender"`
	Data   string `json:"data,omitempty"`
}

// Table of persons
type Table struct {
	Name     string
	Prefix   string
	WithData bool
}

// Tables used by the suite
var (
	Persons  = Table{Name: "person", Prefix: "bench1", WithData: false}
	Persons2 = Table{Name: "person2", Prefix: "bench2", WithData: true}
)

// Data stored in every row of tables carrying data
var Data = rand.Repeat("0a", 1024)

// PersonName of a given id in a table
func (t Table) PersonName(id uint64) string {
	return fmt.Sprintf("%s%d", t.Name, id)
}

// NewPerson builds the row of an id
func (t Table) NewPerson(id uint64) Person {
	p := Person{
		ID:     id,
		Name:   t.PersonName(id),
		Age:    uint32(18 + id%10),
		Gender: uint8(id % 2),
	}
	if t.WithData {
		p.Data = Data
	}
	return p
}

func (t Table) create() string {
	if t.WithData {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	age INTEGER NOT NULL,
	gender INTEGER NOT NULL,
	data TEXT NOT NULL
)`, t.Name)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	age INTEGER NOT NULL,
	gender INTEGER NOT NULL
)`, t.Name)
}

func (t Table) insert() string {
	if t.WithData {
		return fmt.Sprintf("INSERT INTO %s (name, age, gender, data) VALUES (?1, ?2, ?3, ?4);", t.Name)
	}
	return fmt.Sprintf("INSERT INTO %s (name, age, gender) VALUES (?1, ?2, ?3);", t.Name)
}

func (t Table) insertArgs(p Person) []interface{} {
	args := []interface{}{p.Name, p.Age, p.Gender}
	if t.WithData {
		args = append(args, p.Data)
	}
	return args
}

// Suite holds the person tables
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

// CreateTables creates both person tables
func (s *Suite) CreateTables(ctx context.Context) error {
	for _, t := range []Table{Persons, Persons2} {
		if _, err := s.db.Exec(ctx, t.create()); err != nil {
			return err
		}
	}
	return nil
}

func performance(ctx context.Context, op string) string {
	return fmt.Sprintf("%s performance_counter: %d", op, meter.Performance(ctx))
}

func failed(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// Execute runs a statement
func (s *Suite) Execute(ctx context.Context, stmt string) (string, error) {
	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return "", failed("execute", err)
	}
	return performance(ctx, "execute"), nil
}

// Count the rows of a table
func (s *Suite) Count(ctx context.Context, table string) (string, error) {
	n, err := s.db.Count(ctx, table)
	if err != nil {
		return "", failed("count", err)
	}
	s.l.Info("count", zap.String("table", table), zap.Int64("count", n))
	return performance(ctx, "count"), nil
}

// Insert count persons, with ids from offset+1, one statement each
func (s *Suite) Insert(ctx context.Context, t Table, offset, count uint64) (string, error) {
	op := t.Prefix + "_insert_" + t.Name
	err := s.db.WithConnection(ctx, func(conn *sql.Conn) error {
		for i := uint64(0); i < count; i++ {
			p := t.NewPerson(offset + i + 1)
			if _, err := conn.ExecContext(ctx, t.insert(), t.insertArgs(p)...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", failed(op, err)
	}
	return op + " OK", nil
}

// InsertOne inserts the person of id offset+1
func (s *Suite) InsertOne(ctx context.Context, t Table, offset uint64) (string, error) {
	p := t.NewPerson(offset + 1)
	if _, err := s.db.Exec(ctx, t.insert(), t.insertArgs(p)...); err != nil {
		return "", failed("insert", err)
	}
	return performance(ctx, "insert"), nil
}

// Select returns the persons of a query over a table
func (s *Suite) Select(ctx context.Context, t Table, where string, args ...interface{}) ([]Person, error) {
	db, err := s.db.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s %s", t.Name, where), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var persons []Person
	for rows.Next() {
		var p Person
		dest := []interface{}{&p.ID, &p.Name, &p.Age, &p.Gender}
		if t.WithData {
			dest = append(dest, &p.Data)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

func (s *Suite) query(ctx context.Context, t Table, op, where string, args ...interface{}) (string, error) {
	persons, err := s.Select(ctx, t, where, args...)
	if err != nil {
		return "", failed(op, err)
	}
	if persons == nil {
		persons = []Person{}
	}
	res, err := json.Marshal(persons)
	if err != nil {
		return "", failed(op, err)
	}
	s.l.Debug(op, zap.String("table", t.Name), zap.Int("rows", len(persons)), zap.ByteString("result", res))
	return performance(ctx, op), nil
}

// QueryByID selects the person of id offset+1
func (s *Suite) QueryByID(ctx context.Context, t Table, offset uint64) (string, error) {
	return s.query(ctx, t, "query_by_id", "WHERE id = ?1", int64(offset+1))
}

// QueryByName selects persons by the name of id offset+1
func (s *Suite) QueryByName(ctx context.Context, t Table, offset uint64) (string, error) {
	return s.query(ctx, t, "query_by_name", "WHERE name = ?1", t.PersonName(offset+1))
}

// QueryByLikeName selects persons with a name starting like the name of id offset+1
func (s *Suite) QueryByLikeName(ctx context.Context, t Table, offset uint64) (string, error) {
	return s.query(ctx, t, "query_by_like_name", "WHERE name LIKE ?1", t.PersonName(offset+1)+"%")
}

// QueryByLimitOffset selects a page of persons
func (s *Suite) QueryByLimitOffset(ctx context.Context, t Table, limit, offset uint64) (string, error) {
	return s.query(ctx, t, "query_by_limit_offset", "LIMIT ?1 OFFSET ?2", int64(limit), int64(offset))
}

func (s *Suite) update(ctx context.Context, op, stmt string, args ...interface{}) (string, error) {
	if _, err := s.db.Exec(ctx, stmt, args...); err != nil {
		return "", failed(op, err)
	}
	return performance(ctx, op), nil
}

// UpdateByID renames the person of id offset+1
func (s *Suite) UpdateByID(ctx context.Context, t Table, offset uint64) (string, error) {
	return s.update(ctx, "update_by_id",
		fmt.Sprintf("UPDATE %s SET name = ?1 WHERE id = ?2", t.Name), "person_id", int64(offset+1))
}

// UpdateByName renames the persons named after id offset+1
func (s *Suite) UpdateByName(ctx context.Context, t Table, offset uint64) (string, error) {
	return s.update(ctx, "update_by_name",
		fmt.Sprintf("UPDATE %s SET name = ?1 WHERE name = ?2", t.Name), "person_name", t.PersonName(offset+1))
}

// DeleteByID deletes the person of id offset+1
func (s *Suite) DeleteByID(ctx context.Context, t Table, offset uint64) (string, error) {
	return s.update(ctx, "delete",
		fmt.Sprintf("DELETE FROM %s WHERE id = ?1", t.Name), int64(offset+1))
}

// Close the database
func (s *Suite) Close() error {
	return s.db.Shutdown()
}
