// Copyright © 2018 One Concern

// Package kvmap provides an ordered map with uint64 keys, persisted in a
// directory by an embedded key-value store.
//
// Available backends are bolt (a B+tree, the default), badger and pebble (LSM trees),
// and an in-memory btree which does not persist anything.
package kvmap

import (
	"encoding/binary"

	"github.com/oneconcern/stablebench/pkg/errors"

	"go.uber.org/zap"
)

// Backends
const (
	Bolt   = "bolt"
	BTree  = "btree"
	Badger = "badger"
	Pebble = "pebble"
)

// ErrUnknownBackend is returned when opening a map with an unsupported backend
var ErrUnknownBackend = errors.New("unknown kv backend")

// Map is an ordered map of uint64 keys to byte values.
//
// Values returned by Get and passed to Range callbacks are owned by the caller.
type Map interface {
	Insert(key uint64, value []byte) error
	Get(key uint64) ([]byte, bool, error)
	Remove(key uint64) (bool, error)
	Contains(key uint64) (bool, error)
	Len() (uint64, error)

	// Range iterates over keys in [from, to) in ascending order, until fn returns false
	Range(from, to uint64, fn func(key uint64, value []byte) bool) error

	Close() error
}

// Open a map in a directory
func Open(backend, dir string, logger *zap.Logger) (Map, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := logger.With(zap.String("backend", backend), zap.String("dir", dir))

	var (
		m   Map
		err error
	)
	switch backend {
	case Bolt, "":
		m, err = openBolt(dir)
	case BTree:
		m = NewBTree()
	case Badger:
		m, err = openBadger(dir)
	case Pebble:
		m, err = openPebble(dir)
	default:
		return nil, ErrUnknownBackend.Wrapf("%q", backend)
	}
	if err != nil {
		l.Error("could not open map", zap.Error(err))
		return nil, err
	}
	l.Debug("opened map")
	return m, nil
}

// Backends lists all supported backends
func Backends() []string {
	return []string{Bolt, BTree, Badger, Pebble}
}

func encodeKey(k uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], k)
	return buf[:]
}

func decodeKey(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func clone(b []byte) []byte {
	dest := make([]byte, len(b))
	copy(dest, b)
	return dest
}
