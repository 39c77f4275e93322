// Copyright © 2018 One Concern

package kvmap

import (
	"errors"
	"os"

	"github.com/cockroachdb/pebble"
)

var noSync = &pebble.WriteOptions{Sync: false}

type pebbleMap struct {
	db  *pebble.DB
	len uint64
}

func openPebble(dir string) (*pebbleMap, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	options := new(pebble.Options)
	options.EnsureDefaults()
	options.DisableWAL = true

	db, err := pebble.Open(dir, options)
	if err != nil {
		return nil, err
	}
	m := &pebbleMap{db: db}
	err = m.scan(nil, nil, func(_, _ []byte) bool {
		m.len++
		return true
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (m *pebbleMap) scan(lower, upper []byte, fn func(k, v []byte) bool) error {
	iterator, err := m.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	for valid := iterator.First(); valid; valid = iterator.Next() {
		if !fn(iterator.Key(), iterator.Value()) {
			break
		}
	}
	return errors.Join(iterator.Error(), iterator.Close())
}

func (m *pebbleMap) Insert(key uint64, value []byte) error {
	found, err := m.Contains(key)
	if err != nil {
		return err
	}
	if err := m.db.Set(encodeKey(key), value, noSync); err != nil {
		return err
	}
	if !found {
		m.len++
	}
	return nil
}

func (m *pebbleMap) Get(key uint64) ([]byte, bool, error) {
	val, closer, err := m.db.Get(encodeKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_ = closer.Close()
	}()
	return clone(val), true, nil
}

func (m *pebbleMap) Remove(key uint64) (bool, error) {
	found, err := m.Contains(key)
	if err != nil || !found {
		return false, err
	}
	if err := m.db.Delete(encodeKey(key), noSync); err != nil {
		return false, err
	}
	m.len--
	return true, nil
}

func (m *pebbleMap) Contains(key uint64) (bool, error) {
	_, closer, err := m.db.Get(encodeKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, nil
}

func (m *pebbleMap) Len() (uint64, error) {
	return m.len, nil
}

func (m *pebbleMap) Range(from, to uint64, fn func(uint64, []byte) bool) error {
	if from >= to {
		return nil
	}
	return m.scan(encodeKey(from), encodeKey(to), func(k, v []byte) bool {
		return fn(decodeKey(k), clone(v))
	})
}

func (m *pebbleMap) Close() error {
	return m.db.Close()
}
