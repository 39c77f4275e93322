// Copyright © 2018 One Concern

package kvmap

import (
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

type entry struct {
	key   uint64
	value []byte
}

func lessEntry(a, b entry) bool { return a.key < b.key }

// BTreeMap is an in-memory ordered map
type BTreeMap struct {
	mx   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// NewBTree builds an empty in-memory map
func NewBTree() *BTreeMap {
	return &BTreeMap{tree: btree.NewG(btreeDegree, lessEntry)}
}

// Insert a value
func (m *BTreeMap) Insert(key uint64, value []byte) error {
	m.mx.Lock()
	m.tree.ReplaceOrInsert(entry{key: key, value: clone(value)})
	m.mx.Unlock()
	return nil
}

// Get a value
func (m *BTreeMap) Get(key uint64) ([]byte, bool, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	e, ok := m.tree.Get(entry{key: key})
	if !ok {
		return nil, false, nil
	}
	return clone(e.value), true, nil
}

// Remove a key
func (m *BTreeMap) Remove(key uint64) (bool, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	_, ok := m.tree.Delete(entry{key: key})
	return ok, nil
}

// Contains a key?
func (m *BTreeMap) Contains(key uint64) (bool, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return m.tree.Has(entry{key: key}), nil
}

// Len of the map
func (m *BTreeMap) Len() (uint64, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return uint64(m.tree.Len()), nil
}

// Range over [from, to)
func (m *BTreeMap) Range(from, to uint64, fn func(uint64, []byte) bool) error {
	m.mx.RLock()
	defer m.mx.RUnlock()
	m.tree.AscendRange(entry{key: from}, entry{key: to}, func(e entry) bool {
		return fn(e.key, clone(e.value))
	})
	return nil
}

// Close the map, dropping its content
func (m *BTreeMap) Close() error {
	m.mx.Lock()
	m.tree.Clear(false)
	m.mx.Unlock()
	return nil
}
