// Copyright © 2018 One Concern

package kvmap

import (
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
	badgeroptions "github.com/dgraph-io/badger/v3/options"
)

const (
	badgerRetryInterval = 10 * time.Millisecond
	badgerMaxRetries    = 100
)

type badgerMap struct {
	db  *badger.DB
	len uint64
}

func openBadger(dir string) (*badgerMap, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	db, err := badger.Open(
		badger.LSMOnlyOptions(dir).
			WithLoggingLevel(badger.WARNING).
			WithCompression(badgeroptions.None).
			WithSyncWrites(false).
			WithMemTableSize(16 << 20).
			WithBlockCacheSize(0).
			WithIndexCacheSize(0),
	)
	if err != nil {
		return nil, err
	}

	m := &badgerMap{db: db}
	n, err := m.count()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	m.len = n
	return m, nil
}

func (m *badgerMap) count() (uint64, error) {
	var n uint64
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// update retries transactions on conflicts
func (m *badgerMap) update(fn func(*badger.Txn) error) error {
	return backoff.Retry(func() error {
		err := m.db.Update(fn)
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(badgerRetryInterval), badgerMaxRetries),
	)
}

func (m *badgerMap) Insert(key uint64, value []byte) error {
	var added bool
	err := m.update(func(txn *badger.Txn) error {
		k := encodeKey(key)
		_, err := txn.Get(k)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			added = true
		case err != nil:
			return err
		default:
			added = false
		}
		return txn.Set(k, value)
	})
	if err == nil && added {
		atomic.AddUint64(&m.len, 1)
	}
	return err
}

func (m *badgerMap) Get(key uint64) ([]byte, bool, error) {
	var val []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (m *badgerMap) Remove(key uint64) (bool, error) {
	var found bool
	err := m.update(func(txn *badger.Txn) error {
		k := encodeKey(key)
		_, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return txn.Delete(k)
	})
	if err == nil && found {
		atomic.AddUint64(&m.len, ^uint64(0))
	}
	return found, err
}

func (m *badgerMap) Contains(key uint64) (bool, error) {
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(encodeKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *badgerMap) Len() (uint64, error) {
	return atomic.LoadUint64(&m.len), nil
}

func (m *badgerMap) Range(from, to uint64, fn func(uint64, []byte) bool) error {
	return m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Seek(encodeKey(from)); it.Valid(); it.Next() {
			item := it.Item()
			key := decodeKey(item.Key())
			if key >= to {
				return nil
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(key, val) {
				return nil
			}
		}
		return nil
	})
}

func (m *badgerMap) Close() error {
	return m.db.Close()
}
