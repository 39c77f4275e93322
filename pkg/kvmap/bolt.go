// Copyright © 2018 One Concern

package kvmap

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("map")

type boltMap struct {
	db *bolt.DB
}

func openBolt(dir string) (*boltMap, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(dir, "map.bolt"), 0600, &bolt.Options{
		Timeout:        time.Second,
		NoSync:         true,
		NoFreelistSync: true,
		FreelistType:   bolt.FreelistMapType,
	})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketName)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltMap{db: db}, nil
}

func (m *boltMap) Insert(key uint64, value []byte) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(encodeKey(key), value)
	})
}

func (m *boltMap) Get(key uint64) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	err := m.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(encodeKey(key))
		if v != nil {
			val, found = clone(v), true
		}
		return nil
	})
	return val, found, err
}

func (m *boltMap) Remove(key uint64) (bool, error) {
	var found bool
	err := m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		k := encodeKey(key)
		if b.Get(k) == nil {
			return nil
		}
		found = true
		return b.Delete(k)
	})
	return found, err
}

func (m *boltMap) Contains(key uint64) (bool, error) {
	var found bool
	err := m.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketName).Get(encodeKey(key)) != nil
		return nil
	})
	return found, err
}

func (m *boltMap) Len() (uint64, error) {
	var n int
	err := m.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return uint64(n), err
}

func (m *boltMap) Range(from, to uint64, fn func(uint64, []byte) bool) error {
	return m.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(encodeKey(from)); k != nil; k, v = c.Next() {
			key := decodeKey(k)
			if key >= to {
				return nil
			}
			if !fn(key, clone(v)) {
				return nil
			}
		}
		return nil
	})
}

func (m *boltMap) Close() error {
	return m.db.Close()
}
