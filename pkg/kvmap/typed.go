// Copyright © 2018 One Concern

package kvmap

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes values stored in a map
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// MsgpackCodec encodes values with msgpack
type MsgpackCodec[V any] struct{}

// Encode a value
func (MsgpackCodec[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode a value
func (MsgpackCodec[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

// Typed is a map of typed values
type Typed[V any] struct {
	Map
	codec Codec[V]
}

// NewTyped wraps a map with a codec. A nil codec defaults to msgpack.
func NewTyped[V any](m Map, codec Codec[V]) *Typed[V] {
	if codec == nil {
		codec = MsgpackCodec[V]{}
	}
	return &Typed[V]{Map: m, codec: codec}
}

// Insert a value
func (t *Typed[V]) Insert(key uint64, value V) error {
	buf, err := t.codec.Encode(value)
	if err != nil {
		return err
	}
	return t.Map.Insert(key, buf)
}

// Get a value
func (t *Typed[V]) Get(key uint64) (V, bool, error) {
	var zero V
	buf, found, err := t.Map.Get(key)
	if err != nil || !found {
		return zero, found, err
	}
	v, err := t.codec.Decode(buf)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Range over [from, to) with decoded values
func (t *Typed[V]) Range(from, to uint64, fn func(uint64, V) bool) error {
	var decodeErr error
	err := t.Map.Range(from, to, func(k uint64, buf []byte) bool {
		v, err := t.codec.Decode(buf)
		if err != nil {
			decodeErr = err
			return false
		}
		return fn(k, v)
	})
	if err != nil {
		return err
	}
	return decodeErr
}
