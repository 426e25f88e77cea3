// Package store is the durable ledger layer: a bbolt database split into
// named regions, one per logical table, with typed repositories on top.
// Every mutation commits synchronously; anything observable before a crash
// is observable after restart.
package store

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"ustbills/pkg/platform/sentinel"
)

// DB owns the underlying bolt handle. Regions are created on first use and
// are isolated from each other: a corrupt value in one region cannot affect
// another.
type DB struct {
	bolt *bbolt.DB
}

// OpenDB opens (or creates) the database file.
func OpenDB(path string) (*DB, error) {
	b, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	return &DB{bolt: b}, nil
}

func (db *DB) Close() error { return db.bolt.Close() }

// Region returns a handle to the named table, creating it if absent.
func (db *DB) Region(name string) (*Region, error) {
	err := db.bolt.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create region %q: %w", name, err)
	}
	return &Region{db: db.bolt, name: []byte(name)}, nil
}

// Region is one durable sorted table. Keys are totally ordered by their byte
// representation; iteration is key-ascending.
type Region struct {
	db   *bbolt.DB
	name []byte
}

// Get returns the value stored under key, or sentinel.ErrNotFound.
func (r *Region) Get(key []byte) ([]byte, error) {
	var out []byte
	err := r.view(func(b *bbolt.Bucket) error {
		v := b.Get(key)
		if v == nil {
			return sentinel.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// Put stores value under key and returns the previous value, if any.
func (r *Region) Put(key, value []byte) ([]byte, error) {
	var prev []byte
	err := r.update(func(b *bbolt.Bucket) error {
		if v := b.Get(key); v != nil {
			prev = append([]byte(nil), v...)
		}
		return b.Put(key, value)
	})
	return prev, err
}

// PutIfAbsent stores value under key only when the key is not present,
// returning sentinel.ErrConflict otherwise. The check and the write happen in
// one bolt transaction, so the first writer always wins.
func (r *Region) PutIfAbsent(key, value []byte) error {
	return r.update(func(b *bbolt.Bucket) error {
		if b.Get(key) != nil {
			return sentinel.ErrConflict
		}
		return b.Put(key, value)
	})
}

// Update replaces the value under key only when the key is present,
// returning sentinel.ErrNotFound otherwise. No upsert.
func (r *Region) Update(key, value []byte) error {
	return r.update(func(b *bbolt.Bucket) error {
		if b.Get(key) == nil {
			return sentinel.ErrNotFound
		}
		return b.Put(key, value)
	})
}

// Delete removes key and returns the previous value, if any.
func (r *Region) Delete(key []byte) ([]byte, error) {
	var prev []byte
	err := r.update(func(b *bbolt.Bucket) error {
		if v := b.Get(key); v != nil {
			prev = append([]byte(nil), v...)
		}
		return b.Delete(key)
	})
	return prev, err
}

// ForEach walks all entries in ascending key order over a consistent
// snapshot. Returning an error from fn stops the walk.
func (r *Region) ForEach(fn func(key, value []byte) error) error {
	return r.view(func(b *bbolt.Bucket) error {
		return b.ForEach(fn)
	})
}

// Len returns the number of entries in the region.
func (r *Region) Len() (uint64, error) {
	var n uint64
	err := r.view(func(b *bbolt.Bucket) error {
		n = uint64(b.Stats().KeyN)
		return nil
	})
	return n, err
}

func (r *Region) view(fn func(b *bbolt.Bucket) error) error {
	return r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.name)
		if b == nil {
			return fmt.Errorf("region %q missing", r.name)
		}
		return fn(b)
	})
}

func (r *Region) update(fn func(b *bbolt.Bucket) error) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.name)
		if b == nil {
			return fmt.Errorf("region %q missing", r.name)
		}
		return fn(b)
	})
}

// u64Key encodes a numeric key big-endian so byte order matches numeric order.
func u64Key(n uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], n)
	return k[:]
}
