// Package boltdb implements the key-value database layer on top of a single
// bbolt bucket.
package boltdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/log"
	"github.com/tos-network/r1vault/vaultdb"
	bolt "go.etcd.io/bbolt"
)

var bucketKV = []byte("kv")

// Database is a persistent key-value store backed by a bbolt file.
type Database struct {
	path string
	db   *bolt.DB
	log  log.Logger
}

// New opens (or creates) the bbolt file at path.
func New(path string, readonly bool) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("boltdb: path required")
	}
	if !readonly {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("boltdb: create dir: %w", err)
		}
	}
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:  1 * time.Second,
		ReadOnly: readonly,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}
	if !readonly {
		if err := bdb.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketKV)
			return err
		}); err != nil {
			_ = bdb.Close()
			return nil, fmt.Errorf("create bucket %s: %w", bucketKV, err)
		}
	}
	logger := log.New("database", path)
	logger.Debug("Opened bolt database", "readonly", readonly)
	return &Database{path: path, db: bdb, log: logger}, nil
}

// Close releases the file lock.
func (db *Database) Close() error {
	if db == nil || db.db == nil {
		return nil
	}
	return db.db.Close()
}

// Path returns the database file path.
func (db *Database) Path() string { return db.path }

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	var ok bool
	err := db.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketKV); b != nil {
			k, _ := b.Cursor().Seek(key)
			ok = k != nil && bytes.Equal(k, key)
		}
		return nil
	})
	return ok, err
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	var out []byte
	err := db.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return vaultdb.ErrNotFound
		}
		// Seek instead of Get so empty values are told apart from missing keys.
		k, v := b.Cursor().Seek(key)
		if k == nil || !bytes.Equal(k, key) {
			return vaultdb.ErrNotFound
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte{}, v...)
		return nil
	})
	return out, err
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	return db.db.Update(func(tx *bolt.Tx) error {
		// bbolt refuses nil values; store an empty value instead.
		return tx.Bucket(bucketKV).Put(key, nonNil(value))
	})
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Delete(key)
	})
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *Database) NewBatch() vaultdb.Batch {
	return &batch{db: db}
}

// NewIterator returns a snapshot iterator over the keys with prefix, starting
// at prefix+start.
func (db *Database) NewIterator(prefix []byte, start []byte) vaultdb.Iterator {
	it := &iterator{index: -1}
	seek := append(common.CopyBytes(prefix), start...)
	it.err = db.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(seek); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			it.keys = append(it.keys, common.CopyBytes(k))
			it.values = append(it.values, common.CopyBytes(v))
		}
		return nil
	})
	return it
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

// batch buffers writes and applies them in one bbolt transaction.
type batch struct {
	db     *Database
	writes []keyvalue
	size   int
}

func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{common.CopyBytes(key), nonNil(common.CopyBytes(value)), false})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{common.CopyBytes(key), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error {
	return b.db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		for _, kv := range b.writes {
			var err error
			if kv.delete {
				err = bucket.Delete(kv.key)
			} else {
				err = bucket.Put(kv.key, kv.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

type iterator struct {
	index  int
	keys   [][]byte
	values [][]byte
	err    error
}

func (it *iterator) Next() bool {
	if it.err != nil || it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

func (it *iterator) Error() error { return it.err }

func (it *iterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.keys[it.index]
}

func (it *iterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.values[it.index]
}

func (it *iterator) Release() {
	it.index, it.keys, it.values = -1, nil, nil
}
