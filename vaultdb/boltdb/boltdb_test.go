package boltdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tos-network/r1vault/vaultdb"
	"github.com/tos-network/r1vault/vaultdb/dbtest"
)

func TestBoltDB(t *testing.T) {
	dir := t.TempDir()
	n := 0
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() vaultdb.KeyValueStore {
			n++
			db, err := New(filepath.Join(dir, fmt.Sprintf("suite-%d", n), "kv.db"), false)
			if err != nil {
				t.Fatal(err)
			}
			return db
		})
	})
}

func TestBoltDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger", "kv.db")
	db, err := New(path, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Put([]byte("receipt/1"), nil); err != nil {
		t.Fatalf("put nil value: %v", err)
	}
	db.Close()

	db, err = New(path, true)
	if err != nil {
		t.Fatalf("reopen readonly: %v", err)
	}
	defer db.Close()
	ok, err := db.Has([]byte("receipt/1"))
	if err != nil || !ok {
		t.Fatalf("key lost after reopen: %v", err)
	}
	if _, err := New("", false); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
