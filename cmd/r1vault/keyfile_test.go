package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tos-network/r1vault/crypto/p256"
)

func TestKeyfileRoundTrip(t *testing.T) {
	priv, err := p256.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	k, err := newKeyfile(priv)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := writeKeyfile(path, k); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("keyfile permissions %o, want 600", perm)
	}
	loaded, err := loadKeyfile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !loaded.Equal(priv) {
		t.Fatal("loaded key differs from the generated one")
	}
	if err := writeKeyfile(path, k); err == nil {
		t.Fatal("expected error overwriting keyfile")
	}
}

func TestKeyfileRejectsMismatchedPubkey(t *testing.T) {
	a, _ := p256.GenerateKey()
	b, _ := p256.GenerateKey()
	k, err := newKeyfile(a)
	if err != nil {
		t.Fatal(err)
	}
	other, _ := newKeyfile(b)
	k.PublicKey = other.PublicKey

	path := filepath.Join(t.TempDir(), "key.json")
	content, _ := json.Marshal(k)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadKeyfile(path); err == nil {
		t.Fatal("expected error for mismatched public key")
	}
}
