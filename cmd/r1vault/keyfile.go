package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto/p256"
)

const keyfileCurve = "secp256r1"

// keyfile is the on-disk form of a vault owner key. The private key is stored
// unencrypted; the file is created with owner-only permissions.
type keyfile struct {
	ID         uuid.UUID `json:"id"`
	Curve      string    `json:"curve"`
	PublicKey  string    `json:"publicKey"`
	PrivateKey string    `json:"privateKey"`
}

func newKeyfile(priv *ecdsa.PrivateKey) (*keyfile, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("could not create random uuid: %w", err)
	}
	return &keyfile{
		ID:         id,
		Curve:      keyfileCurve,
		PublicKey:  p256.CompressPubkey(&priv.PublicKey).Hex(),
		PrivateKey: common.Bytes2Hex(p256.FromECDSA(priv)),
	}, nil
}

// key decodes the private key and checks it against the stored public key.
func (k *keyfile) key() (*ecdsa.PrivateKey, error) {
	if k.Curve != keyfileCurve {
		return nil, fmt.Errorf("unsupported curve %q", k.Curve)
	}
	raw, err := common.FromHex(k.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	priv, err := p256.ToECDSA(raw)
	if err != nil {
		return nil, err
	}
	pub, err := common.HexToSecp256r1Pubkey(k.PublicKey)
	if err != nil {
		return nil, err
	}
	if p256.CompressPubkey(&priv.PublicKey) != pub {
		return nil, errors.New("public key does not match private key")
	}
	return priv, nil
}

func writeKeyfile(path string, k *keyfile) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("keyfile already exists at %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking if keyfile exists: %w", err)
	}
	content, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create directory %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, content, 0600)
}

func loadKeyfile(path string) (*ecdsa.PrivateKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the keyfile at '%s': %w", path, err)
	}
	k := new(keyfile)
	if err := json.Unmarshal(content, k); err != nil {
		return nil, fmt.Errorf("failed to decode keyfile '%s': %w", path, err)
	}
	priv, err := k.key()
	if err != nil {
		return nil, fmt.Errorf("keyfile '%s': %w", path, err)
	}
	return priv, nil
}
