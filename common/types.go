// Package common contains the basic key and hash types shared by the vault
// program, its host runtime and the command line tools.
package common

import (
	"encoding/hex"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	// AddressLength is the expected length of an account address.
	AddressLength = 32
	// HashLength is the expected length of a hash.
	HashLength = 32
	// Secp256r1PubkeyLength is the length of a compressed P-256 public key.
	Secp256r1PubkeyLength = 33
)

// Address is the 32-byte key of a ledger account. Its text form is base58.
type Address [AddressLength]byte

// BytesToAddress returns Address with value b.
// If b is larger than len(a), b will be cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// Base58ToAddress parses a base58 encoded account address.
func Base58ToAddress(s string) (Address, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return Address(pk), nil
}

// MustBase58ToAddress is like Base58ToAddress but panics on malformed input.
// Only use it for compile-time constants.
func MustBase58ToAddress(s string) Address {
	a, err := Base58ToAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// SetBytes sets the address to the value of b.
// If b is larger than len(a), b will be cropped from the left.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Bytes gets the byte representation of the underlying address.
func (a Address) Bytes() []byte { return a[:] }

// String implements fmt.Stringer, returning the base58 form.
func (a Address) String() string { return solana.PublicKey(a).String() }

// Hex returns the 0x-prefixed hex form of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Address{} }

// TerminalString implements log.TerminalStringer, formatting a shortened
// version of the address for console output.
func (a Address) TerminalString() string {
	s := a.String()
	if len(s) <= 12 {
		return s
	}
	return s[:5] + ".." + s[len(s)-5:]
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(input []byte) error {
	parsed, err := Base58ToAddress(string(input))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Hash represents a 32-byte digest.
type Hash [HashLength]byte

// BytesToHash sets b to hash.
// If b is larger than len(h), b will be cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes gets the byte representation of the underlying hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex converts a hash to a hex string.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// String implements the stringer interface.
func (h Hash) String() string { return h.Hex() }

// TerminalString implements log.TerminalStringer.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[29:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(input []byte) error {
	raw, err := FromHex(string(input))
	if err != nil {
		return err
	}
	if len(raw) != HashLength {
		return fmt.Errorf("invalid hash length %d, want %d", len(raw), HashLength)
	}
	copy(h[:], raw)
	return nil
}

// Secp256r1Pubkey is a SEC1 compressed P-256 public key (0x02/0x03 prefix
// followed by the 32-byte X coordinate).
type Secp256r1Pubkey [Secp256r1PubkeyLength]byte

// BytesToSecp256r1Pubkey converts b into a compressed public key. The length
// must match exactly.
func BytesToSecp256r1Pubkey(b []byte) (Secp256r1Pubkey, error) {
	var p Secp256r1Pubkey
	if len(b) != Secp256r1PubkeyLength {
		return p, fmt.Errorf("invalid secp256r1 pubkey length %d, want %d", len(b), Secp256r1PubkeyLength)
	}
	copy(p[:], b)
	return p, nil
}

// HexToSecp256r1Pubkey parses a hex encoded compressed public key, with or
// without 0x prefix.
func HexToSecp256r1Pubkey(s string) (Secp256r1Pubkey, error) {
	raw, err := FromHex(s)
	if err != nil {
		return Secp256r1Pubkey{}, err
	}
	return BytesToSecp256r1Pubkey(raw)
}

// Prefix returns the parity byte of the key.
func (p Secp256r1Pubkey) Prefix() []byte { return p[:1] }

// Rest returns the X coordinate of the key.
func (p Secp256r1Pubkey) Rest() []byte { return p[1:] }

// Hex returns the 0x-prefixed hex form of the key.
func (p Secp256r1Pubkey) Hex() string { return "0x" + hex.EncodeToString(p[:]) }

// String implements fmt.Stringer.
func (p Secp256r1Pubkey) String() string { return p.Hex() }
