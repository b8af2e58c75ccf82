// Package p256 implements the secp256r1 (NIST P-256) key handling used by
// vault owners: 33-byte compressed public keys and 64-byte r||s signatures
// over SHA-256 digests, normalized to low-S.
package p256

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/tos-network/r1vault/common"
)

// SignatureLength is the size of an r||s signature.
const SignatureLength = 64

var (
	ErrInvalidPubkey     = errors.New("p256: invalid public key")
	ErrInvalidPrivateKey = errors.New("p256: invalid private key")
)

var (
	curveN     = elliptic.P256().Params().N
	curveHalfN = new(big.Int).Rsh(curveN, 1)
)

// GenerateKey creates a fresh P-256 key pair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// ToECDSA creates a private key from its 32-byte big endian scalar.
func ToECDSA(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	k := new(big.Int).SetBytes(d)
	if k.Sign() == 0 || k.Cmp(curveN) >= 0 {
		return nil, ErrInvalidPrivateKey
	}
	priv := &ecdsa.PrivateKey{D: k}
	priv.PublicKey.Curve = elliptic.P256()
	priv.PublicKey.X, priv.PublicKey.Y = priv.PublicKey.Curve.ScalarBaseMult(d)
	return priv, nil
}

// FromECDSA exports a private key into its 32-byte scalar.
func FromECDSA(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return priv.D.FillBytes(make([]byte, 32))
}

// CompressPubkey encodes a public key to the 33-byte compressed format.
func CompressPubkey(pub *ecdsa.PublicKey) common.Secp256r1Pubkey {
	var out common.Secp256r1Pubkey
	copy(out[:], elliptic.MarshalCompressed(elliptic.P256(), pub.X, pub.Y))
	return out
}

// DecompressPubkey parses a public key in the 33-byte compressed format.
func DecompressPubkey(p common.Secp256r1Pubkey) (*ecdsa.PublicKey, error) {
	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), p[:])
	if x == nil || y == nil {
		return nil, ErrInvalidPubkey
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// Sign signs the SHA-256 digest of msg. The returned signature is always in
// the lower half of the curve order.
func Sign(msg []byte, priv *ecdsa.PrivateKey) ([SignatureLength]byte, error) {
	var sig [SignatureLength]byte
	if priv == nil || priv.Curve != elliptic.P256() {
		return sig, ErrInvalidPrivateKey
	}
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return sig, err
	}
	if s.Cmp(curveHalfN) > 0 {
		s = new(big.Int).Sub(curveN, s)
	}
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

// Verify checks an r||s signature over the SHA-256 digest of msg. High-S
// signatures are rejected.
func Verify(pub common.Secp256r1Pubkey, msg []byte, sig []byte) bool {
	if len(sig) != SignatureLength {
		return false
	}
	key, err := DecompressPubkey(pub)
	if err != nil {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	if r.Sign() == 0 || s.Sign() == 0 || r.Cmp(curveN) >= 0 || s.Cmp(curveHalfN) > 0 {
		return false
	}
	digest := sha256.Sum256(msg)
	return ecdsa.Verify(key, digest[:], r, s)
}
