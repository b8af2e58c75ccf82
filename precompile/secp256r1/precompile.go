package secp256r1

import (
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto/p256"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

func init() {
	program.DefaultRegistry.MustRegister(Precompile{})
}

// Verify checks every signature of a record. It is what the host runs for
// each secp256r1 instruction before any program in the batch executes.
func Verify(data []byte) error {
	rec, err := Parse(data)
	if err != nil {
		return err
	}
	if rec.NumSignatures == 0 || int(rec.NumSignatures) > params.Secp256r1MaxSignatures {
		return fmt.Errorf("%w: %d", ErrInvalidSignatureCount, rec.NumSignatures)
	}
	for i := range rec.Offsets {
		f, err := rec.Fields(i)
		if err != nil {
			return err
		}
		if !p256.Verify(f.Signer, f.Message, f.Signature[:]) {
			return fmt.Errorf("%w: signature %d", ErrInvalidSignature, i)
		}
	}
	return nil
}

// SignatureCount returns the number of signatures a record carries, used by
// the host for fee accounting. Malformed data counts as zero.
func SignatureCount(data []byte) int {
	rec, err := Parse(data)
	if err != nil {
		return 0
	}
	return int(rec.NumSignatures)
}

// Precompile is the secp256r1 program as seen by the host registry.
type Precompile struct{}

func (Precompile) ID() common.Address { return params.Secp256r1ProgramID }

// Verify implements program.Precompile.
func (Precompile) Verify(data []byte) error { return Verify(data) }

// SignatureCount implements program.Precompile.
func (Precompile) SignatureCount(data []byte) int { return SignatureCount(data) }

// Execute is a no-op: the host has verified the record before the batch ran.
func (Precompile) Execute(ctx *program.Context, data []byte) error { return nil }

// TrustedVerifier exposes the fields of the first signature of a record
// without re-checking it. It is only sound inside a host that verifies
// precompile instructions before execution.
type TrustedVerifier struct{}

// VerifyAndExpose returns the signer, signature and message of signature 0.
func (TrustedVerifier) VerifyAndExpose(rec *Record) (*SignedFields, error) {
	return rec.Fields(0)
}

// CheckingVerifier re-verifies the signature before exposing its fields.
type CheckingVerifier struct{}

// VerifyAndExpose verifies signature 0 and returns its fields.
func (CheckingVerifier) VerifyAndExpose(rec *Record) (*SignedFields, error) {
	f, err := rec.Fields(0)
	if err != nil {
		return nil, err
	}
	if !p256.Verify(f.Signer, f.Message, f.Signature[:]) {
		return nil, ErrInvalidSignature
	}
	return f, nil
}
