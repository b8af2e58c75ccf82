// Package vault implements the secp256r1 vault program.
//
// A deposit funds an empty system account whose address is derived from a
// 33-byte compressed P-256 public key. A withdrawal drains that account into
// the payer named in a message the key's owner signed; the signature is
// carried by a secp256r1 precompile instruction placed directly after the
// withdrawal in the same batch, and the message also bounds the permit in
// time.
package vault

import (
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/precompile/secp256r1"
	"github.com/tos-network/r1vault/program"
)

func init() {
	program.DefaultRegistry.MustRegister(NewProgram(params.VaultProgramID, secp256r1.TrustedVerifier{}))
}

// Program is the vault program bound to a program ID and a signature
// verifier.
type Program struct {
	id       common.Address
	verifier SignatureVerifier
}

// NewProgram creates a vault program deployed at id. A nil verifier checks
// every signature itself.
func NewProgram(id common.Address, verifier SignatureVerifier) *Program {
	if verifier == nil {
		verifier = secp256r1.CheckingVerifier{}
	}
	return &Program{id: id, verifier: verifier}
}

// Register installs a vault program on reg.
func Register(reg *program.Registry, id common.Address, verifier SignatureVerifier) error {
	return reg.Register(NewProgram(id, verifier))
}

// ID implements program.Program.
func (p *Program) ID() common.Address { return p.id }

// Execute implements program.Program.
func (p *Program) Execute(ctx *program.Context, data []byte) error {
	return p.Process(ctx, data)
}

// Process routes instruction data on its tag byte.
func (p *Program) Process(ctx *program.Context, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty instruction data", ErrInvalidInstruction)
	}
	switch tag := Tag(data[0]); tag {
	case TagDeposit:
		return p.processDeposit(ctx, data[1:])
	case TagWithdraw:
		return p.processWithdraw(ctx, data[1:])
	default:
		return fmt.Errorf("%w: unknown tag %d", ErrInvalidInstruction, tag)
	}
}

// ErrorCode implements program.ErrorCoder.
func (p *Program) ErrorCode(err error) (uint32, bool) { return ErrorCode(err) }
