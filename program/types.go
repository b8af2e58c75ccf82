// Package program defines the boundary between on-ledger programs and the
// host runtime that executes them.
//
// A program receives the ordered account list of one instruction together with
// its raw data and a set of collaborators (address derivation, fund transfer,
// batch introspection, clock, rent). The host owns dispatch, balances and
// atomicity; programs only read the accounts and ask the collaborators to move
// funds.
package program

import (
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/log"
)

// AccountInfo is the view of one account handed to a program for the
// duration of a single instruction.
type AccountInfo struct {
	Key        common.Address
	Owner      common.Address
	Lamports   uint64
	Data       []byte
	Executable bool
	IsSigner   bool
	IsWritable bool
}

// IsOwnedBy reports whether the account is owned by the given program.
func (a *AccountInfo) IsOwnedBy(owner common.Address) bool { return a.Owner == owner }

// DataLen returns the size of the account data.
func (a *AccountInfo) DataLen() int { return len(a.Data) }

// AccountMeta describes how an instruction references an account.
type AccountMeta struct {
	Address    common.Address
	IsSigner   bool
	IsWritable bool
}

// Writable returns a writable account meta.
func Writable(addr common.Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, IsSigner: signer, IsWritable: true}
}

// Readonly returns a read-only account meta.
func Readonly(addr common.Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, IsSigner: signer}
}

// Instruction is a single program invocation inside an atomic batch.
type Instruction struct {
	ProgramID common.Address
	Accounts  []AccountMeta
	Data      []byte
}

// AddressDeriver computes program-derived addresses.
type AddressDeriver interface {
	// FindProgramAddress returns the canonical address for seeds together with
	// the bump that was appended to reach it.
	FindProgramAddress(seeds [][]byte, programID common.Address) (common.Address, uint8, error)
	// CreateProgramAddress derives the address for a complete seed list,
	// bump included. It fails with ErrInvalidSeeds if the result is on curve.
	CreateProgramAddress(seeds [][]byte, programID common.Address) (common.Address, error)
}

// Bank is the native fund-transfer primitive.
type Bank interface {
	// Transfer moves lamports between accounts authorized by the signers
	// of the batch.
	Transfer(from, to *AccountInfo, lamports uint64) error
	// TransferSigned moves lamports out of a program-derived account. The
	// seeds must recreate from's address under the calling program.
	TransferSigned(from, to *AccountInfo, lamports uint64, seeds [][]byte) error
}

// BatchIntrospector gives read-only access to the other instructions of the
// batch currently executing.
type BatchIntrospector interface {
	// SiblingInstruction returns the instruction at the given position
	// relative to the current one.
	SiblingInstruction(offset int) (*Instruction, error)
}

// Clock reports the ledger time.
type Clock interface {
	UnixTimestamp() (int64, error)
}

// RentOracle computes the minimum balance an account needs to stay alive.
type RentOracle interface {
	MinimumBalance(dataLen int) (uint64, error)
}

// Context carries everything available to a program while it executes one
// instruction.
type Context struct {
	ProgramID common.Address
	Accounts  []*AccountInfo

	Deriver AddressDeriver
	Bank    Bank
	Batch   BatchIntrospector
	Clock   Clock
	Rent    RentOracle

	Log log.Logger
}

// Logger returns the context logger, falling back to the root logger.
func (ctx *Context) Logger() log.Logger {
	if ctx.Log == nil {
		return log.Root()
	}
	return ctx.Log
}
