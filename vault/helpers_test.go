package vault

import (
	"errors"
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/precompile/secp256r1"
	"github.com/tos-network/r1vault/program"
)

// fakeDeriver hashes seeds and program ID. The canonical bump is always 255.
type fakeDeriver struct{}

func (fakeDeriver) CreateProgramAddress(seeds [][]byte, programID common.Address) (common.Address, error) {
	parts := append(append([][]byte{}, seeds...), programID[:], []byte("pda"))
	return common.Address(crypto.Keccak256Hash(parts...)), nil
}

func (d fakeDeriver) FindProgramAddress(seeds [][]byte, programID common.Address) (common.Address, uint8, error) {
	addr, err := d.CreateProgramAddress(append(append([][]byte{}, seeds...), []byte{255}), programID)
	return addr, 255, err
}

// fakeBank moves lamports between the account views it is handed.
type fakeBank struct {
	programID common.Address
	transfers int
}

func (b *fakeBank) Transfer(from, to *program.AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		return program.ErrMissingRequiredSignature
	}
	return b.move(from, to, lamports)
}

func (b *fakeBank) TransferSigned(from, to *program.AccountInfo, lamports uint64, seeds [][]byte) error {
	addr, err := (fakeDeriver{}).CreateProgramAddress(seeds, b.programID)
	if err != nil {
		return err
	}
	if addr != from.Key {
		return program.ErrInvalidSeeds
	}
	return b.move(from, to, lamports)
}

func (b *fakeBank) move(from, to *program.AccountInfo, lamports uint64) error {
	if from.Lamports < lamports {
		return program.ErrInsufficientFunds
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	b.transfers++
	return nil
}

type fakeBatch struct {
	siblings map[int]*program.Instruction
}

func (b *fakeBatch) SiblingInstruction(offset int) (*program.Instruction, error) {
	ix, ok := b.siblings[offset]
	if !ok {
		return nil, fmt.Errorf("%w: offset %d", program.ErrInstructionOutOfRange, offset)
	}
	return ix, nil
}

type fakeClock struct {
	now int64
	err error
}

func (c fakeClock) UnixTimestamp() (int64, error) { return c.now, c.err }

var errClock = errors.New("clock offline")

// testPubkey is a deterministic 33-byte key. The vault core never checks it is
// on curve.
func testPubkey(b byte) common.Secp256r1Pubkey {
	var p common.Secp256r1Pubkey
	p[0] = 0x02
	for i := 1; i < len(p); i++ {
		p[i] = b
	}
	return p
}

func systemAccount(key common.Address, lamports uint64, signer bool) *program.AccountInfo {
	return &program.AccountInfo{
		Key:        key,
		Owner:      params.SystemProgramID,
		Lamports:   lamports,
		IsSigner:   signer,
		IsWritable: true,
	}
}

func builtinAccount(key common.Address) *program.AccountInfo {
	return &program.AccountInfo{Key: key, Owner: params.NativeLoaderID, Executable: true}
}

type env struct {
	prog  *Program
	bank  *fakeBank
	batch *fakeBatch
	clock fakeClock
}

func newEnv() *env {
	return &env{
		prog:  NewProgram(params.VaultProgramID, secp256r1.TrustedVerifier{}),
		bank:  &fakeBank{programID: params.VaultProgramID},
		batch: &fakeBatch{siblings: make(map[int]*program.Instruction)},
		clock: fakeClock{now: 1_700_000_000},
	}
}

func (e *env) context(accounts ...*program.AccountInfo) *program.Context {
	return &program.Context{
		ProgramID: params.VaultProgramID,
		Accounts:  accounts,
		Deriver:   fakeDeriver{},
		Bank:      e.bank,
		Batch:     e.batch,
		Clock:     e.clock,
		Rent:      params.DefaultRuntimeConfig,
	}
}

func vaultAddress(pub common.Secp256r1Pubkey) common.Address {
	addr, _, _ := DeriveVaultAddress(fakeDeriver{}, params.VaultProgramID, pub)
	return addr
}

// withAuthorization places an unsigned record for msg after the withdrawal.
func (e *env) withAuthorization(signer common.Secp256r1Pubkey, msg []byte) {
	ix, err := secp256r1.NewInstruction(signer, [params.Secp256r1SignatureLength]byte{}, msg)
	if err != nil {
		panic(err)
	}
	e.batch.siblings[1] = ix
}
