package ledger

import (
	"fmt"
	"math"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/log"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

// invocation is the host side of one instruction: it is the Bank and the
// BatchIntrospector handed to the executing program.
type invocation struct {
	programID common.Address
	index     int
	batch     *Batch
	deriver   program.AddressDeriver
	log       log.Logger
}

// Transfer implements program.Bank for accounts that signed the batch.
func (inv *invocation) Transfer(from, to *program.AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		return fmt.Errorf("%w: %s", program.ErrMissingRequiredSignature, from.Key)
	}
	return systemTransfer(from, to, lamports)
}

// TransferSigned implements program.Bank for accounts derived from the
// calling program.
func (inv *invocation) TransferSigned(from, to *program.AccountInfo, lamports uint64, seeds [][]byte) error {
	signer, err := inv.deriver.CreateProgramAddress(seeds, inv.programID)
	if err != nil {
		return err
	}
	if signer != from.Key {
		return fmt.Errorf("%w: seeds sign for %s, not %s", program.ErrInvalidSeeds, signer, from.Key)
	}
	return systemTransfer(from, to, lamports)
}

// systemTransfer applies the system program's transfer rules.
func systemTransfer(from, to *program.AccountInfo, lamports uint64) error {
	if !from.IsOwnedBy(params.SystemProgramID) {
		return fmt.Errorf("%w: %s owned by %s", program.ErrInvalidAccountOwner, from.Key, from.Owner)
	}
	if len(from.Data) != 0 {
		return fmt.Errorf("%w: %s carries data", program.ErrInvalidAccountData, from.Key)
	}
	if !from.IsWritable {
		return fmt.Errorf("%w: %s", program.ErrReadonlyAccount, from.Key)
	}
	if !to.IsWritable {
		return fmt.Errorf("%w: %s", program.ErrReadonlyAccount, to.Key)
	}
	if from.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, need %d", program.ErrInsufficientFunds, from.Key, from.Lamports, lamports)
	}
	if from == to {
		return nil
	}
	if to.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("%w: balance overflow on %s", program.ErrInvalidAccountData, to.Key)
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

// SiblingInstruction implements program.BatchIntrospector.
func (inv *invocation) SiblingInstruction(offset int) (*program.Instruction, error) {
	i := inv.index + offset
	if i < 0 || i >= len(inv.batch.Instructions) {
		return nil, fmt.Errorf("%w: %d%+d of %d", program.ErrInstructionOutOfRange, inv.index, offset, len(inv.batch.Instructions))
	}
	ix := inv.batch.Instructions[i]
	cpy := &program.Instruction{
		ProgramID: ix.ProgramID,
		Accounts:  append([]program.AccountMeta(nil), ix.Accounts...),
		Data:      common.CopyBytes(ix.Data),
	}
	return cpy, nil
}
