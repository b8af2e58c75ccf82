package vault

import (
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

// NewDepositInstruction builds a deposit of amount lamports from payer into
// vault, the address derived from pubkey.
func NewDepositInstruction(payer, vault common.Address, pubkey common.Secp256r1Pubkey, amount uint64) *program.Instruction {
	req := &DepositRequest{Pubkey: pubkey, Amount: amount}
	return &program.Instruction{
		ProgramID: params.VaultProgramID,
		Accounts: []program.AccountMeta{
			program.Writable(payer, true),
			program.Writable(vault, false),
			program.Readonly(params.SystemProgramID, false),
		},
		Data: req.Encode(),
	}
}

// NewWithdrawInstruction builds a withdrawal draining vault into payer. It
// must be followed by the secp256r1 instruction carrying the authorization.
func NewWithdrawInstruction(payer, vault common.Address, bump uint8) *program.Instruction {
	req := &WithdrawRequest{Bump: bump}
	return &program.Instruction{
		ProgramID: params.VaultProgramID,
		Accounts: []program.AccountMeta{
			program.Writable(payer, true),
			program.Writable(vault, false),
			program.Readonly(params.InstructionsSysvarID, false),
			program.Readonly(params.SystemProgramID, false),
		},
		Data: req.Encode(),
	}
}

// NewAuthorizationMessage encodes the message a vault owner signs to let
// payer withdraw until expiry.
func NewAuthorizationMessage(payer common.Address, expiry int64) []byte {
	return (&AuthorizationMessage{Payer: payer, Expiry: expiry}).Encode()
}
