package vault

import (
	"fmt"

	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

type depositAccounts struct {
	payer  *program.AccountInfo
	vault  *program.AccountInfo
	system *program.AccountInfo
}

// parseDepositAccounts checks [payer, vault, system_program].
func parseDepositAccounts(accounts []*program.AccountInfo) (*depositAccounts, error) {
	if len(accounts) != 3 {
		return nil, fmt.Errorf("%w: deposit wants 3, got %d", ErrAccountCount, len(accounts))
	}
	payer, vault, system := accounts[0], accounts[1], accounts[2]

	if !payer.IsSigner {
		return nil, fmt.Errorf("%w: payer %s did not sign", ErrAccountState, payer.Key)
	}
	if !payer.IsOwnedBy(params.SystemProgramID) {
		return nil, fmt.Errorf("%w: payer owned by %s", ErrAccountOwnership, payer.Owner)
	}
	if payer.Lamports == 0 {
		return nil, fmt.Errorf("%w: payer %s has no funds", ErrAccountState, payer.Key)
	}
	if !vault.IsOwnedBy(params.SystemProgramID) {
		return nil, fmt.Errorf("%w: vault owned by %s", ErrAccountOwnership, vault.Owner)
	}
	// A funded vault must not be overwritten.
	if vault.Lamports != 0 {
		return nil, fmt.Errorf("%w: vault %s already holds %d lamports", ErrAccountState, vault.Key, vault.Lamports)
	}
	if system.Key != params.SystemProgramID {
		return nil, fmt.Errorf("%w: %s is not the system program", ErrAccountOwnership, system.Key)
	}
	return &depositAccounts{payer: payer, vault: vault, system: system}, nil
}

type withdrawAccounts struct {
	payer        *program.AccountInfo
	vault        *program.AccountInfo
	instructions *program.AccountInfo
	system       *program.AccountInfo
}

// parseWithdrawAccounts checks [payer, vault, instructions_sysvar, system_program].
func parseWithdrawAccounts(accounts []*program.AccountInfo) (*withdrawAccounts, error) {
	if len(accounts) != 4 {
		return nil, fmt.Errorf("%w: withdraw wants 4, got %d", ErrAccountCount, len(accounts))
	}
	payer, vault, instructions, system := accounts[0], accounts[1], accounts[2], accounts[3]

	if !vault.IsOwnedBy(params.SystemProgramID) {
		return nil, fmt.Errorf("%w: vault owned by %s", ErrAccountOwnership, vault.Owner)
	}
	if vault.Lamports == 0 {
		return nil, fmt.Errorf("%w: vault %s is empty", ErrAccountState, vault.Key)
	}
	if instructions.Key != params.InstructionsSysvarID {
		return nil, fmt.Errorf("%w: %s is not the instructions sysvar", ErrAccountOwnership, instructions.Key)
	}
	if system.Key != params.SystemProgramID {
		return nil, fmt.Errorf("%w: %s is not the system program", ErrAccountOwnership, system.Key)
	}
	return &withdrawAccounts{payer: payer, vault: vault, instructions: instructions, system: system}, nil
}
