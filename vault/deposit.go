package vault

import (
	"fmt"

	"github.com/tos-network/r1vault/program"
)

// processDeposit moves the requested amount from the payer into the empty
// vault derived from the request's public key.
func (p *Program) processDeposit(ctx *program.Context, data []byte) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	accounts, err := parseDepositAccounts(ctx.Accounts)
	if err != nil {
		return err
	}
	req, err := DecodeDepositRequest(data)
	if err != nil {
		return err
	}
	derived, bump, err := DeriveVaultAddress(ctx.Deriver, ctx.ProgramID, req.Pubkey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAddressDerivationMismatch, err)
	}
	if derived != accounts.vault.Key {
		return fmt.Errorf("%w: have %s, derived %s", ErrAddressDerivationMismatch, accounts.vault.Key, derived)
	}

	logger := ctx.Logger()
	// Rent is informational only. The vault is a plain system account and the
	// deposit is allowed to leave it below the exemption threshold.
	if ctx.Rent != nil {
		if minimum, err := ctx.Rent.MinimumBalance(accounts.vault.DataLen()); err == nil {
			logger.Debug("Vault rent exemption", "vault", derived, "minimum", minimum, "amount", req.Amount)
		}
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	logger.Info("Depositing", "vault", derived, "bump", bump, "amount", req.Amount)
	return ctx.Bank.Transfer(accounts.payer, accounts.vault, req.Amount)
}
