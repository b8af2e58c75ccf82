package vault

import (
	"errors"
	"fmt"

	"github.com/tos-network/r1vault/program"
)

// processWithdraw drains the vault into the payer named by the signed
// authorization that follows this instruction.
func (p *Program) processWithdraw(ctx *program.Context, data []byte) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	accounts, err := parseWithdrawAccounts(ctx.Accounts)
	if err != nil {
		return err
	}
	req, err := DecodeWithdrawRequest(data)
	if err != nil {
		return err
	}
	auth, err := readAuthorization(ctx, p.verifier)
	if err != nil {
		return err
	}
	if auth.Payer != accounts.payer.Key {
		return fmt.Errorf("%w: signed for %s, payer is %s", ErrPayerMismatch, auth.Payer, accounts.payer.Key)
	}
	now, err := ctx.Clock.UnixTimestamp()
	if err != nil {
		return fmt.Errorf("vault: clock unavailable: %w", err)
	}
	// The expiry second itself is still valid.
	if now > auth.Expiry {
		return fmt.Errorf("%w: expired at %d, now %d", ErrExpiredAuthorization, auth.Expiry, now)
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	// A wrong bump yields seeds that do not sign for the vault; the transfer
	// primitive rejects them.
	seeds := VaultSignerSeeds(auth.signer, req.Bump)
	amount := accounts.vault.Lamports

	ctx.Logger().Info("Withdrawing", "vault", accounts.vault.Key, "payer", accounts.payer.Key, "amount", amount, "expiry", auth.Expiry)
	if err := ctx.Bank.TransferSigned(accounts.vault, accounts.payer, amount, seeds); err != nil {
		if errors.Is(err, program.ErrInvalidSeeds) {
			return fmt.Errorf("%w: %v", ErrAddressDerivationMismatch, err)
		}
		return err
	}
	return nil
}
