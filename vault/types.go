package vault

import (
	"github.com/tos-network/r1vault/common"
)

// Tag is the first byte of vault instruction data.
type Tag uint8

const (
	TagDeposit  Tag = 0
	TagWithdraw Tag = 1
)

func (t Tag) String() string {
	switch t {
	case TagDeposit:
		return "deposit"
	case TagWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// DepositRequest funds the vault derived from Pubkey.
type DepositRequest struct {
	Pubkey common.Secp256r1Pubkey
	Amount uint64
}

// WithdrawRequest drains a vault. Bump completes the vault's signer seeds.
type WithdrawRequest struct {
	Bump uint8
}

// AuthorizationMessage is the message the vault owner signs to let Payer
// withdraw until Expiry (unix seconds, inclusive).
type AuthorizationMessage struct {
	Payer  common.Address
	Expiry int64
}
