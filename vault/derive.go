package vault

import (
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

// VaultSeeds returns the derivation seeds of the vault owned by pubkey. The
// key is split because a single seed is limited to 32 bytes.
func VaultSeeds(pubkey common.Secp256r1Pubkey) [][]byte {
	return [][]byte{[]byte(params.VaultSeed), pubkey.Prefix(), pubkey.Rest()}
}

// VaultSignerSeeds returns the seeds that sign for the vault, bump included.
func VaultSignerSeeds(pubkey common.Secp256r1Pubkey, bump uint8) [][]byte {
	return append(VaultSeeds(pubkey), []byte{bump})
}

// DeriveVaultAddress returns the canonical vault address of pubkey under
// programID and its bump.
func DeriveVaultAddress(d program.AddressDeriver, programID common.Address, pubkey common.Secp256r1Pubkey) (common.Address, uint8, error) {
	return d.FindProgramAddress(VaultSeeds(pubkey), programID)
}
