package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

const defaultDerivationCacheSize = 1024

type derivation struct {
	address common.Address
	bump    uint8
}

// Deriver computes program-derived addresses. Canonical searches are cached
// since every deposit repeats the bump search for its vault.
type Deriver struct {
	cache *lru.Cache
}

// NewDeriver creates a deriver caching up to size canonical derivations.
func NewDeriver(size int) *Deriver {
	if size <= 0 {
		size = defaultDerivationCacheSize
	}
	cache, _ := lru.New(size)
	return &Deriver{cache: cache}
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) > params.MaxSeeds {
		return fmt.Errorf("%w: %d seeds", program.ErrMaxSeedLengthExceeded, len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > params.MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes", program.ErrMaxSeedLengthExceeded, i, len(seed))
		}
	}
	return nil
}

// derivationKey identifies a seed list unambiguously.
func derivationKey(seeds [][]byte, programID common.Address) common.Hash {
	parts := make([][]byte, 0, 2*len(seeds)+1)
	for _, seed := range seeds {
		var n [2]byte
		binary.LittleEndian.PutUint16(n[:], uint16(len(seed)))
		parts = append(parts, n[:], seed)
	}
	parts = append(parts, programID[:])
	return crypto.Keccak256Hash(parts...)
}

// FindProgramAddress implements program.AddressDeriver.
func (d *Deriver) FindProgramAddress(seeds [][]byte, programID common.Address) (common.Address, uint8, error) {
	// The bump takes one seed slot.
	if len(seeds) >= params.MaxSeeds {
		return common.Address{}, 0, fmt.Errorf("%w: %d seeds", program.ErrMaxSeedLengthExceeded, len(seeds))
	}
	if err := checkSeeds(seeds); err != nil {
		return common.Address{}, 0, err
	}
	key := derivationKey(seeds, programID)
	if v, ok := d.cache.Get(key); ok {
		r := v.(derivation)
		return r.address, r.bump, nil
	}
	addr, bump, err := solana.FindProgramAddress(seeds, solana.PublicKey(programID))
	if err != nil {
		return common.Address{}, 0, fmt.Errorf("%w: %v", program.ErrInvalidSeeds, err)
	}
	r := derivation{address: common.Address(addr), bump: bump}
	d.cache.Add(key, r)
	return r.address, r.bump, nil
}

// CreateProgramAddress implements program.AddressDeriver.
func (d *Deriver) CreateProgramAddress(seeds [][]byte, programID common.Address) (common.Address, error) {
	if err := checkSeeds(seeds); err != nil {
		return common.Address{}, err
	}
	addr, err := solana.CreateProgramAddress(seeds, solana.PublicKey(programID))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", program.ErrInvalidSeeds, err)
	}
	return common.Address(addr), nil
}

// Len returns the number of cached derivations.
func (d *Deriver) Len() int { return d.cache.Len() }
