// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package params

import (
	"errors"
	"fmt"
	"math"
)

var (
	// DefaultRuntimeConfig mirrors the fee and rent schedule of the
	// production runtime.
	DefaultRuntimeConfig = &RuntimeConfig{
		LamportsPerSignature:    5000,
		RentLamportsPerByteYear: 3480,
		RentExemptionYears:      2,
		AccountStorageOverhead:  128,
	}

	// TestRuntimeConfig charges no fees, for tests that only care about
	// program behaviour.
	TestRuntimeConfig = &RuntimeConfig{
		LamportsPerSignature:    0,
		RentLamportsPerByteYear: 3480,
		RentExemptionYears:      2,
		AccountStorageOverhead:  128,
	}
)

var errRentOverflow = errors.New("rent computation overflows")

// RuntimeConfig is the fee and rent schedule applied by the host runtime.
type RuntimeConfig struct {
	// LamportsPerSignature is charged to the fee payer for every batch
	// signature and every signature verified by a precompile.
	LamportsPerSignature uint64 `toml:",omitempty"`

	RentLamportsPerByteYear uint64 `toml:",omitempty"`
	RentExemptionYears      uint64 `toml:",omitempty"`
	AccountStorageOverhead  uint64 `toml:",omitempty"`
}

// String implements the fmt.Stringer interface.
func (c *RuntimeConfig) String() string {
	return fmt.Sprintf("{LamportsPerSignature: %d RentPerByteYear: %d ExemptionYears: %d Overhead: %d}",
		c.LamportsPerSignature, c.RentLamportsPerByteYear, c.RentExemptionYears, c.AccountStorageOverhead)
}

// MinimumBalance returns the lamports an account holding dataLen bytes needs
// to be exempt from rent.
func (c *RuntimeConfig) MinimumBalance(dataLen int) (uint64, error) {
	if dataLen < 0 || dataLen > MaxAccountDataLength {
		return 0, fmt.Errorf("invalid account data length %d", dataLen)
	}
	size := c.AccountStorageOverhead + uint64(dataLen)
	perYear := c.RentLamportsPerByteYear
	if perYear != 0 && size > math.MaxUint64/perYear {
		return 0, errRentOverflow
	}
	yearly := size * perYear
	if c.RentExemptionYears != 0 && yearly > math.MaxUint64/c.RentExemptionYears {
		return 0, errRentOverflow
	}
	return yearly * c.RentExemptionYears, nil
}

// Fee returns the lamports charged for a batch carrying the given number of
// signatures.
func (c *RuntimeConfig) Fee(signatures int) (uint64, error) {
	if signatures < 0 {
		return 0, fmt.Errorf("invalid signature count %d", signatures)
	}
	n := uint64(signatures)
	if c.LamportsPerSignature != 0 && n > math.MaxUint64/c.LamportsPerSignature {
		return 0, errors.New("fee computation overflows")
	}
	return n * c.LamportsPerSignature, nil
}
