// Copyright 2024 The gtos Authors
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

package params

import "github.com/tos-network/r1vault/common"

// Well-known program and sysvar addresses.
var (
	// VaultProgramID is the address the secp256r1 vault program is deployed at.
	VaultProgramID = common.MustBase58ToAddress("91tm9dq8Q3bb73eKQJZqKYr5BzftiMuybrdvKeBy1U6x")

	// SystemProgramID owns every native-balance account and provides the
	// transfer primitive.
	SystemProgramID = common.MustBase58ToAddress("11111111111111111111111111111111")

	// NativeLoaderID owns builtin program accounts.
	NativeLoaderID = common.MustBase58ToAddress("NativeLoader1111111111111111111111111111111")

	// SysvarOwnerID owns every sysvar account.
	SysvarOwnerID = common.MustBase58ToAddress("Sysvar1111111111111111111111111111111111111")

	// InstructionsSysvarID is the account through which a program introspects
	// the other instructions of its batch.
	InstructionsSysvarID = common.MustBase58ToAddress("Sysvar1nstructions1111111111111111111111111")

	// ClockSysvarID and RentSysvarID expose the clock and rent oracles.
	ClockSysvarID = common.MustBase58ToAddress("SysvarC1ock11111111111111111111111111111111")
	RentSysvarID  = common.MustBase58ToAddress("SysvarRent111111111111111111111111111111111")

	// Secp256r1ProgramID is the precompile that verifies P-256 signatures
	// carried in its instruction data.
	Secp256r1ProgramID = common.MustBase58ToAddress("Secp256r1SigVerify1111111111111111111111111")
)

// VaultSeed is the label prefixed to every vault derivation.
const VaultSeed = "vault"
