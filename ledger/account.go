package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/params"
)

// accountHeaderLength is lamports(8) || owner(32) || executable(1) || dataLen(4).
const accountHeaderLength = 8 + common.AddressLength + 1 + 4

var errAccountEncoding = errors.New("ledger: malformed account encoding")

// Account is the stored form of a ledger account. The zero value is an empty
// account owned by the system program.
type Account struct {
	Lamports   uint64
	Owner      common.Address
	Data       []byte
	Executable bool
}

// Copy returns a deep copy of a.
func (a *Account) Copy() *Account {
	if a == nil {
		return nil
	}
	cpy := *a
	cpy.Data = common.CopyBytes(a.Data)
	return &cpy
}

// Empty reports whether the account carries nothing worth storing.
func (a *Account) Empty() bool {
	return a.Lamports == 0 && len(a.Data) == 0 && !a.Executable && a.Owner == params.SystemProgramID
}

func (a *Account) encode() []byte {
	out := make([]byte, accountHeaderLength+len(a.Data))
	binary.LittleEndian.PutUint64(out[0:], a.Lamports)
	copy(out[8:], a.Owner[:])
	if a.Executable {
		out[8+common.AddressLength] = 1
	}
	binary.LittleEndian.PutUint32(out[8+common.AddressLength+1:], uint32(len(a.Data)))
	copy(out[accountHeaderLength:], a.Data)
	return out
}

func decodeAccount(b []byte) (*Account, error) {
	if len(b) < accountHeaderLength {
		return nil, fmt.Errorf("%w: %d bytes", errAccountEncoding, len(b))
	}
	n := binary.LittleEndian.Uint32(b[8+common.AddressLength+1:])
	if uint64(len(b)-accountHeaderLength) != uint64(n) {
		return nil, fmt.Errorf("%w: data length %d, have %d", errAccountEncoding, n, len(b)-accountHeaderLength)
	}
	flag := b[8+common.AddressLength]
	if flag > 1 {
		return nil, fmt.Errorf("%w: executable flag %d", errAccountEncoding, flag)
	}
	acc := &Account{
		Lamports:   binary.LittleEndian.Uint64(b[0:]),
		Owner:      common.BytesToAddress(b[8 : 8+common.AddressLength]),
		Executable: flag == 1,
	}
	if n > 0 {
		acc.Data = common.CopyBytes(b[accountHeaderLength:])
	}
	return acc, nil
}
