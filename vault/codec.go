package vault

import (
	"encoding/binary"
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/params"
)

// DecodeDepositRequest decodes the body of a deposit, tag excluded.
func DecodeDepositRequest(data []byte) (*DepositRequest, error) {
	if len(data) != params.DepositRequestLength {
		return nil, fmt.Errorf("%w: deposit wants %d bytes, got %d", ErrInstructionDataLength, params.DepositRequestLength, len(data))
	}
	req := new(DepositRequest)
	copy(req.Pubkey[:], data[:params.Secp256r1PubkeyLength])
	req.Amount = binary.LittleEndian.Uint64(data[params.Secp256r1PubkeyLength:])
	return req, nil
}

// Encode returns the tagged instruction data of the deposit.
func (r *DepositRequest) Encode() []byte {
	out := make([]byte, 1+params.DepositRequestLength)
	out[0] = byte(TagDeposit)
	copy(out[1:], r.Pubkey[:])
	binary.LittleEndian.PutUint64(out[1+params.Secp256r1PubkeyLength:], r.Amount)
	return out
}

// DecodeWithdrawRequest decodes the body of a withdrawal, tag excluded.
func DecodeWithdrawRequest(data []byte) (*WithdrawRequest, error) {
	if len(data) != params.WithdrawRequestLength {
		return nil, fmt.Errorf("%w: withdraw wants %d bytes, got %d", ErrInstructionDataLength, params.WithdrawRequestLength, len(data))
	}
	return &WithdrawRequest{Bump: data[0]}, nil
}

// Encode returns the tagged instruction data of the withdrawal.
func (r *WithdrawRequest) Encode() []byte {
	return []byte{byte(TagWithdraw), r.Bump}
}

// DecodeAuthorizationMessage splits a signed message into payer key and
// expiry.
func DecodeAuthorizationMessage(msg []byte) (*AuthorizationMessage, error) {
	if len(msg) != params.AuthorizationMessageLength {
		return nil, fmt.Errorf("%w: message wants %d bytes, got %d", ErrSignatureRecord, params.AuthorizationMessageLength, len(msg))
	}
	return &AuthorizationMessage{
		Payer:  common.BytesToAddress(msg[:common.AddressLength]),
		Expiry: int64(binary.LittleEndian.Uint64(msg[common.AddressLength:])),
	}, nil
}

// Encode returns the 40-byte message to be signed.
func (m *AuthorizationMessage) Encode() []byte {
	out := make([]byte, params.AuthorizationMessageLength)
	copy(out, m.Payer[:])
	binary.LittleEndian.PutUint64(out[common.AddressLength:], uint64(m.Expiry))
	return out
}
