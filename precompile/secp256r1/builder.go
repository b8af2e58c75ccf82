package secp256r1

import (
	"crypto/ecdsa"
	"errors"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto/p256"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

var errMessageTooLong = errors.New("secp256r1: message too long")

// NewInstructionData lays out a single-signature record: header, public key,
// signature, then the message.
func NewInstructionData(pub common.Secp256r1Pubkey, sig [params.Secp256r1SignatureLength]byte, msg []byte) ([]byte, error) {
	const (
		pubkeyOffset    = params.SignatureRecordHeaderLength
		signatureOffset = pubkeyOffset + params.Secp256r1PubkeyLength
		messageOffset   = signatureOffset + params.Secp256r1SignatureLength
	)
	if messageOffset+len(msg) > 0xFFFF {
		return nil, errMessageTooLong
	}
	data := make([]byte, messageOffset+len(msg))
	data[0] = 1
	off := Offsets{
		SignatureOffset:           signatureOffset,
		SignatureInstructionIndex: CurrentInstruction,
		PublicKeyOffset:           pubkeyOffset,
		PublicKeyInstructionIndex: CurrentInstruction,
		MessageDataOffset:         messageOffset,
		MessageDataSize:           uint16(len(msg)),
		MessageInstructionIndex:   CurrentInstruction,
	}
	off.encode(data[params.Secp256r1OffsetsStart:])
	copy(data[pubkeyOffset:], pub[:])
	copy(data[signatureOffset:], sig[:])
	copy(data[messageOffset:], msg)
	return data, nil
}

// NewInstruction wraps a single-signature record into a precompile
// instruction. Precompile instructions reference no accounts.
func NewInstruction(pub common.Secp256r1Pubkey, sig [params.Secp256r1SignatureLength]byte, msg []byte) (*program.Instruction, error) {
	data, err := NewInstructionData(pub, sig, msg)
	if err != nil {
		return nil, err
	}
	return &program.Instruction{ProgramID: params.Secp256r1ProgramID, Data: data}, nil
}

// SignInstruction signs msg with priv and returns the precompile instruction
// proving it.
func SignInstruction(priv *ecdsa.PrivateKey, msg []byte) (*program.Instruction, error) {
	sig, err := p256.Sign(msg, priv)
	if err != nil {
		return nil, err
	}
	return NewInstruction(p256.CompressPubkey(&priv.PublicKey), sig, msg)
}
