// Package secp256r1 implements the secp256r1 signature-verification
// precompile: the layout of its instruction data, a bounds-checked reader for
// that layout, builders for clients and the verification the host runs before
// a batch executes.
//
// Instruction data layout:
//
//	[0]      number of signatures
//	[1]      padding
//	[2..]    one 14-byte Offsets entry per signature
//	...      public keys, signatures and messages referenced by the offsets
package secp256r1

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/params"
	"github.com/tos-network/r1vault/program"
)

// CurrentInstruction is the instruction index that refers to the record
// itself.
const CurrentInstruction = 0xFFFF

var (
	ErrRecordTooShort        = errors.New("secp256r1: record too short")
	ErrInvalidSignatureCount = errors.New("secp256r1: invalid signature count")
	ErrSignatureIndex        = errors.New("secp256r1: signature index out of range")
	ErrOffsetOutOfBounds     = errors.New("secp256r1: offset out of bounds")
	ErrForeignInstruction    = errors.New("secp256r1: offsets reference another instruction")
	ErrWrongProgram          = errors.New("secp256r1: instruction is not addressed to the secp256r1 program")
	ErrInvalidSignature      = errors.New("secp256r1: invalid signature")
)

// Offsets locates the fields of one signature inside instruction data.
type Offsets struct {
	SignatureOffset           uint16
	SignatureInstructionIndex uint16
	PublicKeyOffset           uint16
	PublicKeyInstructionIndex uint16
	MessageDataOffset         uint16
	MessageDataSize           uint16
	MessageInstructionIndex   uint16
}

func (o *Offsets) encode(b []byte) {
	binary.LittleEndian.PutUint16(b[0:], o.SignatureOffset)
	binary.LittleEndian.PutUint16(b[2:], o.SignatureInstructionIndex)
	binary.LittleEndian.PutUint16(b[4:], o.PublicKeyOffset)
	binary.LittleEndian.PutUint16(b[6:], o.PublicKeyInstructionIndex)
	binary.LittleEndian.PutUint16(b[8:], o.MessageDataOffset)
	binary.LittleEndian.PutUint16(b[10:], o.MessageDataSize)
	binary.LittleEndian.PutUint16(b[12:], o.MessageInstructionIndex)
}

func decodeOffsets(b []byte) Offsets {
	return Offsets{
		SignatureOffset:           binary.LittleEndian.Uint16(b[0:]),
		SignatureInstructionIndex: binary.LittleEndian.Uint16(b[2:]),
		PublicKeyOffset:           binary.LittleEndian.Uint16(b[4:]),
		PublicKeyInstructionIndex: binary.LittleEndian.Uint16(b[6:]),
		MessageDataOffset:         binary.LittleEndian.Uint16(b[8:]),
		MessageDataSize:           binary.LittleEndian.Uint16(b[10:]),
		MessageInstructionIndex:   binary.LittleEndian.Uint16(b[12:]),
	}
}

// Record is a parsed secp256r1 precompile instruction. Field accessors
// re-check every offset against Data.
type Record struct {
	NumSignatures uint8
	Offsets       []Offsets
	Data          []byte
}

// SignedFields are the values one signature in a record attests to.
type SignedFields struct {
	Signer    common.Secp256r1Pubkey
	Signature [params.Secp256r1SignatureLength]byte
	Message   []byte
}

// Parse reads the signature count and offsets table of a record. A record
// carrying zero signatures parses; Verify rejects it.
func Parse(data []byte) (*Record, error) {
	if len(data) < params.Secp256r1OffsetsStart {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordTooShort, len(data))
	}
	n := int(data[0])
	end := params.Secp256r1OffsetsStart + n*params.Secp256r1OffsetsLength
	if len(data) < end {
		return nil, fmt.Errorf("%w: %d signatures need %d bytes, have %d", ErrRecordTooShort, n, end, len(data))
	}
	rec := &Record{
		NumSignatures: uint8(n),
		Offsets:       make([]Offsets, n),
		Data:          data,
	}
	for i := 0; i < n; i++ {
		start := params.Secp256r1OffsetsStart + i*params.Secp256r1OffsetsLength
		rec.Offsets[i] = decodeOffsets(data[start : start+params.Secp256r1OffsetsLength])
	}
	return rec, nil
}

// FromInstruction parses the record carried by ix, which must be addressed
// to the secp256r1 program.
func FromInstruction(ix *program.Instruction) (*Record, error) {
	if ix == nil {
		return nil, fmt.Errorf("%w: missing instruction", ErrRecordTooShort)
	}
	if ix.ProgramID != params.Secp256r1ProgramID {
		return nil, fmt.Errorf("%w: %s", ErrWrongProgram, ix.ProgramID)
	}
	return Parse(ix.Data)
}

func (r *Record) offsets(i int) (*Offsets, error) {
	if i < 0 || i >= len(r.Offsets) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSignatureIndex, i, len(r.Offsets))
	}
	return &r.Offsets[i], nil
}

func (r *Record) slice(ixIndex, offset uint16, size int) ([]byte, error) {
	if ixIndex != CurrentInstruction {
		return nil, fmt.Errorf("%w: index %d", ErrForeignInstruction, ixIndex)
	}
	start := int(offset)
	end := start + size
	if end > len(r.Data) {
		return nil, fmt.Errorf("%w: [%d:%d] of %d bytes", ErrOffsetOutOfBounds, start, end, len(r.Data))
	}
	return r.Data[start:end], nil
}

// Signer returns the public key of signature i.
func (r *Record) Signer(i int) (common.Secp256r1Pubkey, error) {
	var pub common.Secp256r1Pubkey
	o, err := r.offsets(i)
	if err != nil {
		return pub, err
	}
	b, err := r.slice(o.PublicKeyInstructionIndex, o.PublicKeyOffset, params.Secp256r1PubkeyLength)
	if err != nil {
		return pub, err
	}
	copy(pub[:], b)
	return pub, nil
}

// Signature returns the r||s bytes of signature i.
func (r *Record) Signature(i int) ([params.Secp256r1SignatureLength]byte, error) {
	var sig [params.Secp256r1SignatureLength]byte
	o, err := r.offsets(i)
	if err != nil {
		return sig, err
	}
	b, err := r.slice(o.SignatureInstructionIndex, o.SignatureOffset, params.Secp256r1SignatureLength)
	if err != nil {
		return sig, err
	}
	copy(sig[:], b)
	return sig, nil
}

// Message returns the signed message of signature i.
func (r *Record) Message(i int) ([]byte, error) {
	o, err := r.offsets(i)
	if err != nil {
		return nil, err
	}
	return r.slice(o.MessageInstructionIndex, o.MessageDataOffset, int(o.MessageDataSize))
}

// Fields returns every value signature i attests to.
func (r *Record) Fields(i int) (*SignedFields, error) {
	signer, err := r.Signer(i)
	if err != nil {
		return nil, err
	}
	sig, err := r.Signature(i)
	if err != nil {
		return nil, err
	}
	msg, err := r.Message(i)
	if err != nil {
		return nil, err
	}
	return &SignedFields{Signer: signer, Signature: sig, Message: common.CopyBytes(msg)}, nil
}
