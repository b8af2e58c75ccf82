package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tos-network/r1vault/common"
	"github.com/tos-network/r1vault/crypto"
	"github.com/tos-network/r1vault/program"
)

var (
	ErrEmptyBatch            = errors.New("ledger: batch has no instructions")
	ErrFeePayerNotSigner     = errors.New("ledger: fee payer must sign the batch")
	ErrMissingSignature      = errors.New("ledger: account requires a signature the batch does not carry")
	ErrInsufficientFeeFunds  = errors.New("ledger: insufficient funds for fee")
	ErrLamportsNotConserved  = errors.New("ledger: instruction changed the total lamport supply")
	ErrReadonlyModified      = errors.New("ledger: instruction modified a read-only account")
	ErrReceiptNotFound       = errors.New("ledger: receipt not found")
	ErrUnknownProgramInBatch = errors.New("ledger: batch references an unknown program")
)

// Batch is an atomic list of instructions. Signers are the accounts whose
// signatures the batch carries; the fee payer must be one of them.
type Batch struct {
	FeePayer     common.Address
	Signers      []common.Address
	Instructions []*program.Instruction
}

// NewBatch creates a batch signed by feePayer alone.
func NewBatch(feePayer common.Address, instructions ...*program.Instruction) *Batch {
	return &Batch{
		FeePayer:     feePayer,
		Signers:      []common.Address{feePayer},
		Instructions: instructions,
	}
}

func (b *Batch) signed(addr common.Address) bool {
	for _, s := range b.Signers {
		if s == addr {
			return true
		}
	}
	return false
}

// Validate checks the batch shape before any fee is charged.
func (b *Batch) Validate(reg *program.Registry) error {
	if len(b.Instructions) == 0 {
		return ErrEmptyBatch
	}
	if !b.signed(b.FeePayer) {
		return fmt.Errorf("%w: %s", ErrFeePayerNotSigner, b.FeePayer)
	}
	for i, ix := range b.Instructions {
		if ix == nil {
			return fmt.Errorf("%w: instruction %d is nil", ErrEmptyBatch, i)
		}
		if _, ok := reg.Lookup(ix.ProgramID); !ok {
			return fmt.Errorf("%w: instruction %d calls %s", ErrUnknownProgramInBatch, i, ix.ProgramID)
		}
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !b.signed(meta.Address) {
				return fmt.Errorf("%w: instruction %d, account %s", ErrMissingSignature, i, meta.Address)
			}
		}
	}
	return nil
}

// SignatureCount returns the number of signatures fees are charged for: the
// batch signatures plus those carried by precompile instructions.
func (b *Batch) SignatureCount(reg *program.Registry) int {
	n := len(b.Signers)
	for _, ix := range b.Instructions {
		p, ok := reg.Lookup(ix.ProgramID)
		if !ok {
			continue
		}
		if pc, ok := p.(program.Precompile); ok {
			n += pc.SignatureCount(ix.Data)
		}
	}
	return n
}

// Hash fingerprints the batch at a ledger sequence number.
func (b *Batch) Hash(seq uint64) common.Hash {
	var num [8]byte
	binary.LittleEndian.PutUint64(num[:], seq)
	parts := [][]byte{num[:], b.FeePayer[:]}
	for _, s := range b.Signers {
		parts = append(parts, s[:])
	}
	for _, ix := range b.Instructions {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(ix.Data)))
		parts = append(parts, ix.ProgramID[:], n[:], ix.Data)
		for _, meta := range ix.Accounts {
			flags := byte(0)
			if meta.IsSigner {
				flags |= 1
			}
			if meta.IsWritable {
				flags |= 2
			}
			parts = append(parts, meta.Address[:], []byte{flags})
		}
	}
	return crypto.Keccak256Hash(parts...)
}

// Receipt records the outcome of an executed batch. Failed batches still pay
// their fee.
type Receipt struct {
	Hash     common.Hash `json:"hash"`
	Sequence uint64      `json:"sequence"`
	Fee      uint64      `json:"fee"`
	Success  bool        `json:"success"`
	Err      string      `json:"error,omitempty"`
	Code     *uint32     `json:"code,omitempty"`
	Logs     []string    `json:"logs,omitempty"`
}

var receiptPrefix = []byte("receipt/")

func receiptKey(hash common.Hash) []byte {
	return append(append([]byte{}, receiptPrefix...), hash[:]...)
}

func (r *Receipt) encode() ([]byte, error) { return json.Marshal(r) }

func decodeReceipt(b []byte) (*Receipt, error) {
	r := new(Receipt)
	if err := json.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}
